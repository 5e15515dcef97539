package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file from
// configDir (if non-empty), and binds environment variables with the MNEMO_
// prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command layer)
//  2. Environment variables (MNEMO_VECTOR_STORE_PROVIDER, MNEMO_LLM_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	if configDir != "" {
		v.AddConfigPath(filepath.Clean(configDir))

		if err := v.ReadInConfig(); err != nil {
			// Config file not found errors are fine, defaults will apply.
			if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("MNEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from a viper instance initialized by
// InitViper, so env overrides and file values flow through one path.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Path:       v.GetString("vector_store.path"),
			Host:       v.GetString("vector_store.host"),
			Port:       v.GetInt("vector_store.port"),
			Collection: v.GetString("vector_store.collection"),
		},
		KeywordIndex: KeywordIndexConfig{
			Provider: v.GetString("keyword_index.provider"),
			Path:     v.GetString("keyword_index.path"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			Target:   v.GetString("llm.target"),
			Model:    v.GetString("llm.model"),
		},
		Rerank: RerankConfig{
			Target: v.GetString("rerank.target"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetStringSlice("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Pipeline: PipelineConfig{
			UseHyde:                v.GetBool("pipeline.use_hyde"),
			UseDecomposition:       v.GetBool("pipeline.use_decomposition"),
			UseReranker:            v.GetBool("pipeline.use_reranker"),
			UseMMR:                 v.GetBool("pipeline.use_mmr"),
			UseRecontextualization: v.GetBool("pipeline.use_recontextualization"),
			TopKCandidates:         v.GetInt("pipeline.top_k_candidates"),
			TopKFinal:              v.GetInt("pipeline.top_k_final"),
			RRFK:                   v.GetInt("pipeline.rrf_k"),
			MMRLambda:              v.GetFloat64("pipeline.mmr_lambda"),
			MinRelevanceThreshold:  v.GetFloat64("pipeline.min_relevance_threshold"),
			RecencyDecayRate:       v.GetFloat64("pipeline.recency_decay_rate"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.path", d.VectorStore.Path)
	v.SetDefault("vector_store.host", d.VectorStore.Host)
	v.SetDefault("vector_store.port", d.VectorStore.Port)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Keyword index
	v.SetDefault("keyword_index.provider", d.KeywordIndex.Provider)
	v.SetDefault("keyword_index.path", d.KeywordIndex.Path)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)

	// Rerank
	v.SetDefault("rerank.target", d.Rerank.Target)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Pipeline
	v.SetDefault("pipeline.use_hyde", d.Pipeline.UseHyde)
	v.SetDefault("pipeline.use_decomposition", d.Pipeline.UseDecomposition)
	v.SetDefault("pipeline.use_reranker", d.Pipeline.UseReranker)
	v.SetDefault("pipeline.use_mmr", d.Pipeline.UseMMR)
	v.SetDefault("pipeline.use_recontextualization", d.Pipeline.UseRecontextualization)
	v.SetDefault("pipeline.top_k_candidates", d.Pipeline.TopKCandidates)
	v.SetDefault("pipeline.top_k_final", d.Pipeline.TopKFinal)
	v.SetDefault("pipeline.rrf_k", d.Pipeline.RRFK)
	v.SetDefault("pipeline.mmr_lambda", d.Pipeline.MMRLambda)
	v.SetDefault("pipeline.min_relevance_threshold", d.Pipeline.MinRelevanceThreshold)
	v.SetDefault("pipeline.recency_decay_rate", d.Pipeline.RecencyDecayRate)
}
