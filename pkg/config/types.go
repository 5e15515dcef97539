package config

// Config represents the persistent mnemo configuration stored as config.toml.
// The TOML layout uses sections for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	VectorStore  VectorStoreConfig  `toml:"vector_store"`
	KeywordIndex KeywordIndexConfig `toml:"keyword_index"`
	Embedding    EmbeddingConfig    `toml:"embedding"`
	LLM          LLMConfig          `toml:"llm"`
	Rerank       RerankConfig       `toml:"rerank"`
	Events       EventsConfig       `toml:"events"`
	Pipeline     PipelineConfig     `toml:"pipeline"`
}

// VectorStoreConfig holds dense index settings.
type VectorStoreConfig struct {
	// Provider is "sqlite", "qdrant", or "chroma".
	Provider string `toml:"provider,omitempty"`

	// Target is the server URL for remote providers (chroma).
	Target string `toml:"target,omitempty"`

	// Path is the database file for the sqlite provider.
	Path string `toml:"path,omitempty"`

	// Host and Port address the qdrant provider.
	Host string `toml:"host,omitempty"`
	Port int    `toml:"port,omitempty"`

	Collection string `toml:"collection,omitempty"`
}

// KeywordIndexConfig holds sparse index settings.
type KeywordIndexConfig struct {
	// Provider is "inmemory" or "sqlite".
	Provider string `toml:"provider,omitempty"`

	// Path is the database file for the sqlite provider.
	Path string `toml:"path,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds settings for the enrichment model used by fact extraction,
// contextual prefixes, query rewriting, and session summaries.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// RerankConfig holds cross-encoder server settings.
type RerankConfig struct {
	Target string `toml:"target,omitempty"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// PipelineConfig is the retrieval pipeline tuning surface.
type PipelineConfig struct {
	UseHyde                bool    `toml:"use_hyde"`
	UseDecomposition       bool    `toml:"use_decomposition"`
	UseReranker            bool    `toml:"use_reranker"`
	UseMMR                 bool    `toml:"use_mmr"`
	UseRecontextualization bool    `toml:"use_recontextualization"`
	TopKCandidates         int     `toml:"top_k_candidates,omitempty"`
	TopKFinal              int     `toml:"top_k_final,omitempty"`
	RRFK                   int     `toml:"rrf_k,omitempty"`
	MMRLambda              float64 `toml:"mmr_lambda,omitempty"`
	MinRelevanceThreshold  float64 `toml:"min_relevance_threshold,omitempty"`
	RecencyDecayRate       float64 `toml:"recency_decay_rate,omitempty"`
}
