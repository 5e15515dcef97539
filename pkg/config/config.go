package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Load reads config.toml from the given path. A missing file returns
// NewDefaultConfig() so callers always receive a fully-populated Config;
// fields set in the file override the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Save persists the configuration to the given path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if path == "" {
		return errors.New("cannot save to empty path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ParseTOML parses raw TOML bytes into a Config. Returns an error if the
// version field is present and not equal to CurrentV.
func ParseTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from
// NewDefaultConfig(). Pipeline booleans are left as parsed; false is a valid
// setting there, not an absence.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = defaults.VectorStore.Provider
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = defaults.VectorStore.Path
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = defaults.VectorStore.Collection
	}

	if cfg.KeywordIndex.Provider == "" {
		cfg.KeywordIndex.Provider = defaults.KeywordIndex.Provider
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = defaults.Embedding.Provider
	}
	if cfg.Embedding.Target == "" {
		cfg.Embedding.Target = defaults.Embedding.Target
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = defaults.Embedding.Dimensions
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaults.LLM.Provider
	}
	if cfg.LLM.Target == "" {
		cfg.LLM.Target = defaults.LLM.Target
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}

	if cfg.Events.Provider == "" {
		cfg.Events.Provider = defaults.Events.Provider
	}

	if cfg.Pipeline.TopKCandidates == 0 {
		cfg.Pipeline.TopKCandidates = defaults.Pipeline.TopKCandidates
	}
	if cfg.Pipeline.TopKFinal == 0 {
		cfg.Pipeline.TopKFinal = defaults.Pipeline.TopKFinal
	}
	if cfg.Pipeline.RRFK == 0 {
		cfg.Pipeline.RRFK = defaults.Pipeline.RRFK
	}
	if cfg.Pipeline.MMRLambda == 0 {
		cfg.Pipeline.MMRLambda = defaults.Pipeline.MMRLambda
	}
	if cfg.Pipeline.MinRelevanceThreshold == 0 {
		cfg.Pipeline.MinRelevanceThreshold = defaults.Pipeline.MinRelevanceThreshold
	}
	if cfg.Pipeline.RecencyDecayRate == 0 {
		cfg.Pipeline.RecencyDecayRate = defaults.Pipeline.RecencyDecayRate
	}
}
