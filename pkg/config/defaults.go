package config

const (
	defaultVectorProvider   = "sqlite"
	defaultVectorPath       = "./mnemo.db"
	defaultVectorCollection = "mnemo_chunks"

	defaultKeywordProvider = "inmemory"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMTarget   = "http://localhost:11434"
	defaultLLMModel    = "llama3.2"

	defaultEventsProvider = "nop"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Path:       defaultVectorPath,
			Collection: defaultVectorCollection,
		},
		KeywordIndex: KeywordIndexConfig{
			Provider: defaultKeywordProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultLLMTarget,
			Model:    defaultLLMModel,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
		},
		Pipeline: PipelineConfig{
			UseHyde:                false,
			UseDecomposition:       false,
			UseReranker:            true,
			UseMMR:                 true,
			UseRecontextualization: true,
			TopKCandidates:         15,
			TopKFinal:              5,
			RRFK:                   60,
			MMRLambda:              0.7,
			MinRelevanceThreshold:  0.15,
			RecencyDecayRate:       0.05,
		},
	}
}
