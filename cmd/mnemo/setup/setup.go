// Package setup assembles the memory pipeline from configuration.
package setup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/config"
	embeddingutils "github.com/lyrebirdhq/mnemo/pkg/embeddings/utils"
	"github.com/lyrebirdhq/mnemo/pkg/eventstream"
	eventkafka "github.com/lyrebirdhq/mnemo/pkg/eventstream/kafka"
	"github.com/lyrebirdhq/mnemo/pkg/eventstream/nop"
	keywordutils "github.com/lyrebirdhq/mnemo/pkg/keyword/utils"
	"github.com/lyrebirdhq/mnemo/pkg/llm"
	"github.com/lyrebirdhq/mnemo/pkg/memory"
	"github.com/lyrebirdhq/mnemo/pkg/rerank"
	"github.com/lyrebirdhq/mnemo/pkg/rerank/tei"
	vectorutils "github.com/lyrebirdhq/mnemo/pkg/vector/utils"
)

// NewPipeline builds a memory pipeline and its collaborators from config.
// The returned cleanup closes everything the pipeline was given, in reverse
// construction order, and must be called exactly once.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*memory.Pipeline, func() error, error) {
	var closers []func() error
	cleanup := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	fail := func(err error) (*memory.Pipeline, func() error, error) {
		_ = cleanup()
		return nil, nil, err
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return fail(fmt.Errorf("creating embedder: %w", err))
	}
	closers = append(closers, embedder.Close)

	dense, err := vectorutils.NewDriver(ctx, &vectorutils.NewDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Path:         cfg.VectorStore.Path,
		Host:         cfg.VectorStore.Host,
		Port:         cfg.VectorStore.Port,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating dense index driver: %w", err))
	}
	closers = append(closers, dense.Close)

	sparse, err := keywordutils.NewDriver(&keywordutils.NewDriverOpts{
		ProviderType: cfg.KeywordIndex.Provider,
		Path:         cfg.KeywordIndex.Path,
		Logger:       logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating sparse index driver: %w", err))
	}
	closers = append(closers, sparse.Close)

	caller, err := llm.NewCaller(llm.CallerConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.Target,
	})
	if err != nil {
		return fail(fmt.Errorf("creating llm caller: %w", err))
	}

	var reranker rerank.Reranker
	if cfg.Pipeline.UseReranker && cfg.Rerank.Target != "" {
		reranker, err = tei.New(tei.Config{BaseURL: cfg.Rerank.Target}, logger)
		if err != nil {
			return fail(fmt.Errorf("creating reranker: %w", err))
		}
		closers = append(closers, reranker.Close)
	}

	var events eventstream.Publisher
	switch cfg.Events.Provider {
	case "kafka":
		events, err = eventkafka.NewPublisher(eventkafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("creating kafka publisher: %w", err))
		}
	default:
		events = nop.NewPublisher()
	}
	closers = append(closers, events.Close)

	pipeline, err := memory.New(memory.Config{
		Dense:    dense,
		Sparse:   sparse,
		Embedder: embedder,
		LLM:      caller,
		Reranker: reranker,
		Events:   events,
		Options: memory.Options{
			UseHyde:                cfg.Pipeline.UseHyde,
			UseDecomposition:       cfg.Pipeline.UseDecomposition,
			UseReranker:            cfg.Pipeline.UseReranker,
			UseMMR:                 cfg.Pipeline.UseMMR,
			UseRecontextualization: cfg.Pipeline.UseRecontextualization,
			TopKCandidates:         cfg.Pipeline.TopKCandidates,
			TopKFinal:              cfg.Pipeline.TopKFinal,
			RRFK:                   cfg.Pipeline.RRFK,
			MMRLambda:              cfg.Pipeline.MMRLambda,
			MinRelevanceThreshold:  cfg.Pipeline.MinRelevanceThreshold,
			RecencyDecayRate:       cfg.Pipeline.RecencyDecayRate,
		},
		Logger: logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating pipeline: %w", err))
	}
	closers = append(closers, pipeline.Close)

	return pipeline, cleanup, nil
}
