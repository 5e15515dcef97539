package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/embeddings"
	"github.com/lyrebirdhq/mnemo/pkg/eventstream"
	"github.com/lyrebirdhq/mnemo/pkg/keyword"
	"github.com/lyrebirdhq/mnemo/pkg/llm"
	"github.com/lyrebirdhq/mnemo/pkg/rerank"
	"github.com/lyrebirdhq/mnemo/pkg/vector"
)

// Options is the pipeline configuration surface. Disabling a stage makes it
// pass candidates through unchanged rather than removing it.
type Options struct {
	UseHyde                bool
	UseDecomposition       bool
	UseReranker            bool
	UseMMR                 bool
	UseRecontextualization bool

	TopKCandidates        int
	TopKFinal             int
	RRFK                  int
	MMRLambda             float64
	MinRelevanceThreshold float64
	RecencyDecayRate      float64

	// FlushMinTurns is the minimum session length that earns a summary
	// chunk on flush.
	FlushMinTurns int

	// QueueSize bounds the indexing job queue.
	QueueSize int
}

// DefaultOptions returns the standard pipeline tuning. HyDE and
// decomposition stay off; they add latency and only pay for themselves on
// compound queries.
func DefaultOptions() Options {
	return Options{
		UseHyde:                false,
		UseDecomposition:       false,
		UseReranker:            true,
		UseMMR:                 true,
		UseRecontextualization: true,
		TopKCandidates:         15,
		TopKFinal:              5,
		RRFK:                   DefaultRRFK,
		MMRLambda:              DefaultMMRLambda,
		MinRelevanceThreshold:  DefaultMinRelevance,
		RecencyDecayRate:       DefaultDecayRate,
		FlushMinTurns:          3,
		QueueSize:              64,
	}
}

func (o Options) withDefaults() Options {
	if o.TopKCandidates <= 0 {
		o.TopKCandidates = 15
	}
	if o.TopKFinal <= 0 {
		o.TopKFinal = 5
	}
	if o.RRFK <= 0 {
		o.RRFK = DefaultRRFK
	}
	if o.MMRLambda <= 0 {
		o.MMRLambda = DefaultMMRLambda
	}
	if o.MinRelevanceThreshold <= 0 {
		o.MinRelevanceThreshold = DefaultMinRelevance
	}
	if o.RecencyDecayRate <= 0 {
		o.RecencyDecayRate = DefaultDecayRate
	}
	if o.FlushMinTurns <= 0 {
		o.FlushMinTurns = 3
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	return o
}

// Config wires the pipeline's collaborators. Dense, Sparse, and Embedder are
// required; LLM, Reranker, and Events are optional and their stages degrade
// when absent.
type Config struct {
	Dense    vector.Driver
	Sparse   keyword.Driver
	Embedder embeddings.Embedder
	LLM      llm.CallFunc
	Reranker rerank.Reranker
	Events   eventstream.Publisher

	SessionID string
	Options   Options
	Logger    *zap.Logger
}

// Stats is a read-only diagnostic snapshot.
type Stats struct {
	TotalChunks  int       `json:"total_chunks"`
	KeywordDocs  int       `json:"keyword_docs"`
	SessionID    string    `json:"session_id"`
	SessionTurns int       `json:"session_turns"`
	LastFlush    time.Time `json:"last_flush,omitempty"`
}

type indexJob struct {
	turn          Turn
	recentContext string
}

// Pipeline is the memory engine facade: Remember on the write side, Recall
// on the read side, FlushSession at session boundaries.
type Pipeline struct {
	opts      Options
	indexer   *Indexer
	retriever *Retriever
	qp        *QueryProcessor
	reranker  rerank.Reranker
	dense     vector.Driver
	sparse    keyword.Driver
	logger    *zap.Logger

	mu            sync.Mutex
	sessionID     string
	sessionTurns  []Turn
	recentContext string
	lastFlush     time.Time

	jobs      chan indexJob
	workerWG  sync.WaitGroup
	closeOnce sync.Once

	now func() time.Time
}

// New creates a pipeline and starts its indexing worker. Call Close to stop
// it and drain pending work.
func New(c Config) (*Pipeline, error) {
	if c.Dense == nil {
		return nil, fmt.Errorf("dense index driver is required")
	}
	if c.Sparse == nil {
		return nil, fmt.Errorf("sparse index driver is required")
	}
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := c.Options.withDefaults()

	sessionID := c.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()[:8]
	}

	p := &Pipeline{
		opts: opts,
		indexer: NewIndexer(
			c.Dense, c.Sparse, c.Embedder, c.LLM, c.Events, logger,
		),
		retriever: NewRetriever(c.Dense, c.Sparse, c.Embedder, RetrieverConfig{
			RRFK:      opts.RRFK,
			DecayRate: opts.RecencyDecayRate,
		}, logger),
		qp:        NewQueryProcessor(c.LLM, logger),
		reranker:  c.Reranker,
		dense:     c.Dense,
		sparse:    c.Sparse,
		logger:    logger,
		sessionID: sessionID,
		jobs:      make(chan indexJob, opts.QueueSize),
		now:       time.Now,
	}

	// One worker preserves per-session indexing order, which the recency
	// invariants depend on.
	p.workerWG.Add(1)
	go p.indexWorker()

	logger.Info("memory pipeline ready",
		zap.String("session_id", sessionID),
		zap.Bool("reranker", opts.UseReranker && c.Reranker != nil),
		zap.Bool("mmr", opts.UseMMR),
	)

	return p, nil
}

// Remember records one completed conversation turn and queues it for
// indexing. It never blocks the dialogue loop: when the queue is full the
// turn is dropped from long-term memory with a warning.
func (p *Pipeline) Remember(speaker, text, emotion string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if emotion == "" {
		emotion = "neutral"
	}

	p.mu.Lock()
	turn := Turn{
		Speaker:   speaker,
		Text:      text,
		Emotion:   emotion,
		SessionID: p.sessionID,
		CreatedAt: p.now(),
	}
	p.sessionTurns = append(p.sessionTurns, turn)

	p.recentContext += "\n" + speaker + ": " + text
	lines := strings.Split(strings.TrimSpace(p.recentContext), "\n")
	if len(lines) > 6 {
		p.recentContext = strings.Join(lines[len(lines)-6:], "\n")
	}
	snapshot := p.recentContext
	p.mu.Unlock()

	select {
	case p.jobs <- indexJob{turn: turn, recentContext: snapshot}:
	default:
		p.logger.Warn("indexing queue full, dropping turn from long-term memory",
			zap.String("session_id", turn.SessionID),
		)
	}
}

func (p *Pipeline) indexWorker() {
	defer p.workerWG.Done()
	for job := range p.jobs {
		chunks, err := p.indexer.IndexTurn(context.Background(), job.turn, job.recentContext)
		if err != nil {
			p.logger.Warn("turn indexing failed",
				zap.String("session_id", job.turn.SessionID),
				zap.Error(err),
			)
			continue
		}
		p.logger.Debug("indexed turn",
			zap.String("session_id", job.turn.SessionID),
			zap.Int("chunks", len(chunks)),
		)
	}
}

// Recall runs the full read pipeline for one user message and returns the
// assembled memory context, or an empty string when the gate declines,
// nothing relevant survives filtering, or retrieval fails. It never returns
// an error to the dialogue loop; failures degrade to no memory context.
func (p *Pipeline) Recall(ctx context.Context, query, conversationContext string) string {
	if conversationContext == "" {
		p.mu.Lock()
		conversationContext = p.recentContext
		p.mu.Unlock()
	}

	processed := p.qp.Process(ctx, query, conversationContext, ProcessOptions{
		Recontextualize: p.opts.UseRecontextualization,
		Hyde:            p.opts.UseHyde,
		Decompose:       p.opts.UseDecomposition,
	})
	if !processed.ShouldRetrieve {
		p.logger.Debug("gate declined retrieval",
			zap.String("query", query),
		)
		return ""
	}

	candidates, err := p.retriever.Retrieve(ctx, processed.Variants(), p.opts.TopKCandidates)
	if err != nil {
		p.logger.Warn("retrieval failed, returning empty context",
			zap.Error(err),
		)
		return ""
	}
	if len(candidates) == 0 {
		return ""
	}

	if p.opts.UseReranker && p.reranker != nil && len(candidates) > p.opts.TopKFinal {
		// Keep a small buffer past topK so MMR has room to diversify.
		candidates = applyRerank(ctx, p.reranker, processed.Rewritten, candidates,
			p.opts.TopKFinal+2, p.opts.MinRelevanceThreshold, p.logger)
	}

	if p.opts.UseMMR && len(candidates) > p.opts.TopKFinal {
		candidates = p.retriever.MaxMarginalRelevance(ctx, candidates, p.opts.MMRLambda, p.opts.TopKFinal)
	} else if len(candidates) > p.opts.TopKFinal {
		candidates = candidates[:p.opts.TopKFinal]
	}

	return Assemble(candidates, p.now())
}

// FlushSession closes the current session: sessions with enough turns get a
// summary chunk, the turn buffer and running context reset, and the next
// turn starts a fresh session.
func (p *Pipeline) FlushSession(ctx context.Context) error {
	p.mu.Lock()
	turns := p.sessionTurns
	p.sessionTurns = nil
	p.recentContext = ""
	p.sessionID = uuid.NewString()[:8]
	p.lastFlush = p.now()
	p.mu.Unlock()

	if len(turns) < p.opts.FlushMinTurns {
		p.logger.Debug("session too short for summary",
			zap.Int("turns", len(turns)),
		)
		return nil
	}

	chunk, err := p.indexer.IndexSessionSummary(ctx, turns)
	if err != nil {
		return fmt.Errorf("indexing session summary: %w", err)
	}
	if chunk != nil {
		p.logger.Info("session summary indexed",
			zap.String("chunk_id", chunk.ID),
			zap.Int("turns", len(turns)),
		)
	}
	return nil
}

// Stats returns index sizes and session state.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	total, err := p.dense.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting dense index: %w", err)
	}
	keywordDocs, err := p.sparse.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting sparse index: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		TotalChunks:  total,
		KeywordDocs:  keywordDocs,
		SessionID:    p.sessionID,
		SessionTurns: len(p.sessionTurns),
		LastFlush:    p.lastFlush,
	}, nil
}

// Close stops the indexing worker after draining queued turns. It does not
// close the injected drivers; their owner does.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.workerWG.Wait()
	return nil
}
