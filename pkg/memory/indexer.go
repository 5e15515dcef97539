package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/embeddings"
	"github.com/lyrebirdhq/mnemo/pkg/eventstream"
	"github.com/lyrebirdhq/mnemo/pkg/keyword"
	"github.com/lyrebirdhq/mnemo/pkg/llm"
	"github.com/lyrebirdhq/mnemo/pkg/utils"
	"github.com/lyrebirdhq/mnemo/pkg/vector"
)

// Indexer transforms conversation turns into multi-representation chunks and
// writes them to both indexes. Verbatim indexing is the success floor; fact
// and contextual enrichment degrade silently when the model is unavailable.
type Indexer struct {
	dense    vector.Driver
	sparse   keyword.Driver
	embedder embeddings.Embedder
	call     llm.CallFunc
	events   eventstream.Publisher
	logger   *zap.Logger
}

// NewIndexer creates an indexer. call may be nil, which disables fact
// extraction and contextual prefixes. events may be nil.
func NewIndexer(dense vector.Driver, sparse keyword.Driver, embedder embeddings.Embedder, call llm.CallFunc, events eventstream.Publisher, logger *zap.Logger) *Indexer {
	return &Indexer{
		dense:    dense,
		sparse:   sparse,
		embedder: embedder,
		call:     call,
		events:   events,
		logger:   logger,
	}
}

// extraction is the structured result of the fact-extraction model call.
type extraction struct {
	Facts           []string `json:"facts"`
	Entities        []string `json:"entities"`
	Summary         string   `json:"summary"`
	EmotionDetected string   `json:"emotion_detected"`
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// IndexTurn converts one conversation turn into chunks and writes each to
// both indexes. Returned chunks are the ones that landed in both.
func (ix *Indexer) IndexTurn(ctx context.Context, turn Turn, recentContext string) ([]Chunk, error) {
	baseID := uuid.NewString()[:8]

	// Fact extraction and the contextual prefix are independent model
	// calls; run them concurrently.
	var (
		wg        sync.WaitGroup
		extracted extraction
		prefix    string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		extracted = ix.extractFacts(ctx, turn)
	}()
	go func() {
		defer wg.Done()
		prefix = ix.contextPrefix(ctx, turn, recentContext)
	}()
	wg.Wait()

	chunks := []Chunk{{
		ID:        baseID + "_verbatim",
		SessionID: turn.SessionID,
		Speaker:   turn.Speaker,
		Kind:      KindVerbatim,
		Emotion:   turn.Emotion,
		Text:      turn.Text,
		CreatedAt: turn.CreatedAt,
	}}

	if prefix != "" {
		for i, window := range splitText(turn.Text) {
			chunks = append(chunks, Chunk{
				ID:        fmt.Sprintf("%s_ctx%d", baseID, i),
				SessionID: turn.SessionID,
				Speaker:   turn.Speaker,
				Kind:      KindContextual,
				Emotion:   turn.Emotion,
				Text:      prefix + "\n" + window,
				RawText:   window,
				CreatedAt: turn.CreatedAt,
			})
		}
	}

	if len(extracted.Facts) > 0 {
		chunks = append(chunks, Chunk{
			ID:        baseID + "_facts",
			SessionID: turn.SessionID,
			Speaker:   turn.Speaker,
			Kind:      KindFact,
			Emotion:   turn.Emotion,
			Text:      fmt.Sprintf("Facts from %s: %s", turn.Speaker, strings.Join(extracted.Facts, " | ")),
			CreatedAt: turn.CreatedAt,
		})
	}

	if extracted.Summary != "" {
		emotion := extracted.EmotionDetected
		if emotion == "" {
			emotion = turn.Emotion
		}
		chunks = append(chunks, Chunk{
			ID:        baseID + "_summary",
			SessionID: turn.SessionID,
			Speaker:   turn.Speaker,
			Kind:      KindFact,
			Emotion:   emotion,
			Text:      extracted.Summary,
			CreatedAt: turn.CreatedAt,
		})
	}

	indexed, err := ix.write(ctx, chunks)
	if err != nil {
		return nil, err
	}

	ix.publish(ctx, turn, indexed)
	return indexed, nil
}

// IndexSessionSummary condenses a session's turns into one summary chunk and
// indexes it. Returns nil without error when summarization is unavailable.
func (ix *Indexer) IndexSessionSummary(ctx context.Context, turns []Turn) (*Chunk, error) {
	if len(turns) == 0 || ix.call == nil {
		return nil, nil
	}

	summary := ix.summarizeSession(ctx, turns)
	if summary == "" {
		return nil, nil
	}

	last := turns[len(turns)-1]
	sessionID := turns[0].SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()[:8]
	}

	chunk := Chunk{
		ID:        fmt.Sprintf("session_%s_summary", sessionID),
		SessionID: sessionID,
		Kind:      KindSummary,
		Text:      summary,
		CreatedAt: last.CreatedAt,
	}

	indexed, err := ix.write(ctx, []Chunk{chunk})
	if err != nil {
		return nil, err
	}
	if len(indexed) == 0 {
		return nil, nil
	}

	ix.publish(ctx, last, indexed)
	return &indexed[0], nil
}

// write embeds chunks and stores each in both indexes. A chunk is indexed
// only when both writes succeed; a failed sparse write rolls the dense write
// back so neither index references a chunk the other lacks.
func (ix *Indexer) write(ctx context.Context, chunks []Chunk) ([]Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	var (
		indexed []Chunk
		lastErr error
	)
	for i, c := range chunks {
		c.Embedding = embs[i]

		if err := ix.dense.Add(ctx, []vector.Document{c.toDocument()}); err != nil {
			ix.logger.Warn("dense index write failed, skipping chunk",
				zap.String("chunk_id", c.ID),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		if err := ix.sparse.Add(ctx, []keyword.Document{{ID: c.ID, Text: c.Text}}); err != nil {
			ix.logger.Warn("sparse index write failed, rolling back dense write",
				zap.String("chunk_id", c.ID),
				zap.Error(err),
			)
			if delErr := ix.dense.Delete(ctx, []string{c.ID}); delErr != nil {
				ix.logger.Error("dense rollback failed, chunk orphaned in dense index",
					zap.String("chunk_id", c.ID),
					zap.Error(delErr),
				)
			}
			lastErr = err
			continue
		}

		ix.logger.Debug("chunk indexed",
			zap.String("chunk_id", c.ID),
			zap.String("kind", string(c.Kind)),
			zap.String("text", utils.Truncate(c.Text, 80)),
		)
		indexed = append(indexed, c)
	}

	if len(indexed) == 0 && lastErr != nil {
		return nil, fmt.Errorf("indexing chunks: %w", lastErr)
	}

	return indexed, nil
}

// publish emits a chunks-indexed event. Publish failures are logged only.
func (ix *Indexer) publish(ctx context.Context, turn Turn, chunks []Chunk) {
	if ix.events == nil || len(chunks) == 0 {
		return
	}

	event := &eventstream.ChunksIndexedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeChunksIndexed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Turn: eventstream.TurnMeta{
			SessionID: turn.SessionID,
			CreatedAt: turn.CreatedAt,
		},
	}
	for _, c := range chunks {
		event.Chunks = append(event.Chunks, eventstream.ChunkMeta{
			ChunkID: c.ID,
			Kind:    string(c.Kind),
		})
	}

	if err := ix.events.PublishChunksIndexed(ctx, event); err != nil {
		ix.logger.Warn("failed to publish index event",
			zap.Error(err),
		)
	}
}

// extractFacts asks the model for facts, entities, a one-line summary, and
// the detected emotion. Failures return an empty extraction.
func (ix *Indexer) extractFacts(ctx context.Context, turn Turn) extraction {
	if ix.call == nil {
		return extraction{}
	}

	prompt := fmt.Sprintf(`Analyze this conversation turn from %q and extract:
1. Key facts/statements (list of short strings)
2. Named entities (people, places, things mentioned)
3. One-sentence summary
4. Primary emotion detected

Text: %q

Return ONLY valid JSON:
{
  "facts": ["fact1", "fact2"],
  "entities": ["entity1"],
  "summary": "one sentence summary",
  "emotion_detected": "emotion"
}`, turn.Speaker, turn.Text)

	raw, err := ix.call(ctx, prompt)
	if err != nil {
		ix.logger.Warn("fact extraction failed, indexing verbatim only",
			zap.Error(err),
		)
		return extraction{}
	}

	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return extraction{}
	}

	var ex extraction
	if err := json.Unmarshal([]byte(match), &ex); err != nil {
		ix.logger.Warn("fact extraction returned invalid JSON",
			zap.Error(err),
		)
		return extraction{}
	}
	return ex
}

// contextPrefix generates the 1-2 sentence prefix that situates a chunk in
// its conversation. First turns get a static prefix without a model call.
func (ix *Indexer) contextPrefix(ctx context.Context, turn Turn, recentContext string) string {
	if ix.call == nil {
		return ""
	}

	if strings.TrimSpace(recentContext) == "" {
		return fmt.Sprintf("[%s speaking at the start of the conversation]", turn.Speaker)
	}

	excerpt := turn.Text
	if len(excerpt) > 300 {
		excerpt = excerpt[:300]
	}

	prompt := fmt.Sprintf(`You are creating a brief context prefix for a conversation chunk to help with memory retrieval.

Recent conversation:
%s

Current chunk from %s: %q

Write a concise 1-2 sentence prefix that situates this chunk in context. Include:
- Who is speaking and the conversation topic
- Any emotional context or key references

Return ONLY the prefix text, wrapped in square brackets. Example:
[User discussing job interview anxiety after mentioning they have one tomorrow. Emotional state: stressed.]`, recentContext, turn.Speaker, excerpt)

	prefix, err := ix.call(ctx, prompt)
	if err != nil {
		ix.logger.Warn("context prefix generation failed, using speaker tag",
			zap.Error(err),
		)
		return fmt.Sprintf("[%s speaking]", turn.Speaker)
	}

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fmt.Sprintf("[%s speaking]", turn.Speaker)
	}
	if !strings.HasPrefix(prefix, "[") {
		prefix = "[" + prefix
	}
	if !strings.HasSuffix(prefix, "]") {
		prefix += "]"
	}
	return prefix
}

// summarizeSession condenses the last turns of a session into a short
// paragraph. Failures return empty.
func (ix *Indexer) summarizeSession(ctx context.Context, turns []Turn) string {
	recent := turns
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}

	var sb strings.Builder
	for _, t := range recent {
		sb.WriteString(strings.ToUpper(t.Speaker))
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Summarize this conversation between a user and an AI companion in 3-4 sentences.
Focus on: topics discussed, emotional arc, key facts about the user revealed.

Conversation:
%s
Return ONLY the summary paragraph.`, sb.String())

	summary, err := ix.call(ctx, prompt)
	if err != nil {
		ix.logger.Warn("session summarization failed, flushing without summary",
			zap.Error(err),
		)
		return ""
	}

	return strings.TrimSpace(summary)
}
