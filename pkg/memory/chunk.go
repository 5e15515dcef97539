// Package memory implements the conversational memory pipeline: multi
// representation indexing on the write side and gated hybrid retrieval with
// reranking and diversity selection on the read side.
package memory

import (
	"time"

	"github.com/lyrebirdhq/mnemo/pkg/vector"
)

// Kind discriminates the representations a conversation turn is stored as.
type Kind string

const (
	// KindVerbatim is the turn's raw text.
	KindVerbatim Kind = "verbatim"

	// KindFact holds facts extracted from a turn, or its one-line summary.
	KindFact Kind = "fact"

	// KindContextual is turn text prefixed with a generated situating
	// context so the chunk stays meaningful retrieved in isolation.
	KindContextual Kind = "contextual"

	// KindSummary is an end-of-session digest.
	KindSummary Kind = "summary"
)

// Turn is a single conversation turn ready for indexing.
type Turn struct {
	Speaker   string
	Text      string
	Emotion   string
	SessionID string
	CreatedAt time.Time
}

// Chunk is the atomic retrievable unit. Chunks are immutable once indexed;
// corrections are new chunks, never edits.
type Chunk struct {
	ID        string
	SessionID string
	Speaker   string
	Kind      Kind
	Emotion   string

	// Text is the indexed text. For contextual chunks it includes the
	// generated prefix.
	Text string

	// RawText is the display text for contextual chunks, without the
	// prefix. Empty for other kinds.
	RawText string

	CreatedAt time.Time
	Embedding []float32
}

// DisplayText returns the text shown to the downstream prompt.
func (c Chunk) DisplayText() string {
	if c.RawText != "" {
		return c.RawText
	}
	return c.Text
}

// Metadata keys used in the dense index, which owns chunk content.
const (
	metaKind      = "kind"
	metaSpeaker   = "speaker"
	metaSessionID = "session_id"
	metaEmotion   = "emotion"
	metaRawText   = "raw_text"
	metaCreatedAt = "created_at"
)

// toDocument converts a chunk into its dense index representation.
func (c Chunk) toDocument() vector.Document {
	meta := map[string]string{
		metaKind:      string(c.Kind),
		metaSessionID: c.SessionID,
		metaCreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if c.Speaker != "" {
		meta[metaSpeaker] = c.Speaker
	}
	if c.Emotion != "" {
		meta[metaEmotion] = c.Emotion
	}
	if c.RawText != "" {
		meta[metaRawText] = c.RawText
	}

	return vector.Document{
		ID:        c.ID,
		Text:      c.Text,
		Embedding: c.Embedding,
		Metadata:  meta,
	}
}

// chunkFromDocument rebuilds a chunk from its dense index representation.
// Unknown or missing metadata degrades to zero values, never errors.
func chunkFromDocument(doc vector.Document) Chunk {
	c := Chunk{
		ID:        doc.ID,
		Text:      doc.Text,
		Embedding: doc.Embedding,
	}

	if doc.Metadata == nil {
		c.Kind = KindContextual
		return c
	}

	c.Kind = Kind(doc.Metadata[metaKind])
	if c.Kind == "" {
		c.Kind = KindContextual
	}
	c.Speaker = doc.Metadata[metaSpeaker]
	c.SessionID = doc.Metadata[metaSessionID]
	c.Emotion = doc.Metadata[metaEmotion]
	c.RawText = doc.Metadata[metaRawText]

	if ts := doc.Metadata[metaCreatedAt]; ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			c.CreatedAt = parsed
		}
	}

	return c
}
