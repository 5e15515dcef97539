package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeChunksIndexed is emitted after a conversation turn's chunks
	// are written to both indexes.
	EventTypeChunksIndexed = "mnemo.chunks.indexed"
)

// ChunksIndexedEvent is a transport-neutral event payload for an indexed turn.
type ChunksIndexedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Turn          TurnMeta     `json:"turn"`
	Chunks        []ChunkMeta  `json:"chunks"`
}

// EventSource identifies where the indexed turn originated.
type EventSource struct {
	Project  string `json:"project,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// TurnMeta captures the conversation turn the chunks were derived from.
type TurnMeta struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkMeta describes one indexed chunk.
type ChunkMeta struct {
	ChunkID string `json:"chunk_id"`
	Kind    string `json:"kind"`
}
