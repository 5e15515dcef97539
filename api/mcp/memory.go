package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lyrebirdhq/mnemo/pkg/memory"
)

var (
	recallToolName    = "memory_recall"
	recallDescription = "Retrieve relevant memories for a user message. Runs the full retrieval pipeline (gating, query rewriting, hybrid search, reranking, diversity selection) and returns a formatted memory context block, or an empty string when nothing relevant is stored."

	rememberToolName    = "memory_remember"
	rememberDescription = "Store a completed conversation turn in long-term memory. Call once per turn, for both the user message and the assistant response."

	statsToolName    = "memory_stats"
	statsDescription = "Return memory index statistics: chunk counts, the active session, and the last flush time."
)

// RecallInput represents the input arguments for the memory_recall tool.
type RecallInput struct {
	Query   string `json:"query" jsonschema:"the user message to retrieve memories for"`
	Context string `json:"context,omitempty" jsonschema:"recent conversation lines used to resolve pronouns, one speaker-tagged line per row"`
}

// RecallOutput represents the structured output of a recall.
type RecallOutput struct {
	Context string `json:"context"`
}

func (s *Server) handleRecall(ctx context.Context, _ *mcp.CallToolRequest, input RecallInput) (*mcp.CallToolResult, RecallOutput, error) {
	if input.Query == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "query is required"},
			},
		}, RecallOutput{}, nil
	}

	output := RecallOutput{
		Context: s.config.Pipeline.Recall(ctx, input.Query, input.Context),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: output.Context},
		},
	}, output, nil
}

// RememberInput represents the input arguments for the memory_remember tool.
type RememberInput struct {
	Speaker string `json:"speaker" jsonschema:"who produced the turn, e.g. user or assistant"`
	Text    string `json:"text" jsonschema:"the turn's text"`
	Emotion string `json:"emotion,omitempty" jsonschema:"optional emotional state tag for the turn"`
}

// RememberOutput represents the structured output of a remember call.
type RememberOutput struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) handleRemember(_ context.Context, _ *mcp.CallToolRequest, input RememberInput) (*mcp.CallToolResult, RememberOutput, error) {
	if input.Speaker == "" || input.Text == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "speaker and text are required"},
			},
		}, RememberOutput{}, nil
	}

	s.config.Pipeline.Remember(input.Speaker, input.Text, input.Emotion)

	output := RememberOutput{Accepted: true}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "stored"},
		},
	}, output, nil
}

// StatsInput represents the (empty) input for the memory_stats tool.
type StatsInput struct{}

// StatsOutput represents the structured output of a stats call.
type StatsOutput struct {
	Stats memory.Stats `json:"stats"`
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.config.Pipeline.Stats(ctx)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Stats failed: %v", err)},
			},
		}, StatsOutput{}, nil
	}

	output := StatsOutput{Stats: stats}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, StatsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
