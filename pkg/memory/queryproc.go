package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/llm"
)

// ProcessedQuery holds every retrieval probe derived from a raw query.
// Nothing here is persisted.
type ProcessedQuery struct {
	Original     string
	Rewritten    string
	SubQueries   []string
	HydeDocument string

	// ShouldRetrieve is false when the adaptive gate declined; in that case
	// the remaining fields are untouched copies of the original.
	ShouldRetrieve bool
}

// Variants returns the deduplicated probe set fed to the hybrid retriever:
// rewritten query, sub-queries, and the HyDE document when present.
func (q ProcessedQuery) Variants() []string {
	seen := make(map[string]struct{})
	var variants []string

	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		variants = append(variants, s)
	}

	add(q.Rewritten)
	for _, sq := range q.SubQueries {
		add(sq)
	}
	add(q.HydeDocument)

	return variants
}

// ProcessOptions toggles the optional query processing stages.
type ProcessOptions struct {
	Recontextualize bool
	Hyde            bool
	Decompose       bool
}

// QueryProcessor turns raw queries into retrieval-optimized probe sets.
// Every model call degrades to the unmodified query on failure.
type QueryProcessor struct {
	call   llm.CallFunc
	logger *zap.Logger
}

// NewQueryProcessor creates a query processor backed by the given model.
func NewQueryProcessor(call llm.CallFunc, logger *zap.Logger) *QueryProcessor {
	return &QueryProcessor{
		call:   call,
		logger: logger,
	}
}

// Process runs the full query processing pipeline: adaptive gate, then
// conversational re-contextualization, then optional decomposition and HyDE.
func (p *QueryProcessor) Process(ctx context.Context, query, conversationContext string, opts ProcessOptions) ProcessedQuery {
	result := ProcessedQuery{
		Original:       query,
		Rewritten:      query,
		SubQueries:     []string{query},
		ShouldRetrieve: true,
	}

	if !ShouldRetrieve(query) {
		result.ShouldRetrieve = false
		return result
	}

	// No model means no rewriting; the gate decision above still stands.
	if p.call == nil {
		return result
	}

	if opts.Recontextualize {
		result.Rewritten = p.recontextualize(ctx, query, conversationContext)
	}

	if opts.Decompose {
		result.SubQueries = p.decompose(ctx, result.Rewritten)
	}

	if opts.Hyde {
		result.HydeDocument = p.hydeDocument(ctx, result.Rewritten, conversationContext)
	}

	return result
}

// ambiguousPronouns mark queries whose referents live in earlier turns.
var ambiguousPronouns = map[string]struct{}{
	"it": {}, "that": {}, "this": {}, "he": {}, "she": {},
	"they": {}, "them": {}, "there": {},
}

// recontextualize resolves pronouns and ellipsis against the recent
// conversation so the query is self-contained. Queries that are already long
// and pronoun-free skip the model call.
func (p *QueryProcessor) recontextualize(ctx context.Context, query, conversationContext string) string {
	if strings.TrimSpace(conversationContext) == "" {
		return query
	}

	words := strings.Fields(strings.ToLower(query))
	hasPronoun := false
	for _, w := range words {
		if _, ok := ambiguousPronouns[strings.Trim(w, ".,!?")]; ok {
			hasPronoun = true
			break
		}
	}
	if !hasPronoun && len(words) >= 6 {
		return query
	}

	prompt := fmt.Sprintf(`Rewrite this query by resolving any pronouns or ambiguous references using the conversation context.

Recent conversation:
%s

User's query: %q

Rewrite the query to be self-contained and specific. If the query is already clear, return it unchanged.
Return ONLY the rewritten query, nothing else.`, conversationContext, query)

	rewritten, err := p.call(ctx, prompt)
	if err != nil {
		p.logger.Warn("query recontextualization failed, using original",
			zap.Error(err),
		)
		return query
	}

	rewritten = strings.Trim(strings.TrimSpace(rewritten), `"'`)
	if rewritten == "" {
		return query
	}
	return rewritten
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// decompose breaks a compound query into at most four sub-queries. The
// original query always stays in the probe set.
func (p *QueryProcessor) decompose(ctx context.Context, query string) []string {
	prompt := fmt.Sprintf(`Break this query into 2-4 simple sub-queries for memory retrieval.
Query: %q

Return a JSON array of strings. Example: ["sub-query 1", "sub-query 2"]
If already simple, return just: [%q]
Return ONLY valid JSON.`, query, query)

	raw, err := p.call(ctx, prompt)
	if err != nil {
		p.logger.Warn("query decomposition failed, using original",
			zap.Error(err),
		)
		return []string{query}
	}

	match := jsonArrayPattern.FindString(raw)
	if match == "" {
		return []string{query}
	}

	var subQueries []string
	if err := json.Unmarshal([]byte(match), &subQueries); err != nil {
		p.logger.Warn("query decomposition returned invalid JSON, using original",
			zap.Error(err),
		)
		return []string{query}
	}

	hasOriginal := false
	for _, sq := range subQueries {
		if sq == query {
			hasOriginal = true
			break
		}
	}
	if !hasOriginal {
		subQueries = append([]string{query}, subQueries...)
	}

	if len(subQueries) > 4 {
		subQueries = subQueries[:4]
	}
	return subQueries
}

// hydeDocument synthesizes a hypothetical memory passage whose embedding
// serves as an extra dense search probe.
func (p *QueryProcessor) hydeDocument(ctx context.Context, query, conversationContext string) string {
	if conversationContext == "" {
		conversationContext = "general conversation"
	}

	prompt := fmt.Sprintf(`Generate a hypothetical conversation memory relevant to this query.

Query: %q
Context: %s

Write a realistic 2-3 sentence memory snippet. Return ONLY the snippet.`, query, conversationContext)

	doc, err := p.call(ctx, prompt)
	if err != nil {
		p.logger.Warn("hyde document generation failed, skipping",
			zap.Error(err),
		)
		return ""
	}

	return strings.TrimSpace(doc)
}
