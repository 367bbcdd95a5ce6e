package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/docchat/internal/proxy"
	"github.com/kalambet/docchat/internal/retrieval"
)

const defaultMaxContextTokens = 4000

// SystemPrompt instructs the model to stay within the supplied context.
const SystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"If the context doesn't contain relevant information, say so."

// Composer assembles answer prompts from retrieved chunks and the user's
// question. It produces a ChatRequest ready for the completion client.
type Composer struct {
	MaxContextTokens int
}

// New creates a Composer with the given token budget for injected context.
// If maxContextTokens <= 0, the default (4000) is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens}
}

// Compose builds a system message with the answering rules and a user
// message carrying the context and the question.
func (c *Composer) Compose(model, question string, chunks []retrieval.ContextChunk) proxy.ChatRequest {
	selected := c.SelectContext(chunks)
	texts := make([]string, len(selected))
	for i, ch := range selected {
		texts[i] = ch.Text
	}
	return proxy.ChatRequest{
		Model: model,
		Messages: []proxy.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(texts, "\n"), question)},
		},
	}
}

// SelectContext returns the chunks that fit the token budget, best score
// first. A chunk too large for the remaining budget is skipped so that a
// smaller, lower-ranked one may still fit.
func (c *Composer) SelectContext(chunks []retrieval.ContextChunk) []retrieval.ContextChunk {
	if len(chunks) == 0 {
		return nil
	}

	sorted := make([]retrieval.ContextChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	remaining := c.MaxContextTokens
	var selected []retrieval.ContextChunk
	for _, ch := range sorted {
		tokens := EstimateTokens(ch.Text)
		if tokens > remaining {
			continue
		}
		selected = append(selected, ch)
		remaining -= tokens
	}
	return selected
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
