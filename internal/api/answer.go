package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/docchat/internal/composer"
	"github.com/kalambet/docchat/internal/proxy"
	"github.com/kalambet/docchat/internal/retrieval"
)

// NoContextAnswer is returned by the extractive answerer when nothing matched.
const NoContextAnswer = "I couldn't find any relevant information in the ingested documents."

// Answerer turns a question and its retrieved context into a reply.
type Answerer interface {
	Answer(ctx context.Context, question string, chunks []retrieval.ContextChunk) (string, error)
}

// Completer is the completion call an LLMAnswerer needs.
type Completer interface {
	Complete(ctx context.Context, req proxy.ChatRequest) (string, error)
}

// LLMAnswerer asks a chat completion model to answer from the context.
type LLMAnswerer struct {
	client   Completer
	composer *composer.Composer
	model    string
}

func NewLLMAnswerer(client Completer, model string) *LLMAnswerer {
	return &LLMAnswerer{client: client, composer: composer.New(0), model: model}
}

func (a *LLMAnswerer) Answer(ctx context.Context, question string, chunks []retrieval.ContextChunk) (string, error) {
	req := a.composer.Compose(a.model, question, chunks)
	temperature := 0.7
	req.Temperature = &temperature
	return a.client.Complete(ctx, req)
}

// ExtractiveAnswerer replies with the retrieved passages themselves. It is
// used when no completion API key is configured.
type ExtractiveAnswerer struct{}

func (ExtractiveAnswerer) Answer(_ context.Context, _ string, chunks []retrieval.ContextChunk) (string, error) {
	if len(chunks) == 0 {
		return NoContextAnswer, nil
	}
	var b strings.Builder
	b.WriteString("Here is what I found in your documents:")
	for _, c := range chunks {
		fmt.Fprintf(&b, "\n\n[%s] %s", c.Document, c.Text)
	}
	return b.String(), nil
}
