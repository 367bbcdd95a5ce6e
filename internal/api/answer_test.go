package api

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kalambet/docchat/internal/composer"
	"github.com/kalambet/docchat/internal/proxy"
	"github.com/kalambet/docchat/internal/retrieval"
)

type recordingCompleter struct {
	got  proxy.ChatRequest
	text string
	err  error
}

func (r *recordingCompleter) Complete(_ context.Context, req proxy.ChatRequest) (string, error) {
	r.got = req
	return r.text, r.err
}

func TestLLMAnswerer_BuildsPrompt(t *testing.T) {
	c := &recordingCompleter{text: "Ferris."}
	a := NewLLMAnswerer(c, "openai/gpt-4o-mini")

	chunks := []retrieval.ContextChunk{{Text: "first passage", Score: 2}, {Text: "second passage", Score: 1}}
	got, err := a.Answer(context.Background(), "Who is the mascot?", chunks)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "Ferris." {
		t.Errorf("answer = %q", got)
	}

	if c.got.Model != "openai/gpt-4o-mini" {
		t.Errorf("model = %q", c.got.Model)
	}
	if len(c.got.Messages) != 2 {
		t.Fatalf("messages = %+v", c.got.Messages)
	}
	if c.got.Messages[0].Role != "system" || c.got.Messages[0].Content != composer.SystemPrompt {
		t.Errorf("system message = %+v", c.got.Messages[0])
	}
	wantUser := "Context:\nfirst passage\nsecond passage\n\nQuestion: Who is the mascot?"
	if c.got.Messages[1].Role != "user" || c.got.Messages[1].Content != wantUser {
		t.Errorf("user message = %q, want %q", c.got.Messages[1].Content, wantUser)
	}
	if c.got.Temperature == nil || *c.got.Temperature != 0.7 {
		t.Errorf("temperature = %v", c.got.Temperature)
	}
}

func TestLLMAnswerer_PropagatesError(t *testing.T) {
	sentinel := errors.New("rate limited")
	a := NewLLMAnswerer(&recordingCompleter{err: sentinel}, "m")
	if _, err := a.Answer(context.Background(), "q", nil); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want %v", err, sentinel)
	}
}

func TestExtractiveAnswerer(t *testing.T) {
	var a ExtractiveAnswerer

	got, err := a.Answer(context.Background(), "anything", nil)
	if err != nil || got != NoContextAnswer {
		t.Errorf("empty context = %q, %v", got, err)
	}

	got, _ = a.Answer(context.Background(), "q", []retrieval.ContextChunk{
		{Document: "a.txt", Text: "alpha"},
		{Document: "b.pdf", Text: "beta"},
	})
	if !strings.Contains(got, "[a.txt] alpha") || !strings.Contains(got, "[b.pdf] beta") {
		t.Errorf("answer = %q", got)
	}
	if strings.Index(got, "alpha") > strings.Index(got, "beta") {
		t.Error("passages out of relevance order")
	}
}
