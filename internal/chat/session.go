// Package chat holds a conversation transcript and enforces a single
// outstanding request per session.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// FallbackText is appended as the bot's reply when the backend call fails.
const FallbackText = "Sorry, there was an error processing your message. Please try again."

var (
	// ErrEmptyMessage rejects empty or whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrPending rejects input while a previous message awaits its reply.
	ErrPending = errors.New("a reply is still pending")
)

// Backend sends one user turn and returns the reply text.
type Backend interface {
	Chat(ctx context.Context, message string) (string, error)
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one transcript line. IDs increase strictly within a session.
type Message struct {
	ID        uint64
	Text      string
	Sender    Sender
	CreatedAt time.Time
}

// Session owns the transcript, the input buffer and the pending flag.
type Session struct {
	backend  Backend
	logger   *slog.Logger
	fallback string
	now      func() time.Time

	mu       sync.Mutex
	input    string
	pending  bool
	lastID   uint64
	messages []Message
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithFallbackText overrides the apology appended on failure.
func WithFallbackText(text string) Option {
	return func(s *Session) { s.fallback = text }
}

func NewSession(b Backend, opts ...Option) *Session {
	s := &Session{
		backend:  b,
		logger:   slog.Default(),
		fallback: FallbackText,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Reply settles when the bot message for one send has been appended.
type Reply struct {
	done chan struct{}
	msg  Message
}

func (r *Reply) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the bot message is in the transcript and returns it.
func (r *Reply) Wait() Message {
	<-r.done
	return r.msg
}

// SetInput replaces the input buffer.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Input returns the current input buffer.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Submit sends the input buffer.
func (s *Session) Submit(ctx context.Context) (*Reply, error) {
	return s.SendMessage(ctx, s.Input())
}

// SendMessage appends text as a user message, clears the input buffer and
// asks the backend for a reply in the background. Rejected sends change
// nothing and issue no request. Backend failures never surface as errors:
// they become a bot message carrying the fallback text.
func (s *Session) SendMessage(ctx context.Context, text string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrPending
	}
	s.appendLocked(text, SenderUser)
	s.input = ""
	s.pending = true
	s.mu.Unlock()

	r := &Reply{done: make(chan struct{})}
	go s.exchange(ctx, text, r)
	return r, nil
}

func (s *Session) exchange(ctx context.Context, text string, r *Reply) {
	defer close(r.done)
	defer s.release()

	reply, err := s.backend.Chat(ctx, text)
	if err != nil {
		s.logger.Warn("chat request failed", "error", err)
		reply = s.fallback
	}

	s.mu.Lock()
	r.msg = s.appendLocked(reply, SenderBot)
	s.mu.Unlock()
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
}

func (s *Session) appendLocked(text string, from Sender) Message {
	s.lastID++
	m := Message{ID: s.lastID, Text: text, Sender: from, CreatedAt: s.now()}
	s.messages = append(s.messages, m)
	return m
}

// Pending reports whether a reply is outstanding.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Transcript returns a copy of the messages in insertion order.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}
