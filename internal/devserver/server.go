// Package devserver is an in-memory stand-in for the assistant backend API,
// used by tests and by `charlyctl devserver` for offline development.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/matheus3301/charly/internal/backend"
	"go.uber.org/zap"
)

// ReplyFunc produces the assistant answer for a question.
type ReplyFunc func(question string, history []backend.HistoryMessage) string

type account struct {
	user     backend.User
	password string
}

// Server implements the backend HTTP API in memory.
type Server struct {
	mu        sync.Mutex
	mux       *chi.Mux
	logger    *zap.Logger
	reply     ReplyFunc
	accounts  map[string]*account
	tokens    map[string]string
	convs     map[string][]backend.Conversation
	nextUser  int64
	nextConv  int64
	failures  []int
	requests  []backend.MessageRequest
	now       func() time.Time
	available bool
}

// Option configures a Server.
type Option func(*Server)

// WithUser registers an account.
func WithUser(name, email, password string) Option {
	return func(s *Server) { s.addUser(name, email, password) }
}

// WithReply overrides the canned reply generator.
func WithReply(f ReplyFunc) Option {
	return func(s *Server) { s.reply = f }
}

// WithClock overrides the time source for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// DefaultReply answers every question with a short suggestion.
func DefaultReply(question string, _ []backend.HistoryMessage) string {
	return fmt.Sprintf("Here is a suggestion about %q: start small and iterate.", question)
}

// New creates a dev server.
func New(logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mux:       chi.NewMux(),
		logger:    logger,
		reply:     DefaultReply,
		accounts:  make(map[string]*account),
		tokens:    make(map[string]string),
		convs:     make(map[string][]backend.Conversation),
		now:       time.Now,
		available: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.Use(middleware.Recoverer)
	s.strapRouter()
	return s
}

// Handler returns the HTTP handler serving the API under /api.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// AddUser registers an account and returns it.
func (s *Server) AddUser(name, email, password string) backend.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUser(name, email, password)
}

func (s *Server) addUser(name, email, password string) backend.User {
	s.nextUser++
	u := backend.User{ID: s.nextUser, Name: name, Email: email}
	s.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	return u
}

// FailNext makes the next message requests fail with the given status codes, in order.
func (s *Server) FailNext(codes ...int) {
	s.mu.Lock()
	s.failures = append(s.failures, codes...)
	s.mu.Unlock()
}

// SetAvailable toggles the /chatbot/test health endpoint.
func (s *Server) SetAvailable(ok bool) {
	s.mu.Lock()
	s.available = ok
	s.mu.Unlock()
}

// Requests returns the message requests received so far.
func (s *Server) Requests() []backend.MessageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.MessageRequest(nil), s.requests...)
}

// Seed stores a server-side conversation for the account and returns it with its id.
func (s *Server) Seed(email, question, response string) backend.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeConversation(strings.ToLower(email), question, response)
}

// Conversations returns the server-side conversations of an account.
func (s *Server) Conversations(email string) []backend.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Conversation(nil), s.convs[strings.ToLower(email)]...)
}

func (s *Server) storeConversation(email, question, response string) backend.Conversation {
	s.nextConv++
	c := backend.Conversation{
		ID:        backend.ID(fmt.Sprint(s.nextConv)),
		Question:  question,
		Response:  response,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	c.UpdatedAt = c.CreatedAt
	s.convs[email] = append(s.convs[email], c)
	return c
}

func (s *Server) issueToken(email string) string {
	tok := uuid.NewString()
	s.tokens[tok] = email
	return tok
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devserver listening", zap.String("addr", addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
