package devserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/matheus3301/charly/internal/backend"
	"go.uber.org/zap"
)

type M = render.M

type ctxKey struct{}

func (s *Server) strapRouter() {
	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/chatbot/test", s.handleTest)

		r.Group(func(r chi.Router) {
			r.Use(s.optionalAuth)
			r.Post("/chatbot/message", s.handleMessage)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/chatbot/history", s.handleHistory)
			r.Delete("/chatbot/conversations/{id}", s.handleDelete)
			r.Patch("/chatbot/conversations/{id}/favorite", s.handleFavorite)
		})
	})
}

func apiFail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, M{"success": false, "message": msg})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(tok)
}

// optionalAuth resolves a bearer token when present; an unknown token is rejected.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearer(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}
		s.mu.Lock()
		email, ok := s.tokens[tok]
		s.mu.Unlock()
		if !ok {
			apiFail(w, r, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, email)))
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return s.optionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(ctxKey{}).(string); !ok {
			apiFail(w, r, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func emailFrom(r *http.Request) string {
	email, _ := r.Context().Value(ctxKey{}).(string)
	return email
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apiFail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || acc.password != req.Password {
		s.mu.Unlock()
		render.JSON(w, r, backend.LoginResponse{Success: false, Message: "Invalid credentials"})
		return
	}
	tok := s.issueToken(strings.ToLower(req.Email))
	s.mu.Unlock()

	s.logger.Info("login", zap.String("email", req.Email), zap.String("device", req.DeviceName))
	render.JSON(w, r, backend.LoginResponse{Success: true, Token: tok, User: acc.user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.tokens, bearer(r))
	s.mu.Unlock()
	render.JSON(w, r, M{"success": true})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok := s.available
	s.mu.Unlock()
	if !ok {
		apiFail(w, r, http.StatusServiceUnavailable, "maintenance")
		return
	}
	render.JSON(w, r, M{"success": true, "message": "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req backend.MessageRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apiFail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	if len(s.failures) > 0 {
		code := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		apiFail(w, r, code, http.StatusText(code))
		return
	}
	s.mu.Unlock()

	if strings.TrimSpace(req.Question) == "" {
		apiFail(w, r, http.StatusUnprocessableEntity, "The question field is required.")
		return
	}

	history := req.ConversationHistory
	if !req.UseContext {
		history = nil
	}
	answer := s.reply(req.Question, history)

	resp := backend.MessageResponse{
		Response:             answer,
		ContextUsed:          req.UseContext && len(history) > 0,
		ContextMessagesCount: len(history),
	}
	if email := emailFrom(r); email != "" {
		s.mu.Lock()
		c := s.storeConversation(email, req.Question, answer)
		s.mu.Unlock()
		resp.Authenticated = true
		resp.ConversationID = c.ID
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	convs := s.Conversations(emailFrom(r))
	if convs == nil {
		convs = []backend.Conversation{}
	}
	render.JSON(w, r, backend.HistoryResponse{Success: true, Conversations: convs})
}

// findLocked returns the index of conversation id for email, or -1.
func (s *Server) findLocked(email, id string) int {
	for i, c := range s.convs[email] {
		if string(c.ID) == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	email, id := emailFrom(r), chi.URLParam(r, "id")

	s.mu.Lock()
	i := s.findLocked(email, id)
	if i < 0 {
		s.mu.Unlock()
		apiFail(w, r, http.StatusNotFound, "Conversation not found.")
		return
	}
	s.convs[email] = append(s.convs[email][:i], s.convs[email][i+1:]...)
	s.mu.Unlock()

	render.JSON(w, r, M{"success": true})
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	email, id := emailFrom(r), chi.URLParam(r, "id")

	s.mu.Lock()
	i := s.findLocked(email, id)
	if i < 0 {
		s.mu.Unlock()
		apiFail(w, r, http.StatusNotFound, "Conversation not found.")
		return
	}
	c := &s.convs[email][i]
	c.IsFavorite = !c.IsFavorite
	fav := c.IsFavorite
	s.mu.Unlock()

	render.JSON(w, r, backend.FavoriteResponse{Success: true, IsFavorite: fav})
}
