package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matheus3301/charly/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, email, password string) string {
	t.Helper()
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/login", "", backend.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp backend.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Token
}

func TestAuthenticatedMessageIsRecorded(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(nil,
		WithUser("Ada", "ada@example.com", "pw"),
		WithReply(func(q string, _ []backend.HistoryMessage) string { return "echo: " + q }),
		WithClock(func() time.Time { return fixed }),
	)
	tok := login(t, s, "ADA@example.com", "pw")

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chatbot/message", tok, backend.MessageRequest{Question: "ping"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp backend.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: ping", resp.Response)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, backend.ID("1"), resp.ConversationID)

	convs := s.Conversations("ada@example.com")
	require.Len(t, convs, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", convs[0].CreatedAt)
}

func TestAnonymousMessageIsNotStored(t *testing.T) {
	s := New(nil, WithUser("Ada", "ada@example.com", "pw"))

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chatbot/message", "", backend.MessageRequest{Question: "ping"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.Conversations("ada@example.com"))
}

func TestEmptyQuestionIsUnprocessable(t *testing.T) {
	s := New(nil)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chatbot/message", "", backend.MessageRequest{Question: "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFailNextIsConsumedInOrder(t *testing.T) {
	s := New(nil)
	s.FailNext(http.StatusInternalServerError, http.StatusNotFound)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chatbot/message", "", backend.MessageRequest{Question: "q"})
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{500, 404, 200}, codes)
	assert.Len(t, s.Requests(), 3)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := New(nil, WithUser("Ada", "ada@example.com", "pw"))
	tok := login(t, s, "ada@example.com", "pw")

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/chatbot/history", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryIsScopedToAccount(t *testing.T) {
	s := New(nil, WithUser("Ada", "ada@example.com", "pw"), WithUser("Bob", "bob@example.com", "pw"))
	s.Seed("ada@example.com", "q", "r")
	tok := login(t, s, "bob@example.com", "pw")

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/chatbot/history", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp backend.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Conversations)

	rec = doJSON(t, s.Handler(), http.MethodDelete, "/api/chatbot/conversations/1", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, s.Conversations("ada@example.com"), 1)
}
