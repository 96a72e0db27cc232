package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/devserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts ...devserver.Option) (*backend.Client, *devserver.Server) {
	t.Helper()
	dev := devserver.New(nil, opts...)
	ts := httptest.NewServer(dev.Handler())
	t.Cleanup(ts.Close)

	c := backend.New(backend.Config{
		BaseURL:    ts.URL + "/api/",
		DeviceName: "test-device",
		Timeout:    5 * time.Second,
	}, nil)
	return c, dev
}

func TestLoginAndHistory(t *testing.T) {
	ctx := context.Background()
	c, dev := newTestClient(t, devserver.WithUser("Ada", "ada@example.com", "secret"))

	resp, err := c.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ada", resp.User.Name)
	require.NotEmpty(t, resp.Token)
	assert.False(t, c.Authenticated(), "Login must not store the token by itself")

	c.SetToken(resp.Token)
	dev.Seed("ada@example.com", "What is Go?", "A language.")

	convs, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, backend.ID("1"), convs[0].ID)
	assert.Equal(t, "What is Go?", convs[0].Question)
}

func TestLoginInvalidCredentials(t *testing.T) {
	c, _ := newTestClient(t, devserver.WithUser("Ada", "ada@example.com", "secret"))

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
}

func TestSendMessageBody(t *testing.T) {
	c, dev := newTestClient(t)

	resp, err := c.SendMessage(context.Background(), backend.MessageRequest{
		Question:            "Bonjour",
		ConversationHistory: []backend.HistoryMessage{{Role: "user", Content: "hi"}},
		DeviceIdentifier:    "charly-1-abc",
		UseContext:          true,
		EnableWebSearch:     true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Response)
	assert.False(t, resp.Authenticated)
	assert.Equal(t, 1, resp.ContextMessagesCount)

	reqs := dev.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bonjour", reqs[0].Question)
	assert.Equal(t, "charly-1-abc", reqs[0].DeviceIdentifier)
	assert.True(t, reqs[0].EnableWebSearch)
}

func TestSendMessageStatusErrors(t *testing.T) {
	tests := []struct {
		code     int
		friendly string
		mood     string
		unauth   bool
	}{
		{http.StatusUnprocessableEntity, backend.MsgReformulate, backend.MoodConfused, false},
		{http.StatusInternalServerError, backend.MsgServerError, backend.MoodError, false},
		{http.StatusNotFound, backend.MsgUnavailable, backend.MoodError, false},
		{http.StatusUnauthorized, backend.MsgSessionExpired, backend.MoodConfused, true},
		{http.StatusForbidden, backend.MsgSessionExpired, backend.MoodConfused, true},
		{http.StatusTeapot, backend.MsgGeneric, backend.MoodError, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			c, dev := newTestClient(t)
			dev.FailNext(tt.code)

			_, err := c.SendMessage(context.Background(), backend.MessageRequest{Question: "hello"})
			require.Error(t, err)

			var se *backend.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.friendly, backend.FriendlyMessage(err))
			assert.Equal(t, tt.mood, backend.MoodFor(err))
			assert.Equal(t, tt.unauth, backend.IsUnauthorized(err))
		})
	}
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := backend.New(backend.Config{BaseURL: url, Timeout: time.Second}, nil)
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, backend.IsUnreachable(err))
	assert.Equal(t, backend.MsgUnreachable, backend.FriendlyMessage(err))
	assert.Equal(t, backend.MoodError, backend.MoodFor(err))
}

func TestDeleteAndFavorite(t *testing.T) {
	ctx := context.Background()
	c, dev := newTestClient(t, devserver.WithUser("Ada", "ada@example.com", "secret"))
	resp, err := c.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	c.SetToken(resp.Token)

	keep := dev.Seed("ada@example.com", "q1", "r1")
	drop := dev.Seed("ada@example.com", "q2", "r2")

	fav, err := c.ToggleFavorite(ctx, string(keep.ID))
	require.NoError(t, err)
	assert.True(t, fav)

	require.NoError(t, c.DeleteConversation(ctx, string(drop.ID)))
	convs := dev.Conversations("ada@example.com")
	require.Len(t, convs, 1)
	assert.Equal(t, keep.ID, convs[0].ID)
	assert.True(t, convs[0].IsFavorite)

	err = c.DeleteConversation(ctx, "999")
	var se *backend.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.History(context.Background())
	assert.True(t, backend.IsUnauthorized(err))

	c.SetToken("bogus")
	err = c.Logout(context.Background())
	assert.True(t, backend.IsUnauthorized(err))
}

func TestPing(t *testing.T) {
	c, dev := newTestClient(t)
	require.NoError(t, c.Ping(context.Background()))

	dev.SetAvailable(false)
	var se *backend.StatusError
	require.True(t, errors.As(c.Ping(context.Background()), &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	dev := devserver.New(nil)
	ts := httptest.NewServer(dev.Handler())
	defer ts.Close()

	c := backend.New(backend.Config{BaseURL: ts.URL + "/api", RatePerSecond: 0.001, Burst: 1}, nil)
	_, err := c.SendMessage(context.Background(), backend.MessageRequest{Question: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.SendMessage(ctx, backend.MessageRequest{Question: "second"})
	require.Error(t, err)
	assert.Len(t, dev.Requests(), 1)
}
