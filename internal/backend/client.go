// Package backend is the HTTP JSON client for the assistant's server API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures a Client.
type Config struct {
	BaseURL       string
	DeviceName    string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client talks to the assistant backend. It is safe for concurrent use.
type Client struct {
	base       string
	deviceName string
	http       *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a backend client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		deviceName: cfg.DeviceName,
		http:       hc,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string { return c.base }

// SetToken sets (or clears, with "") the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authenticated reports whether a bearer token is set.
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

// Login exchanges credentials for a token. The token is not stored on the
// client; callers decide when to SetToken.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{
		Email:      email,
		Password:   password,
		DeviceName: c.deviceName,
	}, &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusUnprocessableEntity) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, se.Message)
		}
		return nil, err
	}
	if !resp.Success || resp.Token == "" {
		if resp.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, resp.Message)
		}
		return nil, ErrInvalidCredentials
	}
	return &resp, nil
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Ping checks that the chatbot endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/chatbot/test", nil, nil)
}

// SendMessage posts a question and returns the assistant's reply. Requests
// are throttled by the client's rate limiter.
func (c *Client) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	if req.ConversationHistory == nil {
		req.ConversationHistory = []HistoryMessage{}
	}
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, "/chatbot/message", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns the signed-in user's server-side conversations.
func (c *Client) History(ctx context.Context) ([]Conversation, error) {
	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/chatbot/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// DeleteConversation deletes a server-side conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chatbot/conversations/"+url.PathEscape(id), nil, nil)
}

// ToggleFavorite flips the favorite flag of a server-side conversation and
// returns the new value.
func (c *Client) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var resp FavoriteResponse
	if err := c.do(ctx, http.MethodPatch, "/chatbot/conversations/"+url.PathEscape(id)+"/favorite", nil, &resp); err != nil {
		return false, err
	}
	return resp.IsFavorite, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{Err: err}
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data), Body: data}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage extracts {"message": "..."} or {"error": "..."} from an error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
