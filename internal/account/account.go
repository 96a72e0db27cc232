// Package account manages sign-in state: the stored token and user, the
// device identifier and the persisted chat preferences.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/status"
	"github.com/matheus3301/charly/internal/store"
	"go.uber.org/zap"
)

// Settings is the persisted key/value store. *store.DB implements it.
type Settings interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Animator is the part of the sequencer account changes react with.
type Animator interface {
	Greet()
	Flash(state string, hold time.Duration)
}

// Backend is the subset of the API client used for authentication.
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	SetToken(token string)
	Token() string
}

// Service owns the signed-in account.
type Service struct {
	settings Settings
	client   Backend
	machine  *status.Machine
	anim     Animator
	logger   *zap.Logger

	mu       sync.Mutex
	user     *backend.User
	deviceID string
}

// New creates an account service. anim may be nil.
func New(settings Settings, client Backend, machine *status.Machine, anim Animator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{settings: settings, client: client, machine: machine, anim: anim, logger: logger}
}

// Restore loads a saved token at startup and leaves BOOTING: READY when the
// server answers, OFFLINE when it cannot be reached, SIGNED_OUT without a token.
func (s *Service) Restore(ctx context.Context) error {
	token, ok, err := s.settings.GetSetting(store.SettingToken)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if !ok || token == "" {
		return s.machine.Transition(status.SignedOut)
	}

	var user backend.User
	if raw, ok, err := s.settings.GetSetting(store.SettingUser); err == nil && ok {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.Warn("stored user unreadable", zap.Error(err))
		}
	}
	s.client.SetToken(token)
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	if err := s.client.Ping(ctx); err != nil && backend.IsUnreachable(err) {
		s.logger.Info("backend unreachable, starting offline", zap.Error(err))
		return s.machine.Transition(status.Offline)
	}
	return s.machine.Transition(status.Ready)
}

// Login signs in and stores the token and user. Wrong credentials yield
// backend.ErrInvalidCredentials and leave the state SIGNED_OUT.
func (s *Service) Login(ctx context.Context, email, password string) (*backend.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	if err := s.machine.Transition(status.SigningIn); err != nil {
		return nil, fmt.Errorf("cannot sign in now: %w", err)
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		_ = s.machine.Transition(status.SignedOut)
		if errors.Is(err, backend.ErrInvalidCredentials) {
			s.flash(animation.Confused, 3*time.Second)
		} else {
			s.flash(animation.Error, 3*time.Second)
		}
		return nil, err
	}

	user, err := json.Marshal(resp.User)
	if err != nil {
		_ = s.machine.Transition(status.SignedOut)
		return nil, fmt.Errorf("encode user: %w", err)
	}
	if err := s.settings.SetSetting(store.SettingToken, resp.Token); err != nil {
		_ = s.machine.Transition(status.SignedOut)
		return nil, fmt.Errorf("save token: %w", err)
	}
	if err := s.settings.SetSetting(store.SettingUser, string(user)); err != nil {
		s.logger.Warn("save user", zap.Error(err))
	}

	s.client.SetToken(resp.Token)
	u := resp.User
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	s.logger.Info("signed in", zap.Int64("user_id", u.ID))
	if err := s.machine.Transition(status.Ready); err != nil {
		return nil, err
	}
	if s.anim != nil {
		s.anim.Greet()
	}
	return &u, nil
}

// Logout tells the server (best effort) and forgets the token and user.
func (s *Service) Logout(ctx context.Context) error {
	if s.client.Token() != "" {
		if err := s.client.Logout(ctx); err != nil {
			s.logger.Warn("server logout failed", zap.Error(err))
		}
	}
	s.forget()
	if !s.machine.TransitionIfAllowed(status.SignedOut) {
		return fmt.Errorf("cannot sign out from %s", s.machine.Current())
	}
	if s.anim != nil {
		s.anim.Greet()
	}
	return nil
}

func (s *Service) forget() {
	s.client.SetToken("")
	for _, key := range []string{store.SettingToken, store.SettingUser} {
		if err := s.settings.DeleteSetting(key); err != nil {
			s.logger.Warn("delete setting", zap.String("key", key), zap.Error(err))
		}
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// Observe updates connectivity from the outcome of a backend call: 401/403
// expires the session, transport errors go OFFLINE, success comes back READY.
func (s *Service) Observe(err error) {
	switch {
	case err == nil:
		if s.machine.Current() == status.Offline {
			_ = s.machine.Transition(status.Ready)
		}
	case backend.IsUnauthorized(err):
		if s.client.Token() == "" {
			return
		}
		s.logger.Info("session expired")
		s.forget()
		_ = s.machine.TransitionIfAllowed(status.SessionExpired)
	case backend.IsUnreachable(err):
		if s.machine.Current() == status.Ready {
			_ = s.machine.Transition(status.Offline)
		}
	}
}

// User returns the signed-in user, or nil.
func (s *Service) User() *backend.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// DeviceID returns the persisted device identifier, creating it on first use.
func (s *Service) DeviceID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceID != "" {
		return s.deviceID, nil
	}
	id, ok, err := s.settings.GetSetting(store.SettingDeviceID)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	if !ok || id == "" {
		id = NewDeviceID(time.Now())
		if err := s.settings.SetSetting(store.SettingDeviceID, id); err != nil {
			return "", fmt.Errorf("save device id: %w", err)
		}
		s.logger.Info("generated device id", zap.String("device_id", id))
	}
	s.deviceID = id
	return id, nil
}

// NewDeviceID formats charly-<unix ms>-<random>.
func NewDeviceID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return "charly-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + random
}

func (s *Service) flash(state string, hold time.Duration) {
	if s.anim != nil {
		s.anim.Flash(state, hold)
	}
}
