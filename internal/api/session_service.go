package api

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/charly/internal/account"
	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/config"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/status"
	intsync "github.com/matheus3301/charly/internal/sync"
	"github.com/matheus3301/charly/internal/voice"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// SessionService implements rpc.SessionServer.
type SessionService struct {
	profile   string
	startedAt time.Time
	cfg       *config.Config
	machine   *status.Machine
	account   *account.Service
	history   *history.Manager
	recon     *intsync.Reconciler
	seq       *animation.Sequencer
	voice     *voice.Coordinator
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewSessionService creates the session service. recon, seq and v may be nil.
func NewSessionService(
	profile string,
	cfg *config.Config,
	machine *status.Machine,
	acct *account.Service,
	h *history.Manager,
	recon *intsync.Reconciler,
	seq *animation.Sequencer,
	v *voice.Coordinator,
	b *bus.Bus,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		profile:   profile,
		startedAt: time.Now(),
		cfg:       cfg,
		machine:   machine,
		account:   acct,
		history:   h,
		recon:     recon,
		seq:       seq,
		voice:     v,
		bus:       b,
		logger:    logger,
	}
}

func (s *SessionService) Status(_ context.Context, _ *rpc.StatusRequest) (*rpc.StatusResponse, error) {
	resp := &rpc.StatusResponse{
		Profile:  s.profile,
		Status:   string(s.machine.Current()),
		PID:      os.Getpid(),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}
	if s.cfg != nil {
		resp.APIURL = s.cfg.APIURL
		resp.AccountURL = s.cfg.AccountURL
	}
	if s.machine.SignedIn() {
		resp.User = userToRPC(s.account.User())
	}
	if s.history != nil {
		for _, c := range s.history.List() {
			resp.Conversations++
			resp.Messages += len(c.Messages)
		}
	}
	if s.recon != nil {
		last, err := s.recon.Last()
		if err != nil {
			s.logger.Warn("read last sync", zap.Error(err))
		}
		resp.LastSync = syncToRPC(last)
	}
	if s.seq != nil {
		resp.Animation = *frameToRPC(s.seq.Snapshot())
	}
	if s.voice != nil {
		resp.Voice = *voiceToRPC(s.voice.Snapshot(), "")
	}
	return resp, nil
}

func (s *SessionService) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "email and password are required")
	}
	if s.machine.SignedIn() {
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "already signed in")
	}
	user, err := s.account.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus("login", err)
	}
	s.logger.Info("signed in", zap.String("email", user.Email))
	s.bus.Emit(bus.KindAccountChanged, userToRPC(user))
	return &rpc.LoginResponse{User: rpc.User{ID: user.ID, Name: user.Name, Email: user.Email}}, nil
}

func (s *SessionService) Logout(ctx context.Context, _ *rpc.Empty) (*rpc.LogoutResponse, error) {
	if s.machine.Current() == status.SignedOut {
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "not signed in")
	}
	if err := s.account.Logout(ctx); err != nil {
		return nil, toStatus("logout", err)
	}
	if s.history != nil {
		if _, err := s.history.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("reload history after logout", zap.Error(err))
		}
	}
	s.bus.Emit(bus.KindAccountChanged, nil)
	return &rpc.LogoutResponse{Message: "signed out"}, nil
}

func (s *SessionService) Watch(_ *rpc.WatchRequest, stream rpc.EventStream) error {
	return forward(stream, s.bus, s.profile, s.logger, "session.", "sync.")
}
