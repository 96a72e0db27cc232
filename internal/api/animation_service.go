package api

import (
	"context"
	"strings"
	"time"

	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// AnimationService implements rpc.AnimationServer.
type AnimationService struct {
	seq     *animation.Sequencer
	lib     *animation.Library
	bus     *bus.Bus
	profile string
	logger  *zap.Logger
}

// NewAnimationService creates the animation service. lib may be nil.
func NewAnimationService(seq *animation.Sequencer, lib *animation.Library, b *bus.Bus, profile string, logger *zap.Logger) *AnimationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnimationService{seq: seq, lib: lib, bus: b, profile: profile, logger: logger}
}

func (s *AnimationService) State(_ context.Context, _ *rpc.Empty) (*rpc.Frame, error) {
	return frameToRPC(s.seq.Snapshot()), nil
}

func (s *AnimationService) Play(_ context.Context, req *rpc.PlayRequest) (*rpc.Frame, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "sequence name is required")
	}
	s.seq.Play(name)
	return frameToRPC(s.seq.Snapshot()), nil
}

func (s *AnimationService) Trigger(_ context.Context, req *rpc.TriggerRequest) (*rpc.Frame, error) {
	switch strings.ToLower(req.Action) {
	case rpc.TriggerGreet:
		s.seq.Greet()
	case rpc.TriggerThink:
		s.seq.Think()
	case rpc.TriggerProcess:
		s.seq.Process()
	case rpc.TriggerRespond:
		s.seq.RespondWith(req.Text)
	case rpc.TriggerIdle:
		s.seq.ToIdle()
	case rpc.TriggerStop:
		s.seq.StopSequence()
	default:
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "unknown trigger %q", req.Action)
	}
	return frameToRPC(s.seq.Snapshot()), nil
}

func (s *AnimationService) Flash(_ context.Context, req *rpc.FlashRequest) (*rpc.Frame, error) {
	if req.State == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "state is required")
	}
	if req.HoldMs < 0 {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "hold must not be negative")
	}
	s.seq.Flash(req.State, time.Duration(req.HoldMs)*time.Millisecond)
	return frameToRPC(s.seq.Snapshot()), nil
}

func (s *AnimationService) Sequences(_ context.Context, _ *rpc.Empty) (*rpc.SequencesResponse, error) {
	seqs := s.seq.Sequences()
	resp := &rpc.SequencesResponse{Sequences: make(map[string][]rpc.Step, len(seqs))}
	for name, steps := range seqs {
		out := make([]rpc.Step, 0, len(steps))
		for _, st := range steps {
			out = append(out, rpc.Step{Animation: st.Animation, DurationMs: st.Duration.Milliseconds()})
		}
		resp.Sequences[name] = out
	}
	if s.lib != nil {
		resp.Missing = s.lib.Missing(seqs)
	}
	return resp, nil
}

func (s *AnimationService) Watch(_ *rpc.WatchRequest, stream rpc.EventStream) error {
	return forward(stream, s.bus, s.profile, s.logger, "animation.")
}
