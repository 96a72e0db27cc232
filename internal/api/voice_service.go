package api

import (
	"context"
	"strings"

	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/voice"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// VoicePreferences persists the voice mode.
type VoicePreferences interface {
	SetVoiceMode(mode string) error
}

// VoiceService implements rpc.VoiceServer.
type VoiceService struct {
	voice   *voice.Coordinator
	prefs   VoicePreferences
	backend string
}

// NewVoiceService creates the voice service. prefs may be nil.
func NewVoiceService(v *voice.Coordinator, prefs VoicePreferences, backendName string) *VoiceService {
	return &VoiceService{voice: v, prefs: prefs, backend: backendName}
}

func (s *VoiceService) state() *rpc.VoiceState {
	return voiceToRPC(s.voice.Snapshot(), s.backend)
}

func (s *VoiceService) State(_ context.Context, _ *rpc.Empty) (*rpc.VoiceState, error) {
	return s.state(), nil
}

func (s *VoiceService) SetMode(_ context.Context, req *rpc.ModeRequest) (*rpc.VoiceState, error) {
	mode, err := voice.ParseMode(req.Mode)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "%v", err)
	}
	if err := s.voice.SetMode(mode); err != nil {
		return nil, toStatus("set mode", err)
	}
	if s.prefs != nil {
		if err := s.prefs.SetVoiceMode(string(mode)); err != nil {
			return nil, toStatus("save mode", err)
		}
	}
	return s.state(), nil
}

func (s *VoiceService) Control(_ context.Context, req *rpc.ControlRequest) (*rpc.VoiceState, error) {
	switch strings.ToLower(req.Action) {
	case rpc.VoiceToggle:
		s.voice.Toggle()
	case rpc.VoiceStart:
		if !s.voice.StartListening() {
			return nil, grpcstatus.Errorf(codes.FailedPrecondition, "microphone cannot start now")
		}
	case rpc.VoiceStop:
		s.voice.StopListening()
	case rpc.VoicePushStart:
		s.voice.PushStart()
	case rpc.VoicePushEnd:
		s.voice.PushEnd()
	case rpc.VoiceStopSpeaking:
		s.voice.StopSpeaking()
	default:
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "unknown voice action %q", req.Action)
	}
	return s.state(), nil
}

func (s *VoiceService) Speak(_ context.Context, req *rpc.SpeakRequest) (*rpc.SpeakResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "text is required")
	}
	return &rpc.SpeakResponse{Spoken: s.voice.Speak(req.Text)}, nil
}
