package api

import (
	"errors"

	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	intsync "github.com/matheus3301/charly/internal/sync"
	"github.com/matheus3301/charly/internal/voice"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func messageToRPC(m history.Message) rpc.Message {
	return rpc.Message{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
}

func conversationToRPC(c *history.Conversation, withMessages bool) rpc.Conversation {
	out := rpc.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Favorite:  c.Favorite,
		Source:    string(c.Source),
	}
	if withMessages {
		for _, m := range c.Messages {
			out.Messages = append(out.Messages, messageToRPC(m))
		}
	}
	return out
}

func userToRPC(u *backend.User) *rpc.User {
	if u == nil || u.Email == "" {
		return nil
	}
	return &rpc.User{ID: u.ID, Name: u.Name, Email: u.Email}
}

func frameToRPC(f animation.Frame) *rpc.Frame {
	return &rpc.Frame{State: f.State, Animation: f.Animation, Playing: f.Playing, Step: f.Step}
}

func voiceToRPC(s voice.State, backendName string) *rpc.VoiceState {
	return &rpc.VoiceState{
		Mode:       string(s.Mode),
		Listening:  s.Listening,
		Muted:      s.Muted,
		Speaking:   s.Speaking,
		AutoActive: s.AutoActive,
		PushDown:   s.PushDown,
		Transcript: s.Transcript,
		Backend:    backendName,
	}
}

func syncToRPC(r *intsync.Result) *rpc.SyncInfo {
	if r == nil {
		return nil
	}
	return &rpc.SyncInfo{Conversations: r.Conversations, Server: r.Server, AtUnixMs: r.At.UnixMilli()}
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(op string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, history.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, history.ErrRemoteUnavailable):
		code = codes.FailedPrecondition
	case errors.Is(err, backend.ErrInvalidCredentials), backend.IsUnauthorized(err):
		code = codes.Unauthenticated
	case backend.IsUnreachable(err):
		code = codes.Unavailable
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}
