package api

import (
	"context"

	"github.com/matheus3301/charly/internal/account"
	"github.com/matheus3301/charly/internal/assistant"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ChatService implements rpc.ChatServer.
type ChatService struct {
	assistant *assistant.Assistant
	history   *history.Manager
	prefs     *account.Preferences
	bus       *bus.Bus
	profile   string
	logger    *zap.Logger
}

// NewChatService creates the chat service.
func NewChatService(a *assistant.Assistant, h *history.Manager, prefs *account.Preferences, b *bus.Bus, profile string, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{assistant: a, history: h, prefs: prefs, bus: b, profile: profile, logger: logger}
}

func (s *ChatService) Send(ctx context.Context, req *rpc.SendRequest) (*rpc.SendResponse, error) {
	reply, err := s.assistant.Send(ctx, req.Text)
	if err != nil {
		return nil, toStatus("send", err)
	}
	if reply == nil {
		return &rpc.SendResponse{Ignored: true}, nil
	}
	resp := &rpc.SendResponse{
		ConversationID: reply.ConversationID,
		Message:        messageToRPC(reply.Message),
		Mood:           reply.Mood,
		Failed:         reply.Failed,
		ContextUsed:    reply.ContextUsed,
		ContextCount:   reply.ContextCount,
		Authenticated:  reply.Authenticated,
	}
	if reply.Search != nil {
		resp.SearchQuery = reply.Search.Query
		for _, r := range reply.Search.Results {
			resp.SearchResults = append(resp.SearchResults, rpc.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
		}
	}
	return resp, nil
}

func (s *ChatService) Current(_ context.Context, _ *rpc.Empty) (*rpc.ConversationResponse, error) {
	return &rpc.ConversationResponse{Conversation: conversationToRPC(s.history.Current(), true)}, nil
}

func (s *ChatService) NewConversation(_ context.Context, _ *rpc.Empty) (*rpc.ConversationResponse, error) {
	return &rpc.ConversationResponse{Conversation: conversationToRPC(s.history.NewConversation(), true)}, nil
}

func (s *ChatService) GetPreferences(_ context.Context, _ *rpc.Empty) (*rpc.Preferences, error) {
	return &rpc.Preferences{MemoryEnabled: s.prefs.MemoryEnabled(), AutoRead: s.prefs.AutoRead()}, nil
}

func (s *ChatService) SetPreferences(ctx context.Context, req *rpc.SetPreferencesRequest) (*rpc.Preferences, error) {
	if req.MemoryEnabled == nil && req.AutoRead == nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "nothing to change")
	}
	if req.MemoryEnabled != nil {
		if err := s.prefs.SetMemoryEnabled(*req.MemoryEnabled); err != nil {
			return nil, toStatus("set memory", err)
		}
	}
	if req.AutoRead != nil {
		if err := s.prefs.SetAutoRead(*req.AutoRead); err != nil {
			return nil, toStatus("set auto read", err)
		}
	}
	return s.GetPreferences(ctx, &rpc.Empty{})
}

func (s *ChatService) Watch(_ *rpc.WatchRequest, stream rpc.EventStream) error {
	return forward(stream, s.bus, s.profile, s.logger, "chat.", "history.", "voice.", "sync.")
}
