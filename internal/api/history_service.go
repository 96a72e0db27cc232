package api

import (
	"context"
	"time"

	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	intsync "github.com/matheus3301/charly/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// HistoryService implements rpc.HistoryServer.
type HistoryService struct {
	history *history.Manager
	engine  *intsync.Engine
	now     func() time.Time
}

// NewHistoryService creates the history service. engine may be nil.
func NewHistoryService(h *history.Manager, engine *intsync.Engine) *HistoryService {
	return &HistoryService{history: h, engine: engine, now: time.Now}
}

func (s *HistoryService) List(_ context.Context, req *rpc.ListRequest) (*rpc.ListResponse, error) {
	convs := history.ParseFilter(req.Filter).Apply(s.history.List(), s.now())
	convs = history.Search(convs, req.Query)

	resp := &rpc.ListResponse{Conversations: make([]rpc.Conversation, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, conversationToRPC(c, true))
	}
	return resp, nil
}

func (s *HistoryService) Get(_ context.Context, req *rpc.IDRequest) (*rpc.ConversationResponse, error) {
	c, err := s.history.Get(req.ID)
	if err != nil {
		return nil, toStatus("get "+req.ID, err)
	}
	return &rpc.ConversationResponse{Conversation: conversationToRPC(c, true)}, nil
}

func (s *HistoryService) Open(_ context.Context, req *rpc.IDRequest) (*rpc.ConversationResponse, error) {
	c, err := s.history.Open(req.ID)
	if err != nil {
		return nil, toStatus("open "+req.ID, err)
	}
	return &rpc.ConversationResponse{Conversation: conversationToRPC(c, true)}, nil
}

func (s *HistoryService) Delete(ctx context.Context, req *rpc.IDRequest) (*rpc.DeleteResponse, error) {
	if req.ID == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "id is required")
	}
	if err := s.history.Delete(ctx, req.ID); err != nil {
		return nil, toStatus("delete "+req.ID, err)
	}
	return &rpc.DeleteResponse{Deleted: true}, nil
}

func (s *HistoryService) ToggleFavorite(ctx context.Context, req *rpc.IDRequest) (*rpc.FavoriteResponse, error) {
	fav, err := s.history.ToggleFavorite(ctx, req.ID)
	if err != nil {
		return nil, toStatus("favorite "+req.ID, err)
	}
	return &rpc.FavoriteResponse{Favorite: fav}, nil
}

func (s *HistoryService) Export(_ context.Context, req *rpc.ExportRequest) (*rpc.ExportResponse, error) {
	format, err := history.ParseFormat(req.Format)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "%v", err)
	}
	var c *history.Conversation
	if req.ID == "" {
		c = s.history.Current()
		if len(c.Messages) == 0 {
			return nil, grpcstatus.Errorf(codes.FailedPrecondition, "current conversation is empty")
		}
	} else if c, err = s.history.Get(req.ID); err != nil {
		return nil, toStatus("export "+req.ID, err)
	}
	data, err := history.Export(c, format)
	if err != nil {
		return nil, toStatus("export", err)
	}
	return &rpc.ExportResponse{Filename: history.Filename(c, format), Content: string(data)}, nil
}

func (s *HistoryService) Sync(ctx context.Context, _ *rpc.Empty) (*rpc.SyncInfo, error) {
	if s.engine == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "sync engine not initialized")
	}
	res, err := s.engine.Sync(ctx)
	if err != nil {
		return nil, toStatus("sync", err)
	}
	return syncToRPC(res), nil
}
