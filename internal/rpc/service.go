package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Fully-qualified service names.
const (
	SessionService   = "charly.v1.SessionService"
	ChatService      = "charly.v1.ChatService"
	HistoryService   = "charly.v1.HistoryService"
	AnimationService = "charly.v1.AnimationService"
	VoiceService     = "charly.v1.VoiceService"
)

// EventStream is the server side of a Watch stream.
type EventStream interface {
	Send(*Event) error
	Context() context.Context
}

// SessionServer is the account and daemon status service.
type SessionServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *Empty) (*LogoutResponse, error)
	Watch(*WatchRequest, EventStream) error
}

// ChatServer runs exchanges on the current conversation.
type ChatServer interface {
	Send(context.Context, *SendRequest) (*SendResponse, error)
	Current(context.Context, *Empty) (*ConversationResponse, error)
	NewConversation(context.Context, *Empty) (*ConversationResponse, error)
	GetPreferences(context.Context, *Empty) (*Preferences, error)
	SetPreferences(context.Context, *SetPreferencesRequest) (*Preferences, error)
	Watch(*WatchRequest, EventStream) error
}

// HistoryServer manages stored conversations.
type HistoryServer interface {
	List(context.Context, *ListRequest) (*ListResponse, error)
	Get(context.Context, *IDRequest) (*ConversationResponse, error)
	Open(context.Context, *IDRequest) (*ConversationResponse, error)
	Delete(context.Context, *IDRequest) (*DeleteResponse, error)
	ToggleFavorite(context.Context, *IDRequest) (*FavoriteResponse, error)
	Export(context.Context, *ExportRequest) (*ExportResponse, error)
	Sync(context.Context, *Empty) (*SyncInfo, error)
}

// AnimationServer drives the mascot.
type AnimationServer interface {
	State(context.Context, *Empty) (*Frame, error)
	Play(context.Context, *PlayRequest) (*Frame, error)
	Trigger(context.Context, *TriggerRequest) (*Frame, error)
	Flash(context.Context, *FlashRequest) (*Frame, error)
	Sequences(context.Context, *Empty) (*SequencesResponse, error)
	Watch(*WatchRequest, EventStream) error
}

// VoiceServer controls the microphone and speech output.
type VoiceServer interface {
	State(context.Context, *Empty) (*VoiceState, error)
	SetMode(context.Context, *ModeRequest) (*VoiceState, error)
	Control(context.Context, *ControlRequest) (*VoiceState, error)
	Speak(context.Context, *SpeakRequest) (*SpeakResponse, error)
}

func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watch[S any](call func(S, *WatchRequest, EventStream) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    "Watch",
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(WatchRequest)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return call(srv.(S), in, &eventServerStream{stream})
		},
	}
}

type eventServerStream struct {
	grpc.ServerStream
}

func (s *eventServerStream) Send(e *Event) error {
	return s.ServerStream.SendMsg(e)
}

// SessionServiceDesc describes SessionService.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionService,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionService, "Status", SessionServer.Status),
		unary(SessionService, "Login", SessionServer.Login),
		unary(SessionService, "Logout", SessionServer.Logout),
	},
	Streams:  []grpc.StreamDesc{watch(SessionServer.Watch)},
	Metadata: "charly/v1/session",
}

// ChatServiceDesc describes ChatService.
var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatService,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ChatService, "Send", ChatServer.Send),
		unary(ChatService, "Current", ChatServer.Current),
		unary(ChatService, "NewConversation", ChatServer.NewConversation),
		unary(ChatService, "GetPreferences", ChatServer.GetPreferences),
		unary(ChatService, "SetPreferences", ChatServer.SetPreferences),
	},
	Streams:  []grpc.StreamDesc{watch(ChatServer.Watch)},
	Metadata: "charly/v1/chat",
}

// HistoryServiceDesc describes HistoryService.
var HistoryServiceDesc = grpc.ServiceDesc{
	ServiceName: HistoryService,
	HandlerType: (*HistoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(HistoryService, "List", HistoryServer.List),
		unary(HistoryService, "Get", HistoryServer.Get),
		unary(HistoryService, "Open", HistoryServer.Open),
		unary(HistoryService, "Delete", HistoryServer.Delete),
		unary(HistoryService, "ToggleFavorite", HistoryServer.ToggleFavorite),
		unary(HistoryService, "Export", HistoryServer.Export),
		unary(HistoryService, "Sync", HistoryServer.Sync),
	},
	Metadata: "charly/v1/history",
}

// AnimationServiceDesc describes AnimationService.
var AnimationServiceDesc = grpc.ServiceDesc{
	ServiceName: AnimationService,
	HandlerType: (*AnimationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AnimationService, "State", AnimationServer.State),
		unary(AnimationService, "Play", AnimationServer.Play),
		unary(AnimationService, "Trigger", AnimationServer.Trigger),
		unary(AnimationService, "Flash", AnimationServer.Flash),
		unary(AnimationService, "Sequences", AnimationServer.Sequences),
	},
	Streams:  []grpc.StreamDesc{watch(AnimationServer.Watch)},
	Metadata: "charly/v1/animation",
}

// VoiceServiceDesc describes VoiceService.
var VoiceServiceDesc = grpc.ServiceDesc{
	ServiceName: VoiceService,
	HandlerType: (*VoiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(VoiceService, "State", VoiceServer.State),
		unary(VoiceService, "SetMode", VoiceServer.SetMode),
		unary(VoiceService, "Control", VoiceServer.Control),
		unary(VoiceService, "Speak", VoiceServer.Speak),
	},
	Metadata: "charly/v1/voice",
}

// RegisterSessionServer registers the session service.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// RegisterChatServer registers the chat service.
func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

// RegisterHistoryServer registers the history service.
func RegisterHistoryServer(s grpc.ServiceRegistrar, srv HistoryServer) {
	s.RegisterService(&HistoryServiceDesc, srv)
}

// RegisterAnimationServer registers the animation service.
func RegisterAnimationServer(s grpc.ServiceRegistrar, srv AnimationServer) {
	s.RegisterService(&AnimationServiceDesc, srv)
}

// RegisterVoiceServer registers the voice service.
func RegisterVoiceServer(s grpc.ServiceRegistrar, srv VoiceServer) {
	s.RegisterService(&VoiceServiceDesc, srv)
}
