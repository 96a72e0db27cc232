package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial connects to the daemon socket with the JSON codec selected.
func Dial(socketPath string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return conn, nil
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// EventReceiver is the client side of a Watch stream.
type EventReceiver struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (r *EventReceiver) Recv() (*Event, error) {
	e := new(Event)
	if err := r.stream.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}

func openWatch(ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.ServiceDesc, opts []grpc.CallOption) (*EventReceiver, error) {
	stream, err := cc.NewStream(ctx, &desc.Streams[0], "/"+desc.ServiceName+"/Watch", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchRequest{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventReceiver{stream: stream}, nil
}

// SessionClient calls SessionService.
type SessionClient struct{ cc grpc.ClientConnInterface }

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient { return &SessionClient{cc: cc} }

func (c *SessionClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "/"+SessionService+"/Status", in, opts)
}

func (c *SessionClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, "/"+SessionService+"/Login", in, opts)
}

func (c *SessionClient) Logout(ctx context.Context, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, "/"+SessionService+"/Logout", &Empty{}, opts)
}

func (c *SessionClient) Watch(ctx context.Context, opts ...grpc.CallOption) (*EventReceiver, error) {
	return openWatch(ctx, c.cc, &SessionServiceDesc, opts)
}

// ChatClient calls ChatService.
type ChatClient struct{ cc grpc.ClientConnInterface }

func NewChatClient(cc grpc.ClientConnInterface) *ChatClient { return &ChatClient{cc: cc} }

func (c *ChatClient) Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, "/"+ChatService+"/Send", in, opts)
}

func (c *ChatClient) Current(ctx context.Context, opts ...grpc.CallOption) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, "/"+ChatService+"/Current", &Empty{}, opts)
}

func (c *ChatClient) NewConversation(ctx context.Context, opts ...grpc.CallOption) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, "/"+ChatService+"/NewConversation", &Empty{}, opts)
}

func (c *ChatClient) GetPreferences(ctx context.Context, opts ...grpc.CallOption) (*Preferences, error) {
	return invoke[Preferences](ctx, c.cc, "/"+ChatService+"/GetPreferences", &Empty{}, opts)
}

func (c *ChatClient) SetPreferences(ctx context.Context, in *SetPreferencesRequest, opts ...grpc.CallOption) (*Preferences, error) {
	return invoke[Preferences](ctx, c.cc, "/"+ChatService+"/SetPreferences", in, opts)
}

func (c *ChatClient) Watch(ctx context.Context, opts ...grpc.CallOption) (*EventReceiver, error) {
	return openWatch(ctx, c.cc, &ChatServiceDesc, opts)
}

// HistoryClient calls HistoryService.
type HistoryClient struct{ cc grpc.ClientConnInterface }

func NewHistoryClient(cc grpc.ClientConnInterface) *HistoryClient { return &HistoryClient{cc: cc} }

func (c *HistoryClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, "/"+HistoryService+"/List", in, opts)
}

func (c *HistoryClient) Get(ctx context.Context, id string, opts ...grpc.CallOption) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, "/"+HistoryService+"/Get", &IDRequest{ID: id}, opts)
}

func (c *HistoryClient) Open(ctx context.Context, id string, opts ...grpc.CallOption) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, "/"+HistoryService+"/Open", &IDRequest{ID: id}, opts)
}

func (c *HistoryClient) Delete(ctx context.Context, id string, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, "/"+HistoryService+"/Delete", &IDRequest{ID: id}, opts)
}

func (c *HistoryClient) ToggleFavorite(ctx context.Context, id string, opts ...grpc.CallOption) (*FavoriteResponse, error) {
	return invoke[FavoriteResponse](ctx, c.cc, "/"+HistoryService+"/ToggleFavorite", &IDRequest{ID: id}, opts)
}

func (c *HistoryClient) Export(ctx context.Context, in *ExportRequest, opts ...grpc.CallOption) (*ExportResponse, error) {
	return invoke[ExportResponse](ctx, c.cc, "/"+HistoryService+"/Export", in, opts)
}

func (c *HistoryClient) Sync(ctx context.Context, opts ...grpc.CallOption) (*SyncInfo, error) {
	return invoke[SyncInfo](ctx, c.cc, "/"+HistoryService+"/Sync", &Empty{}, opts)
}

// AnimationClient calls AnimationService.
type AnimationClient struct{ cc grpc.ClientConnInterface }

func NewAnimationClient(cc grpc.ClientConnInterface) *AnimationClient {
	return &AnimationClient{cc: cc}
}

func (c *AnimationClient) State(ctx context.Context, opts ...grpc.CallOption) (*Frame, error) {
	return invoke[Frame](ctx, c.cc, "/"+AnimationService+"/State", &Empty{}, opts)
}

func (c *AnimationClient) Play(ctx context.Context, name string, opts ...grpc.CallOption) (*Frame, error) {
	return invoke[Frame](ctx, c.cc, "/"+AnimationService+"/Play", &PlayRequest{Name: name}, opts)
}

func (c *AnimationClient) Trigger(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*Frame, error) {
	return invoke[Frame](ctx, c.cc, "/"+AnimationService+"/Trigger", in, opts)
}

func (c *AnimationClient) Flash(ctx context.Context, in *FlashRequest, opts ...grpc.CallOption) (*Frame, error) {
	return invoke[Frame](ctx, c.cc, "/"+AnimationService+"/Flash", in, opts)
}

func (c *AnimationClient) Sequences(ctx context.Context, opts ...grpc.CallOption) (*SequencesResponse, error) {
	return invoke[SequencesResponse](ctx, c.cc, "/"+AnimationService+"/Sequences", &Empty{}, opts)
}

func (c *AnimationClient) Watch(ctx context.Context, opts ...grpc.CallOption) (*EventReceiver, error) {
	return openWatch(ctx, c.cc, &AnimationServiceDesc, opts)
}

// VoiceClient calls VoiceService.
type VoiceClient struct{ cc grpc.ClientConnInterface }

func NewVoiceClient(cc grpc.ClientConnInterface) *VoiceClient { return &VoiceClient{cc: cc} }

func (c *VoiceClient) State(ctx context.Context, opts ...grpc.CallOption) (*VoiceState, error) {
	return invoke[VoiceState](ctx, c.cc, "/"+VoiceService+"/State", &Empty{}, opts)
}

func (c *VoiceClient) SetMode(ctx context.Context, mode string, opts ...grpc.CallOption) (*VoiceState, error) {
	return invoke[VoiceState](ctx, c.cc, "/"+VoiceService+"/SetMode", &ModeRequest{Mode: mode}, opts)
}

func (c *VoiceClient) Control(ctx context.Context, action string, opts ...grpc.CallOption) (*VoiceState, error) {
	return invoke[VoiceState](ctx, c.cc, "/"+VoiceService+"/Control", &ControlRequest{Action: action}, opts)
}

func (c *VoiceClient) Speak(ctx context.Context, text string, opts ...grpc.CallOption) (*SpeakResponse, error) {
	return invoke[SpeakResponse](ctx, c.cc, "/"+VoiceService+"/Speak", &SpeakRequest{Text: text}, opts)
}
