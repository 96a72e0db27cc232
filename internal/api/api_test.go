package api

import (
	"context"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/charly/internal/account"
	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/assistant"
	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/clock"
	"github.com/matheus3301/charly/internal/config"
	"github.com/matheus3301/charly/internal/devserver"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/status"
	"github.com/matheus3301/charly/internal/store"
	intsync "github.com/matheus3301/charly/internal/sync"
	"github.com/matheus3301/charly/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type stack struct {
	bus       *bus.Bus
	machine   *status.Machine
	dev       *devserver.Server
	history   *history.Manager
	session   *rpc.SessionClient
	chat      *rpc.ChatClient
	hist      *rpc.HistoryClient
	animation *rpc.AnimationClient
	voice     *rpc.VoiceClient
}

func newStack(t *testing.T) *stack {
	t.Helper()
	// Short path for the Unix socket length limit.
	dir, err := os.MkdirTemp("/tmp", "charly-api-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	db, err := store.Open(filepath.Join(dir, "charly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate()
	require.NoError(t, err)

	dev := devserver.New(nil, devserver.WithUser("Ada", "ada@example.com", "secret"))
	ts := httptest.NewServer(dev.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL + "/api"

	b := bus.New()
	machine := status.NewMachine(b)
	client := backend.New(backend.Config{BaseURL: cfg.APIURL, DeviceName: "test", Timeout: 5 * time.Second}, nil)
	mc := clock.NewManual(time.Unix(0, 0))
	lib := animation.NewLibrary(filepath.Join(dir, "animations"))
	seq := animation.NewSequencer(animation.NewAssetPlayer(lib), b, nil, animation.Options{Clock: mc})
	coord := voice.NewCoordinator(voice.Unavailable{}, voice.Unavailable{}, b, nil, voice.Options{Mode: voice.ModeClick, Clock: mc})

	acct := account.New(db, client, machine, seq, nil)
	prefs := account.NewPreferences(db, true, false, string(voice.ModeClick))
	hist := history.NewManager(history.NewSQLStorage(db), history.NewBackendRemote(client), b, nil, history.Options{})
	asst := assistant.New(hist, client, acct, prefs, seq, coord, b, nil, assistant.Options{})
	recon := intsync.NewReconciler(db, nil)
	engine := intsync.NewEngine(hist, recon, b, nil)
	require.NoError(t, acct.Restore(context.Background()))

	srv := grpc.NewServer()
	rpc.RegisterSessionServer(srv, NewSessionService("test", cfg, machine, acct, hist, recon, seq, coord, b, nil))
	rpc.RegisterChatServer(srv, NewChatService(asst, hist, prefs, b, "test", nil))
	rpc.RegisterHistoryServer(srv, NewHistoryService(hist, engine))
	rpc.RegisterAnimationServer(srv, NewAnimationService(seq, lib, b, "test", nil))
	rpc.RegisterVoiceServer(srv, NewVoiceService(coord, prefs, config.BackendNone))

	socketPath := filepath.Join(dir, "d.sock")
	lis, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := rpc.Dial(socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &stack{
		bus:       b,
		machine:   machine,
		dev:       dev,
		history:   hist,
		session:   rpc.NewSessionClient(conn),
		chat:      rpc.NewChatClient(conn),
		hist:      rpc.NewHistoryClient(conn),
		animation: rpc.NewAnimationClient(conn),
		voice:     rpc.NewVoiceClient(conn),
	}
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func codeOf(err error) codes.Code {
	return grpcstatus.Code(err)
}

func TestStatusSignedOut(t *testing.T) {
	s := newStack(t)

	resp, err := s.session.Status(ctx(t), &rpc.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, "test", resp.Profile)
	assert.Equal(t, string(status.SignedOut), resp.Status)
	assert.Nil(t, resp.User)
	assert.Equal(t, "click", resp.Voice.Mode)
	assert.Positive(t, resp.PID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newStack(t)

	_, err := s.session.Login(ctx(t), &rpc.LoginRequest{Email: "ada@example.com", Password: "nope"})
	assert.Equal(t, codes.Unauthenticated, codeOf(err))
	assert.Equal(t, status.SignedOut, s.machine.Current())

	_, err = s.session.Login(ctx(t), &rpc.LoginRequest{Email: " "})
	assert.Equal(t, codes.InvalidArgument, codeOf(err))
}

func TestLogoutWhenSignedOut(t *testing.T) {
	s := newStack(t)

	_, err := s.session.Logout(ctx(t))
	assert.Equal(t, codes.FailedPrecondition, codeOf(err))
}

func TestLoginSendSyncExport(t *testing.T) {
	s := newStack(t)
	c := ctx(t)

	login, err := s.session.Login(c, &rpc.LoginRequest{Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", login.User.Name)

	st, err := s.session.Status(c, &rpc.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, string(status.Ready), st.Status)
	require.NotNil(t, st.User)
	assert.Equal(t, "ada@example.com", st.User.Email)

	reply, err := s.chat.Send(c, &rpc.SendRequest{Text: "How do I start?"})
	require.NoError(t, err)
	assert.False(t, reply.Failed)
	assert.True(t, reply.Authenticated)
	assert.Equal(t, devserver.DefaultReply("How do I start?", nil), reply.Message.Content)
	assert.True(t, strings.HasPrefix(reply.ConversationID, "local-"))

	current, err := s.chat.Current(c)
	require.NoError(t, err)
	require.Len(t, current.Conversation.Messages, 2)
	assert.Equal(t, "user", current.Conversation.Messages[0].Role)

	s.dev.Seed("ada@example.com", "Old question", "Old answer")
	info, err := s.hist.Sync(c)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Server, 1)

	list, err := s.hist.List(c, &rpc.ListRequest{Query: "old question"})
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "server", list.Conversations[0].Source)

	exp, err := s.hist.Export(c, &rpc.ExportRequest{ID: reply.ConversationID, Format: "text"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(exp.Filename, "charly-"))
	assert.True(t, strings.HasSuffix(exp.Filename, ".txt"))
	assert.Contains(t, exp.Content, "How do I start?")

	st, err = s.session.Status(c, &rpc.StatusRequest{})
	require.NoError(t, err)
	require.NotNil(t, st.LastSync)
	assert.Equal(t, info.Conversations, st.LastSync.Conversations)

	_, err = s.session.Logout(c)
	require.NoError(t, err)
	assert.Equal(t, status.SignedOut, s.machine.Current())
	list, err = s.hist.List(c, &rpc.ListRequest{})
	require.NoError(t, err)
	for _, conv := range list.Conversations {
		assert.Equal(t, "local", conv.Source)
	}
}

func TestSendShortAndEmptyInput(t *testing.T) {
	s := newStack(t)

	reply, err := s.chat.Send(ctx(t), &rpc.SendRequest{Text: "   "})
	require.NoError(t, err)
	assert.True(t, reply.Ignored)

	reply, err = s.chat.Send(ctx(t), &rpc.SendRequest{Text: "a"})
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, assistant.Clarification, reply.Message.Content)
	assert.Equal(t, animation.Confused, reply.Mood)
}

func TestHistoryErrors(t *testing.T) {
	s := newStack(t)
	c := ctx(t)

	_, err := s.hist.Get(c, "local-missing")
	assert.Equal(t, codes.NotFound, codeOf(err))

	_, err = s.hist.Delete(c, "")
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	_, err = s.hist.Delete(c, "local-missing")
	assert.Equal(t, codes.NotFound, codeOf(err))

	_, err = s.hist.Export(c, &rpc.ExportRequest{Format: "pdf"})
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	_, err = s.hist.Export(c, &rpc.ExportRequest{Format: "json"})
	assert.Equal(t, codes.FailedPrecondition, codeOf(err))
}

func TestFavoriteDeleteAndOpen(t *testing.T) {
	s := newStack(t)
	c := ctx(t)

	reply, err := s.chat.Send(c, &rpc.SendRequest{Text: "Anonymous question"})
	require.NoError(t, err)
	id := reply.ConversationID

	fav, err := s.hist.ToggleFavorite(c, id)
	require.NoError(t, err)
	assert.True(t, fav.Favorite)

	list, err := s.hist.List(c, &rpc.ListRequest{Filter: "favorites"})
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)

	fresh, err := s.chat.NewConversation(c)
	require.NoError(t, err)
	assert.Empty(t, fresh.Conversation.ID)

	opened, err := s.hist.Open(c, id)
	require.NoError(t, err)
	assert.Equal(t, id, opened.Conversation.ID)

	del, err := s.hist.Delete(c, id)
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	current, err := s.chat.Current(c)
	require.NoError(t, err)
	assert.Empty(t, current.Conversation.Messages)
}

func TestPreferences(t *testing.T) {
	s := newStack(t)
	c := ctx(t)

	p, err := s.chat.GetPreferences(c)
	require.NoError(t, err)
	assert.True(t, p.MemoryEnabled)
	assert.False(t, p.AutoRead)

	off := false
	p, err = s.chat.SetPreferences(c, &rpc.SetPreferencesRequest{MemoryEnabled: &off})
	require.NoError(t, err)
	assert.False(t, p.MemoryEnabled)

	_, err = s.chat.SetPreferences(c, &rpc.SetPreferencesRequest{})
	assert.Equal(t, codes.InvalidArgument, codeOf(err))
}

func TestAnimationService(t *testing.T) {
	s := newStack(t)
	c := ctx(t)

	frame, err := s.animation.Trigger(c, &rpc.TriggerRequest{Action: rpc.TriggerThink})
	require.NoError(t, err)
	assert.Equal(t, animation.Thinking, frame.State)
	assert.True(t, frame.Playing)

	frame, err = s.animation.Flash(c, &rpc.FlashRequest{State: animation.Error})
	require.NoError(t, err)
	assert.Equal(t, animation.Error, frame.State)

	frame, err = s.animation.Trigger(c, &rpc.TriggerRequest{Action: rpc.TriggerRespond, Text: "Congratulations, great work!"})
	require.NoError(t, err)
	assert.NotEmpty(t, frame.State)

	_, err = s.animation.Trigger(c, &rpc.TriggerRequest{Action: "dance"})
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	_, err = s.animation.Play(c, "")
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	seqs, err := s.animation.Sequences(c)
	require.NoError(t, err)
	require.Contains(t, seqs.Sequences, animation.Idle)
	assert.NotEmpty(t, seqs.Missing)
}

func TestVoiceService(t *testing.T) {
	s := newStack(t)
	c := ctx(t)

	st, err := s.voice.State(c)
	require.NoError(t, err)
	assert.Equal(t, "click", st.Mode)
	assert.Equal(t, config.BackendNone, st.Backend)

	st, err = s.voice.SetMode(c, "push")
	require.NoError(t, err)
	assert.Equal(t, "push", st.Mode)

	_, err = s.voice.SetMode(c, "loud")
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	_, err = s.voice.Control(c, rpc.VoiceStart)
	assert.Equal(t, codes.FailedPrecondition, codeOf(err))

	_, err = s.voice.Control(c, "shout")
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	_, err = s.voice.Speak(c, " ")
	assert.Equal(t, codes.InvalidArgument, codeOf(err))
}

func TestChatWatchStreamsMessages(t *testing.T) {
	s := newStack(t)
	c := ctx(t)

	before := s.bus.Subscribers()
	events, err := s.chat.Watch(c)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.bus.Subscribers() > before }, 2*time.Second, 10*time.Millisecond)

	_, err = s.chat.Send(c, &rpc.SendRequest{Text: "Hello there"})
	require.NoError(t, err)

	for {
		evt, err := events.Recv()
		require.NoError(t, err)
		if evt.Kind != bus.KindChatMessage {
			continue
		}
		var payload assistant.Event
		require.NoError(t, evt.Decode(&payload))
		assert.Equal(t, "test", evt.Profile)
		assert.NotEmpty(t, evt.ID)
		assert.Equal(t, "Hello there", payload.Message.Content)
		return
	}
}
