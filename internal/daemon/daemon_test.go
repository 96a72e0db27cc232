package daemon

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/matheus3301/charly/internal/config"
	"github.com/matheus3301/charly/internal/devserver"
	"github.com/matheus3301/charly/internal/lock"
	"github.com/matheus3301/charly/internal/profile"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/status"
	"github.com/matheus3301/charly/internal/voice"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func waitStatus(t *testing.T, client *rpc.SessionClient, cond func(*rpc.StatusResponse) bool) *rpc.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := client.Status(context.Background(), &rpc.StatusRequest{})
		if err == nil && cond(resp) {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("status condition not met, last = %+v, err = %v", resp, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	// Use a short path to avoid the 104-char Unix socket limit on macOS.
	tmpDir, err := os.MkdirTemp("/tmp", "charly-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	profile.SetBaseDir(tmpDir)
	defer profile.SetBaseDir("")

	dev := devserver.New(nil, devserver.WithUser("Ada", "ada@example.com", "secret"))
	ts := httptest.NewServer(dev.Handler())
	defer ts.Close()

	cfg := config.Default()
	cfg.APIURL = ts.URL + "/api"

	const name = "test"
	app := fxtest.New(t, fx.NopLogger, Module(Params{ProfileName: name, Config: cfg}))
	app.RequireStart()

	if !lock.Held(profile.Dir(name)) {
		t.Error("expected profile lock to be held")
	}

	conn, err := rpc.Dial(profile.SocketPath(name))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	session := rpc.NewSessionClient(conn)
	resp := waitStatus(t, session, func(r *rpc.StatusResponse) bool { return r.Status != string(status.Booting) })
	if resp.Status != string(status.SignedOut) {
		t.Errorf("status = %s, want SIGNED_OUT", resp.Status)
	}
	if resp.Profile != name {
		t.Errorf("profile = %q, want %q", resp.Profile, name)
	}

	if _, err := session.Login(context.Background(), &rpc.LoginRequest{Email: "ada@example.com", Password: "secret"}); err != nil {
		t.Fatalf("Login error = %v", err)
	}
	dev.Seed("ada@example.com", "Earlier question", "Earlier answer")

	// The sync engine reacts to READY and records a checkpoint.
	resp = waitStatus(t, session, func(r *rpc.StatusResponse) bool { return r.LastSync != nil })
	if resp.Status != string(status.Ready) {
		t.Errorf("status = %s, want READY", resp.Status)
	}

	chat := rpc.NewChatClient(conn)
	reply, err := chat.Send(context.Background(), &rpc.SendRequest{Text: "What should I learn first?"})
	if err != nil {
		t.Fatalf("Send error = %v", err)
	}
	if reply.Failed {
		t.Errorf("reply failed: %q", reply.Message.Content)
	}

	list, err := rpc.NewHistoryClient(conn).List(context.Background(), &rpc.ListRequest{Query: "learn"})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(list.Conversations) == 0 {
		t.Error("expected the new conversation in history")
	}

	app.RequireStop()

	if _, err := os.Stat(profile.SocketPath(name)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("socket still present after stop: %v", err)
	}
	if lock.Held(profile.Dir(name)) {
		t.Error("expected lock to be released")
	}
}

func TestNewVoiceBackends(t *testing.T) {
	logger := zap.NewNop()

	cfg := config.Default()
	rec, synth, err := newVoiceBackends(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.(voice.Unavailable); !ok {
		t.Errorf("recognizer = %T, want Unavailable", rec)
	}
	if _, ok := synth.(voice.Unavailable); !ok {
		t.Errorf("synthesizer = %T, want Unavailable", synth)
	}

	cfg.Voice.Backend = config.BackendCommand
	rec, synth, err = newVoiceBackends(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.(voice.Unavailable); !ok {
		t.Errorf("recognizer without stt_command = %T, want Unavailable", rec)
	}
	if _, ok := synth.(*voice.CommandSynthesizer); !ok {
		t.Errorf("synthesizer = %T, want *CommandSynthesizer", synth)
	}

	cfg.Voice.Backend = config.BackendOpenAI
	cfg.Voice.OpenAIKey = ""
	if _, _, err := newVoiceBackends(cfg, logger); err == nil {
		t.Error("expected error without an OpenAI key")
	}

	cfg.Voice.OpenAIKey = "sk-test"
	rec, synth, err = newVoiceBackends(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.(*voice.OpenAIRecognizer); !ok {
		t.Errorf("recognizer = %T, want *OpenAIRecognizer", rec)
	}
	if _, ok := synth.(*voice.OpenAISynthesizer); !ok {
		t.Errorf("synthesizer = %T, want *OpenAISynthesizer", synth)
	}
}
