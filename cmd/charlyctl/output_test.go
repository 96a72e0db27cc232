package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/charly/internal/rpc"
)

func TestParseUser(t *testing.T) {
	name, email, password, err := parseUser("Ana:ana@example.com:s3:cret")
	if err != nil {
		t.Fatalf("parseUser() error = %v", err)
	}
	if name != "Ana" || email != "ana@example.com" || password != "s3:cret" {
		t.Errorf("got %q %q %q", name, email, password)
	}
	if _, _, _, err := parseUser("ana@example.com"); err == nil {
		t.Error("expected error for missing fields")
	}
}

func TestParseSwitch(t *testing.T) {
	if v, err := parseSwitch("On"); err != nil || !v {
		t.Errorf("parseSwitch(On) = %v, %v", v, err)
	}
	if v, err := parseSwitch("off"); err != nil || v {
		t.Errorf("parseSwitch(off) = %v, %v", v, err)
	}
	if _, err := parseSwitch("sometimes"); err == nil {
		t.Error("expected error")
	}
}

func TestFriendlyStripsCode(t *testing.T) {
	err := friendly(status.Error(codes.FailedPrecondition, "already signed in"))
	if err.Error() != "already signed in" {
		t.Errorf("friendly() = %q", err)
	}
	plain := errors.New("dial failed")
	if friendly(plain) != plain {
		t.Error("non-status errors should pass through")
	}
	if friendly(nil) != nil {
		t.Error("friendly(nil) should be nil")
	}
}

func TestPrintConversations(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printConversations(&buf, []rpc.Conversation{
		{ID: "42", Title: "Pasta", Favorite: true, Source: "local", UpdatedAt: now.Add(-2 * time.Hour).UnixMilli(),
			Messages: []rpc.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}},
	}, now)

	out := buf.String()
	for _, want := range []string{"ID", "★ Pasta", "2 hours ago", "local"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printConversations(&buf, nil, now)
	if !strings.Contains(buf.String(), "No conversations") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestPrintSequencesSorted(t *testing.T) {
	var buf bytes.Buffer
	printSequences(&buf, &rpc.SequencesResponse{
		Sequences: map[string][]rpc.Step{
			"thinking": {{Animation: "think-a", DurationMs: 1500}},
			"idle":     {{Animation: "cat-devil", DurationMs: 5000}},
		},
		Missing: []string{"think-a"},
	})
	out := buf.String()
	if strings.Index(out, "idle") > strings.Index(out, "thinking") {
		t.Errorf("sequences not sorted:\n%s", out)
	}
	if !strings.Contains(out, "cat-devil 5s") || !strings.Contains(out, "missing animation files: think-a") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVoiceSummary(t *testing.T) {
	got := voiceSummary(rpc.VoiceState{Mode: "auto", Backend: "openai", Listening: true, Muted: true})
	if got != "auto, backend openai, listening, muted" {
		t.Errorf("voiceSummary() = %q", got)
	}
}
