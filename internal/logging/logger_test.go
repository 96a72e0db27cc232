package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "charlyd.log")

	logger, err := New(path, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(strings.Split(string(data), "\n")[0])
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["msg"] != "hello" || entry["profile"] != "test" {
		t.Errorf("entry = %v, want msg=hello profile=test", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("entry has no ts key")
	}
}

func TestNewFileWritesOnlyToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charly.log")

	logger, err := NewFile(path, "work")
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	logger.Warn("reconnecting")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"reconnecting"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
