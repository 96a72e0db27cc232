package voice

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	got := Expand([]string{"espeak-ng", "-v", "{voice}", "{text}"}, map[string]string{
		"voice": "fr",
		"text":  "bonjour à tous",
	})
	assert.Equal(t, []string{"espeak-ng", "-v", "fr", "bonjour à tous"}, got)
}

func TestCommandSynthesizerWritesStdin(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	out := filepath.Join(t.TempDir(), "spoken.txt")
	s, err := NewCommandSynthesizer([]string{"sh", "-c", "cat > " + out + "; echo {rate} >> " + out}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Speak(context.Background(), "hello", SpeakOptions{Rate: 0.9}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello158\n", string(data))
}

type recordedEvents struct {
	mu      sync.Mutex
	started bool
	results []Result
	ended   chan struct{}
	err     error
}

func (e *recordedEvents) RecognitionStarted() {
	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
}

func (e *recordedEvents) RecognitionResult(r []Result) {
	e.mu.Lock()
	e.results = append(e.results, r...)
	e.mu.Unlock()
}

func (e *recordedEvents) RecognitionEnded() { close(e.ended) }

func (e *recordedEvents) RecognitionFailed(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	close(e.ended)
}

func TestCommandRecognizerReadsLines(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r, err := NewCommandRecognizer([]string{"sh", "-c", "echo '~ope'; echo 'open history'; echo {lang}"}, "fr", nil)
	require.NoError(t, err)

	ev := &recordedEvents{ended: make(chan struct{})}
	require.NoError(t, r.Start(ev))

	select {
	case <-ev.ended:
	case <-time.After(5 * time.Second):
		t.Fatal("recognizer did not end")
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	require.NoError(t, ev.err)
	assert.True(t, ev.started)
	assert.Equal(t, []Result{
		{Text: "ope"},
		{Text: "open history", Final: true},
		{Text: "fr", Final: true},
	}, ev.results)
}

func TestCommandTemplatesRequired(t *testing.T) {
	_, err := NewCommandSynthesizer(nil, nil)
	assert.Error(t, err)
	_, err = NewCommandRecognizer(nil, "fr", nil)
	assert.Error(t, err)
	_, err = NewOpenAIRecognizer(nil, []string{"arecord"}, "fr", nil)
	assert.Error(t, err)
}
