package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// NewOpenAIClient builds a go-openai client; baseURL may be empty.
func NewOpenAIClient(apiKey, baseURL string) (*openai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("voice.openai_api_key is required for the openai backend")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg), nil
}

// OpenAISynthesizer renders speech with the OpenAI audio API and pipes the
// MP3 stream into a player command.
type OpenAISynthesizer struct {
	client *openai.Client
	voice  openai.SpeechVoice
	player []string
	logger *zap.Logger
}

// NewOpenAISynthesizer creates a synthesizer. voice defaults to alloy.
func NewOpenAISynthesizer(client *openai.Client, voice string, player []string, logger *zap.Logger) (*OpenAISynthesizer, error) {
	if len(player) == 0 {
		return nil, errors.New("player_command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	v := openai.SpeechVoice(voice)
	if voice == "" {
		v = openai.VoiceAlloy
	}
	return &OpenAISynthesizer{client: client, voice: v, player: player, logger: logger}, nil
}

func (s *OpenAISynthesizer) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	speed := opts.Rate
	if speed <= 0 {
		speed = 1
	}
	speed = max(0.25, min(speed, 4))

	audio, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return fmt.Errorf("create speech: %w", err)
	}
	defer func() { _ = audio.Close() }()

	cmd := exec.CommandContext(ctx, s.player[0], s.player[1:]...)
	cmd.Stdin = audio
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", s.player[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// OpenAIRecognizer records a clip with a command until stopped (or until the
// command exits on its own) and transcribes it with Whisper.
// The record command receives the clip path in {file}.
type OpenAIRecognizer struct {
	client  *openai.Client
	record  []string
	lang    string
	timeout time.Duration
	logger  *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewOpenAIRecognizer creates a recognizer.
func NewOpenAIRecognizer(client *openai.Client, record []string, lang string, logger *zap.Logger) (*OpenAIRecognizer, error) {
	if len(record) == 0 {
		return nil, errors.New("record_command is empty")
	}
	if !hasPlaceholder(record, "file") {
		return nil, errors.New("record_command must contain {file}")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIRecognizer{client: client, record: record, lang: lang, timeout: time.Minute, logger: logger}, nil
}

func (r *OpenAIRecognizer) Start(ev Events) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return errors.New("recognizer already running")
	}

	dir, err := os.MkdirTemp("", "charly-voice-")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	clip := filepath.Join(dir, "clip.wav")
	args := Expand(r.record, map[string]string{"file": clip})
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	r.cmd = cmd

	go func() {
		defer func() { _ = os.RemoveAll(dir) }()
		ev.RecognitionStarted()
		_ = cmd.Wait()

		r.mu.Lock()
		r.cmd = nil
		r.mu.Unlock()

		text, err := r.transcribe(clip)
		if err != nil {
			ev.RecognitionFailed(err)
			return
		}
		if text != "" {
			ev.RecognitionResult([]Result{{Text: text, Final: true}})
		}
		ev.RecognitionEnded()
	}()
	return nil
}

func (r *OpenAIRecognizer) transcribe(clip string) (string, error) {
	info, err := os.Stat(clip)
	if err != nil || info.Size() == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: clip,
		Language: r.lang,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	r.logger.Debug("transcribed clip", zap.Int64("bytes", info.Size()), zap.Int("chars", len(resp.Text)))
	return strings.TrimSpace(resp.Text), nil
}

// Stop ends the recording with an interrupt so the recorder can finalise
// the file; transcription continues in the background.
func (r *OpenAIRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}
	if err := r.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("interrupt recorder: %w", err)
	}
	return nil
}
