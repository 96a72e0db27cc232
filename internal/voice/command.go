package voice

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Expand replaces {name} placeholders in each argument. Arguments are
// substituted individually so values containing spaces stay one argument.
func Expand(argv []string, vars map[string]string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		for k, v := range vars {
			a = strings.ReplaceAll(a, "{"+k+"}", v)
		}
		out[i] = a
	}
	return out
}

func hasPlaceholder(argv []string, name string) bool {
	for _, a := range argv {
		if strings.Contains(a, "{"+name+"}") {
			return true
		}
	}
	return false
}

// CommandSynthesizer speaks by running a TTS program such as espeak-ng.
// Placeholders: {voice}, {rate} (words per minute, 175 at rate 1),
// {volume} (0-200, 100 at volume 1), {pitch} (0-99, 50 at pitch 1) and
// {text}. Without {text} the text is written to the program's stdin.
type CommandSynthesizer struct {
	argv   []string
	logger *zap.Logger
}

// NewCommandSynthesizer validates the command template.
func NewCommandSynthesizer(argv []string, logger *zap.Logger) (*CommandSynthesizer, error) {
	if len(argv) == 0 {
		return nil, errors.New("tts_command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandSynthesizer{argv: argv, logger: logger}, nil
}

func (s *CommandSynthesizer) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	vars := map[string]string{
		"voice":  opts.Voice,
		"rate":   strconv.Itoa(scale(opts.Rate, 175)),
		"volume": strconv.Itoa(scale(opts.Volume, 100)),
		"pitch":  strconv.Itoa(min(scale(opts.Pitch, 50), 99)),
		"text":   text,
	}
	args := Expand(s.argv, vars)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if !hasPlaceholder(s.argv, "text") {
		cmd.Stdin = strings.NewReader(text)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.logger.Debug("speaking", zap.String("program", args[0]), zap.Int("chars", len(text)))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func scale(f float64, base int) int {
	if f <= 0 {
		f = 1
	}
	return int(f*float64(base) + 0.5)
}

// CommandRecognizer runs a speech-to-text program and treats every line it
// prints on stdout as a final transcript. Lines starting with "~" are
// interim hypotheses. The {lang} placeholder is replaced by the language.
type CommandRecognizer struct {
	argv   []string
	lang   string
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewCommandRecognizer validates the command template.
func NewCommandRecognizer(argv []string, lang string, logger *zap.Logger) (*CommandRecognizer, error) {
	if len(argv) == 0 {
		return nil, errors.New("stt_command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandRecognizer{argv: argv, lang: lang, logger: logger}, nil
}

func (r *CommandRecognizer) Start(ev Events) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("recognizer already running")
	}

	args := Expand(r.argv, map[string]string{"lang": r.lang})
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	r.cancel = cancel
	r.stopped = false

	go func() {
		ev.RecognitionStarted()
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if interim, ok := strings.CutPrefix(line, "~"); ok {
				ev.RecognitionResult([]Result{{Text: strings.TrimSpace(interim)}})
				continue
			}
			ev.RecognitionResult([]Result{{Text: line, Final: true}})
		}
		err := cmd.Wait()

		r.mu.Lock()
		stopped := r.stopped
		r.cancel = nil
		r.mu.Unlock()
		cancel()

		if err != nil && !stopped {
			ev.RecognitionFailed(fmt.Errorf("%s: %w", args[0], err))
			return
		}
		ev.RecognitionEnded()
	}()
	return nil
}

func (r *CommandRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return nil
	}
	r.stopped = true
	r.cancel()
	return nil
}
