package daemon

import (
	"fmt"

	"github.com/matheus3301/charly/internal/config"
	"github.com/matheus3301/charly/internal/voice"
	"go.uber.org/zap"
)

// newVoiceBackends builds the recognizer and synthesizer named by
// voice.backend. Missing commands leave that half unavailable.
func newVoiceBackends(cfg *config.Config, logger *zap.Logger) (voice.Recognizer, voice.Synthesizer, error) {
	var (
		rec   voice.Recognizer  = voice.Unavailable{}
		synth voice.Synthesizer = voice.Unavailable{}
	)
	vc := cfg.Voice

	switch vc.Backend {
	case config.BackendCommand:
		if len(vc.STTCommand) > 0 {
			r, err := voice.NewCommandRecognizer(vc.STTCommand, vc.Language, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("voice.stt_command: %w", err)
			}
			rec = r
		}
		if len(vc.TTSCommand) > 0 {
			s, err := voice.NewCommandSynthesizer(vc.TTSCommand, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("voice.tts_command: %w", err)
			}
			synth = s
		}
	case config.BackendOpenAI:
		client, err := voice.NewOpenAIClient(vc.OpenAIKey, vc.OpenAIBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("voice openai: %w", err)
		}
		s, err := voice.NewOpenAISynthesizer(client, vc.OpenAIVoice, vc.PlayerCommand, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("voice.player_command: %w", err)
		}
		synth = s
		r, err := voice.NewOpenAIRecognizer(client, vc.RecordCommand, vc.Language, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("voice.record_command: %w", err)
		}
		rec = r
	default:
		logger.Info("voice disabled", zap.String("backend", vc.Backend))
	}
	return rec, synth, nil
}
