package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of environment variables that override config.toml.
const EnvPrefix = "charly"

// Config represents the global ~/.charly/config.toml.
type Config struct {
	DefaultProfile string   `toml:"default_profile" envconfig:"default_profile"`
	APIURL         string   `toml:"api_url" envconfig:"api_url"`
	AccountURL     string   `toml:"account_url" envconfig:"account_url"`
	DeviceName     string   `toml:"device_name" envconfig:"device_name"`
	MaxHistory     int      `toml:"max_history" envconfig:"max_history"`
	MemoryEnabled  bool     `toml:"memory_enabled" envconfig:"memory_enabled"`
	WebSearch      bool     `toml:"web_search" envconfig:"web_search"`
	Theme          string   `toml:"theme" envconfig:"theme"`
	IdleTimeout    Duration `toml:"idle_timeout" envconfig:"idle_timeout"`
	RequestTimeout Duration `toml:"request_timeout" envconfig:"request_timeout"`
	RatePerSecond  float64  `toml:"rate_per_second" envconfig:"rate_per_second"`

	Voice VoiceConfig `toml:"voice" envconfig:"voice"`
	TTS   TTSConfig   `toml:"tts" envconfig:"tts"`
}

// VoiceConfig selects the speech recognition and synthesis backends.
type VoiceConfig struct {
	Mode          string   `toml:"mode" envconfig:"mode"`
	Language      string   `toml:"language" envconfig:"language"`
	Backend       string   `toml:"backend" envconfig:"backend"`
	STTCommand    []string `toml:"stt_command" envconfig:"stt_command"`
	RecordCommand []string `toml:"record_command" envconfig:"record_command"`
	TTSCommand    []string `toml:"tts_command" envconfig:"tts_command"`
	PlayerCommand []string `toml:"player_command" envconfig:"player_command"`
	OpenAIKey     string   `toml:"openai_api_key" envconfig:"openai_api_key"`
	OpenAIBaseURL string   `toml:"openai_base_url" envconfig:"openai_base_url"`
	OpenAIVoice   string   `toml:"openai_voice" envconfig:"openai_voice"`
}

// TTSConfig holds the speech output preferences.
type TTSConfig struct {
	AutoRead bool    `toml:"auto_read" envconfig:"auto_read"`
	Voice    string  `toml:"voice" envconfig:"voice"`
	Rate     float64 `toml:"rate" envconfig:"rate"`
	Volume   float64 `toml:"volume" envconfig:"volume"`
	Pitch    float64 `toml:"pitch" envconfig:"pitch"`
}

// Voice backends.
const (
	BackendNone    = "none"
	BackendCommand = "command"
	BackendOpenAI  = "openai"
)

// Default returns the configuration used when no file or variable sets a value.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		APIURL:         "http://127.0.0.1:8000/api",
		AccountURL:     "http://127.0.0.1:8000/register",
		DeviceName:     "charly-terminal",
		MaxHistory:     300,
		MemoryEnabled:  true,
		WebSearch:      true,
		Theme:          "dark",
		IdleTimeout:    Duration{30 * time.Second},
		RequestTimeout: Duration{60 * time.Second},
		RatePerSecond:  2,
		Voice: VoiceConfig{
			Mode:          "click",
			Language:      "fr",
			Backend:       BackendNone,
			TTSCommand:    []string{"espeak-ng", "-v", "{voice}", "-s", "{rate}", "-a", "{volume}", "-p", "{pitch}", "{text}"},
			RecordCommand: []string{"arecord", "-q", "-f", "cd", "-t", "wav", "{file}"},
			PlayerCommand: []string{"mpv", "--really-quiet", "--no-video", "-"},
			OpenAIVoice:   "alloy",
		},
		TTS: TTSConfig{
			AutoRead: false,
			Voice:    "fr",
			Rate:     0.9,
			Volume:   1,
			Pitch:    1,
		},
	}
}

// Load reads config from the given path on top of Default. Returns error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv reads config.toml when present and applies CHARLY_* environment
// overrides. A missing file is not an error.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Voice.Mode {
	case "click", "auto", "push":
	default:
		return fmt.Errorf("voice.mode %q: must be click, auto or push", c.Voice.Mode)
	}
	switch c.Voice.Backend {
	case BackendNone, BackendCommand, BackendOpenAI:
	default:
		return fmt.Errorf("voice.backend %q: must be none, command or openai", c.Voice.Backend)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("max_history must be positive, got %d", c.MaxHistory)
	}
	if c.TTS.Rate < 0.1 || c.TTS.Rate > 10 {
		return fmt.Errorf("tts.rate %.2f out of range [0.1, 10]", c.TTS.Rate)
	}
	if c.TTS.Volume < 0 || c.TTS.Volume > 1 {
		return fmt.Errorf("tts.volume %.2f out of range [0, 1]", c.TTS.Volume)
	}
	return nil
}

// Usage prints the environment variables understood by LoadWithEnv.
func Usage() error {
	return envconfig.Usage(EnvPrefix, Default())
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := Encode(f, cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Duration is a time.Duration written as "30s" in TOML and env values.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}
