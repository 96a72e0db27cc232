package account

import (
	"strconv"

	"github.com/matheus3301/charly/internal/store"
)

// Preferences are the chat toggles persisted in settings. Defaults come
// from config.toml and apply until the user changes a value.
type Preferences struct {
	settings Settings

	MemoryDefault    bool
	AutoReadDefault  bool
	VoiceModeDefault string
}

// NewPreferences creates preferences backed by settings.
func NewPreferences(settings Settings, memory, autoRead bool, voiceMode string) *Preferences {
	return &Preferences{settings: settings, MemoryDefault: memory, AutoReadDefault: autoRead, VoiceModeDefault: voiceMode}
}

func (p *Preferences) boolean(key string, def bool) bool {
	v, ok, err := p.settings.GetSetting(key)
	if err != nil || !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// MemoryEnabled reports whether previous messages are sent as context.
func (p *Preferences) MemoryEnabled() bool {
	return p.boolean(store.SettingMemoryEnabled, p.MemoryDefault)
}

// SetMemoryEnabled persists the memory toggle.
func (p *Preferences) SetMemoryEnabled(on bool) error {
	return p.settings.SetSetting(store.SettingMemoryEnabled, strconv.FormatBool(on))
}

// AutoRead reports whether replies are read aloud.
func (p *Preferences) AutoRead() bool {
	return p.boolean(store.SettingTTS, p.AutoReadDefault)
}

// SetAutoRead persists the auto-read toggle.
func (p *Preferences) SetAutoRead(on bool) error {
	return p.settings.SetSetting(store.SettingTTS, strconv.FormatBool(on))
}

// VoiceMode returns the saved voice activation mode.
func (p *Preferences) VoiceMode() string {
	v, ok, err := p.settings.GetSetting(store.SettingVoiceMode)
	if err != nil || !ok || v == "" {
		return p.VoiceModeDefault
	}
	return v
}

// SetVoiceMode persists the voice activation mode.
func (p *Preferences) SetVoiceMode(mode string) error {
	return p.settings.SetSetting(store.SettingVoiceMode, mode)
}
