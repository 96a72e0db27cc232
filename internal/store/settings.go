package store

import (
	"database/sql"
	"time"
)

// Setting keys persisted by the daemon.
const (
	SettingToken         = "auth.token"
	SettingUser          = "auth.user"
	SettingDeviceID      = "device.id"
	SettingMemoryEnabled = "chat.memory_enabled"
	SettingVoiceMode     = "voice.mode"
	SettingTTS           = "voice.tts"
)

// GetSetting returns a setting value and whether it was present.
func (db *DB) GetSetting(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting inserts or replaces a setting value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// DeleteSetting removes a setting. Missing keys are not an error.
func (db *DB) DeleteSetting(key string) error {
	_, err := db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}
