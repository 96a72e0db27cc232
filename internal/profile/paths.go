package profile

import (
	"os"
	"path/filepath"
)

// baseDirOverride lets tests and CHARLY_HOME relocate the data directory.
var baseDirOverride = os.Getenv("CHARLY_HOME")

// BaseDir returns ~/.charly (or $CHARLY_HOME).
func BaseDir() string {
	if baseDirOverride != "" {
		return baseDirOverride
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".charly")
}

// SetBaseDir overrides BaseDir. An empty dir restores the default.
func SetBaseDir(dir string) {
	baseDirOverride = dir
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the UDS socket path for a profile.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// AppDBPath returns the app-owned charly.db path.
func AppDBPath(name string) string {
	return filepath.Join(Dir(name), "charly.db")
}

// AnimationsDir returns the directory holding the mascot's Lottie files.
func AnimationsDir(name string) string {
	return filepath.Join(Dir(name), "animations")
}

// SequencesPath returns the optional animation sequence override file.
func SequencesPath(name string) string {
	return filepath.Join(Dir(name), "sequences.yaml")
}

// ExportDir returns the directory conversation exports are written to.
func ExportDir(name string) string {
	return filepath.Join(Dir(name), "exports")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "charlyd.log")
}

// TUILogPath returns the terminal UI log file path.
func TUILogPath(name string) string {
	return filepath.Join(LogDir(name), "charly.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
		ExportDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
