package session

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory.
const HomeEnv = "APURIMAC_HOME"

// BaseDir returns $APURIMAC_HOME, or ~/.apurimac.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".apurimac")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// SocketPath returns the UDS socket path for a session.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// LockPath returns the lock file path for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the document and account database of a session.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "apurimac.db")
}

// BlobDir returns where the file blob backend keeps uploads.
func BlobDir(name string) string {
	return filepath.Join(Dir(name), "blobs")
}

// TokenPath returns the persisted auth session token.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "session.token")
}

// SecretPath returns the generated token signing secret.
func SecretPath(name string) string {
	return filepath.Join(Dir(name), "secret")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "apurimacd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name), BlobDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
