package envutil

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDev checks if we're running in development mode
// where plain-HTTP backends are expected
func IsDev() bool {
	env := strings.ToLower(os.Getenv("FINFRONT_ENV"))
	return env == "development" || env == "dev"
}

// ConfigDir returns the per-user directory holding config and credentials.
// FINFRONT_HOME wins over the platform default.
func ConfigDir() string {
	if dir := os.Getenv("FINFRONT_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "finfront")
	}
	return ".finfront"
}
