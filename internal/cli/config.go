package cli

import (
	"os"
	"strconv"
	"time"

	"github.com/mcoot/miniapp-session/internal/prefs"
)

// Config holds CLI configuration
type Config struct {
	ServerURL    string
	PrefsFile    string
	Output       string
	Dev          bool
	Verbose      bool
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    getEnvOrDefault("MINIAPP_SERVER", "http://localhost:8080"),
		PrefsFile:    getEnvOrDefault("MINIAPP_PREFS_FILE", prefs.DefaultPath()),
		Output:       "text",
		Dev:          getEnvBool("MINIAPP_DEV", false),
		Verbose:      false,
		Timeout:      30 * time.Second,
		PollInterval: 3 * time.Second,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}
