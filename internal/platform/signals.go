package platform

import (
	"os"
	"strings"
)

// InitDataEnv is the environment variable carrying the host-provided init data
const InitDataEnv = "TELEGRAM_INIT_DATA"

// Signals exposes the live embedded-platform signal
type Signals interface {
	// InitData returns the host-provided initialization data, empty outside the host
	InitData() string
}

// EnvSignals reads init data from an environment variable
type EnvSignals struct {
	Var string
}

// NewEnvSignals reads TELEGRAM_INIT_DATA
func NewEnvSignals() EnvSignals {
	return EnvSignals{Var: InitDataEnv}
}

func (s EnvSignals) InitData() string {
	return strings.TrimSpace(os.Getenv(s.Var))
}

// StaticSignals returns a fixed init data string
type StaticSignals string

func (s StaticSignals) InitData() string {
	return string(s)
}
