// Package logging picks the process log profile for gridlink binaries and
// tests and layers GRIDLINK_LOG_* environment overrides on top.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/gridlink/internal/logs"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "GRIDLINK_LOG_LEVEL"
	EnvLogTimestamp = "GRIDLINK_LOG_TIMESTAMP"
	EnvLogNoColor   = "GRIDLINK_LOG_NOCOLOR"
	EnvLogBypass    = "GRIDLINK_LOG_BYPASS"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
	// ProfileTerminal keeps the log quiet while a terminal render target owns the tty.
	ProfileTerminal
)

// Options selects a profile plus the [log] section of a client config.
// An empty Level and a nil Output keep the profile values.
type Options struct {
	Profile Profile
	Level   string
	Output  io.Writer
}

var setupOnce sync.Once

func ConfigureRuntime() {
	Setup(Options{Profile: ProfileRuntime})
}

func ConfigureTests() {
	Setup(Options{Profile: ProfileTest})
}

// Setup configures the process logger once; later calls are no-ops.
func Setup(opts Options) {
	setupOnce.Do(func() {
		logs.Configure(resolve(opts, os.Getenv))
	})
}

func resolve(opts Options, getenv func(string) string) logs.Config {
	cfg := profileConfig(opts.Profile)
	if lvl, ok := parseLevel(opts.Level); ok {
		cfg.Level = lvl
	}
	if opts.Output != nil {
		cfg.Output = opts.Output
	}
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	flags := []struct {
		env string
		dst *bool
	}{
		{EnvLogTimestamp, &cfg.Timestamp},
		{EnvLogNoColor, &cfg.NoColor},
		{EnvLogBypass, &cfg.Bypass},
	}
	for _, f := range flags {
		if v, err := strconv.ParseBool(strings.TrimSpace(getenv(f.env))); err == nil {
			*f.dst = v
		}
	}
	return cfg
}

func profileConfig(profile Profile) logs.Config {
	cfg := logs.DefaultConfig()
	switch profile {
	case ProfileTest:
		cfg.Level = logs.DebugLevel
		cfg.Timestamp = false
	case ProfileTerminal:
		cfg.Level = logs.ErrorLevel
		cfg.NoColor = true
	}
	return cfg
}

var levelAliases = map[string]logs.Level{
	"diagnostics": logs.TraceLevel,
	"warning":     logs.WarnLevel,
	"off":         logs.Disabled,
	"none":        logs.Disabled,
}

// parseLevel accepts zerolog level names plus a few aliases. zerolog's own
// numeric and "disabled" forms pass through.
func parseLevel(raw string) (logs.Level, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return logs.InfoLevel, false
	}
	if lvl, ok := levelAliases[raw]; ok {
		return lvl, true
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil || lvl == zerolog.NoLevel {
		return logs.InfoLevel, false
	}
	return lvl, true
}
