package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/gridlink/internal/config"
	"github.com/danmuck/gridlink/internal/protocol/wire"
	"github.com/danmuck/gridlink/internal/testutil/testlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadReplayConfigTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "replay.toml")
	if err := config.WriteTemplate(path, "replay", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := loadReplayConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Input != "capture.msgpack" || cfg.Width != 80 || cfg.Height != 24 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Limits.MaxBytesLen != 64*1024*1024 || !cfg.PrintGrids {
		t.Fatalf("unexpected limits %+v", cfg.Limits)
	}
}

func TestLoadReplayConfigKeepsUndefinedDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadReplayConfig(writeConfig(t, `
width = 100
print_grids = false
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := wire.DefaultLimits()
	if cfg.Width != 100 || cfg.Height != 24 || cfg.PrintGrids {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.Limits != def {
		t.Fatalf("limits changed without keys: %+v", cfg.Limits)
	}
}

func TestLoadReplayConfigRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	if _, err := loadReplayConfig(writeConfig(t, "height = 0\n")); err == nil {
		t.Fatalf("expected size error")
	}
	if _, err := loadReplayConfig(writeConfig(t, "max_depth = -1\n")); err == nil {
		t.Fatalf("expected limits error")
	}
	if _, err := loadReplayConfig(writeConfig(t, "width = \"wide\"\n")); err == nil {
		t.Fatalf("expected decode error")
	}
}
