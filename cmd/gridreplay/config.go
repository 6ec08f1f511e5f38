package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/gridlink/internal/protocol/wire"
)

type replayConfig struct {
	Input      string
	Width      int
	Height     int
	Limits     wire.Limits
	PrintGrids bool
	PrintFrame bool
}

func defaultReplayConfig() replayConfig {
	return replayConfig{
		Width:      80,
		Height:     24,
		Limits:     wire.DefaultLimits(),
		PrintGrids: true,
	}
}

type fileConfig struct {
	Input           string `toml:"input"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	MaxBytes        int    `toml:"max_bytes"`
	MaxContainerLen int    `toml:"max_container_len"`
	MaxDepth        int    `toml:"max_depth"`
	PrintGrids      bool   `toml:"print_grids"`
	PrintFrame      bool   `toml:"print_frame"`
}

func loadReplayConfig(path string) (replayConfig, error) {
	cfg := defaultReplayConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return replayConfig{}, fmt.Errorf("load replay config: %w", err)
	}

	if meta.IsDefined("input") {
		cfg.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("width") {
		cfg.Width = raw.Width
	}
	if meta.IsDefined("height") {
		cfg.Height = raw.Height
	}
	if meta.IsDefined("max_bytes") {
		cfg.Limits.MaxBytesLen = raw.MaxBytes
	}
	if meta.IsDefined("max_container_len") {
		cfg.Limits.MaxContainerLen = raw.MaxContainerLen
	}
	if meta.IsDefined("max_depth") {
		cfg.Limits.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("print_grids") {
		cfg.PrintGrids = raw.PrintGrids
	}
	if meta.IsDefined("print_frame") {
		cfg.PrintFrame = raw.PrintFrame
	}

	if err := validateReplayConfig(cfg); err != nil {
		return replayConfig{}, err
	}
	return cfg, nil
}

func validateReplayConfig(cfg replayConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("replay size %dx%d must be positive", cfg.Width, cfg.Height)
	}
	if cfg.Limits.MaxBytesLen <= 0 || cfg.Limits.MaxContainerLen <= 0 || cfg.Limits.MaxDepth <= 0 {
		return fmt.Errorf("replay limits must be positive: %+v", cfg.Limits)
	}
	return nil
}
