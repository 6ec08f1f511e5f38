package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/danmuck/gridlink/internal/logging"
	"github.com/danmuck/gridlink/internal/observability"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "replay config path (optional)")
	input := flag.String("input", "", "captured msgpack stream; overrides the config")
	frame := flag.Bool("frame", false, "print the composed frame after the grids")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.InitLogger("gridreplay")

	cfg := defaultReplayConfig()
	if *configPath != "" {
		loaded, err := loadReplayConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load replay config")
		}
		cfg = loaded
	}
	if *input != "" {
		cfg.Input = *input
	}
	if *frame {
		cfg.PrintFrame = true
	}
	if cfg.Input == "" {
		log.Fatal().Msg("no capture given: set input in the config or pass -input")
	}

	f, err := os.Open(cfg.Input)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open capture")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := replay(ctx, f, cfg)
	if err != nil {
		log.Error().Err(err).Str("input", cfg.Input).Msg("replay stopped early")
	}
	if sess == nil {
		os.Exit(1)
	}
	log.Info().
		Str("input", cfg.Input).
		Uint64("flushes", sess.Flushes()).
		Ints("order", sess.Order()).
		Msg("replay finished")

	if cfg.PrintGrids {
		if err := writeGrids(os.Stdout, sess); err != nil {
			log.Fatal().Err(err).Msg("failed to print grids")
		}
	}
	if cfg.PrintFrame {
		rows, err := composeFrame(sess, cfg.Width, cfg.Height)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to compose frame")
		}
		for _, row := range rows {
			fmt.Println(row)
		}
	}
}
