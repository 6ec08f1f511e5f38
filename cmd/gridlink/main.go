package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/gridlink/internal/config"
	"github.com/danmuck/gridlink/internal/inspect"
	"github.com/danmuck/gridlink/internal/logging"
	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/observability"
	"github.com/danmuck/gridlink/internal/render"
	"github.com/danmuck/gridlink/internal/rpc"
	"github.com/danmuck/gridlink/internal/session"
	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
)

const detachTimeout = 2 * time.Second

func main() {
	configPath := flag.String("config", "cmd/gridlink/config.toml", "client config path")
	addr := flag.String("addr", "", "peer address override (socket path or host:port)")
	network := flag.String("network", "", "peer network override: unix|tcp")
	target := flag.String("render", "", "render target override: terminal|none")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *network, *addr, *target)
	if err != nil {
		observability.InitLogger("gridlink")
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load client config")
	}

	logOut, closeLog := openLogOutput(cfg)
	defer closeLog()
	profile := logging.ProfileRuntime
	if renderTarget(cfg) == "terminal" && cfg.Log.File == "" {
		profile = logging.ProfileTerminal
	}
	logging.Setup(logging.Options{Profile: profile, Level: cfg.Log.Level, Output: logOut})
	if logOut != nil {
		observability.InitLoggerTo("gridlink", logOut)
	} else if profile == logging.ProfileTerminal {
		observability.InitLoggerTo("gridlink", io.Discard)
	} else {
		observability.InitLogger("gridlink")
	}
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("gridlink stopped")
		stop()
		closeLog()
		os.Exit(1)
	}
}

func loadConfig(path, network, addr, target string) (config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || addr == "" {
			return config.ClientConfig{}, err
		}
		cfg = config.DefaultClientConfig()
	}
	if network != "" {
		cfg.Peer.Network = network
	}
	if addr != "" {
		cfg.Peer.Address = addr
	}
	if target != "" {
		cfg.Render.Target = target
	}
	return cfg, config.ValidateClientConfig(cfg)
}

func renderTarget(cfg config.ClientConfig) string {
	t := strings.ToLower(strings.TrimSpace(cfg.Render.Target))
	if t == "" {
		return "terminal"
	}
	return t
}

func openLogOutput(cfg config.ClientConfig) (io.Writer, func()) {
	if cfg.Log.File == "" {
		return nil, func() {}
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logs.Warnf("gridlink.openLogOutput path=%s err=%v", cfg.Log.File, err)
		return nil, func() {}
	}
	return f, func() { _ = f.Close() }
}

func run(ctx context.Context, stop context.CancelFunc, cfg config.ClientConfig) error {
	dialCfg := rpc.DefaultDialConfig(cfg.Peer.Network, cfg.Peer.Address)
	dialCfg.ConnectTimeout = cfg.Peer.ConnectTimeout.Duration
	dialCfg.MaxConnectAttempts = cfg.Peer.MaxConnectAttempts
	dialCfg.Conn.RequestTimeout = cfg.RPC.RequestTimeout.Duration
	dialCfg.Conn.WriteTimeout = cfg.RPC.WriteTimeout.Duration

	conn, err := rpc.Dial(ctx, dialCfg)
	if err != nil {
		return err
	}
	sess := session.New(conn, session.Config{
		ExtMultigrid:  cfg.UI.ExtMultigrid,
		ExtMessages:   cfg.UI.ExtMessages,
		ExtHlState:    cfg.UI.ExtHlState,
		ExtTermColors: cfg.UI.ExtTermColors,
	})
	defer func() { _ = sess.Close() }()

	width, height := cfg.UI.Width, cfg.UI.Height
	var screen tcell.Screen
	switch renderTarget(cfg) {
	case "terminal":
		screen, err = tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := screen.Init(); err != nil {
			return err
		}
		defer screen.Fini()
		width, height = screen.Size()
		sess.OnFlush(func() {
			if err := render.Draw(render.TargetTerminal, screen, sess); err != nil {
				logs.Warnf("gridlink.run draw err=%v", err)
			}
		})
	case "accelerated":
		return render.ErrUnsupportedTarget
	}

	// The connection outlives ctx so the ui can detach after a signal.
	connCtx, cancelConn := context.WithCancel(context.Background())
	defer cancelConn()
	if err := sess.Start(connCtx); err != nil {
		return err
	}
	if cfg.Inspect.Enabled {
		srv := inspect.New(sess.ID, cfg.Inspect.Addr, cfg.Inspect.CorsOrigins, cfg.Inspect.Token, sess)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Error().Err(err).Str("addr", cfg.Inspect.Addr).Msg("inspect server stopped")
			}
		}()
	}

	if err := sess.Attach(ctx, width, height); err != nil {
		return err
	}
	log.Info().
		Str("session", sess.ID).
		Str("peer", cfg.Peer.Address).
		Int("width", width).
		Int("height", height).
		Msg("ui attached")

	if screen != nil {
		go pollScreen(ctx, stop, screen, sess)
	}

	return awaitShutdown(ctx, sess, detachTimeout)
}

// awaitShutdown blocks until ctx ends or the peer disconnects. When ctx ends
// the ui is detached before the connection closes.
func awaitShutdown(ctx context.Context, sess *session.Session, timeout time.Duration) error {
	select {
	case <-ctx.Done():
		detachCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := sess.Shutdown(detachCtx); err != nil {
			logs.Warnf("gridlink.awaitShutdown id=%s err=%v", sess.ID, err)
		}
		return ctx.Err()
	case <-sess.Done():
		return sess.Err()
	}
}

// pollScreen forwards terminal resizes to the peer. Ctrl-C and Ctrl-Q quit;
// other input is not translated into editor commands.
func pollScreen(ctx context.Context, stop context.CancelFunc, screen tcell.Screen, sess *session.Session) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case *tcell.EventResize:
			w, h := e.Size()
			if err := sess.TryResize(ctx, w, h); err != nil {
				logs.Warnf("gridlink.pollScreen resize w=%d h=%d err=%v", w, h, err)
			}
			screen.Sync()
		case *tcell.EventKey:
			if e.Key() == tcell.KeyCtrlC || e.Key() == tcell.KeyCtrlQ {
				stop()
				return
			}
		}
	}
}
