package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Duration reads TOML strings such as "250ms" or "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ClientConfig struct {
	Name    string        `toml:"name"`
	Peer    PeerConfig    `toml:"peer"`
	UI      UIConfig      `toml:"ui"`
	RPC     RPCConfig     `toml:"rpc"`
	Inspect InspectConfig `toml:"inspect"`
	Render  RenderConfig  `toml:"render"`
	Log     LogConfig     `toml:"log"`
}

type PeerConfig struct {
	Network            string   `toml:"network"`
	Address            string   `toml:"address"`
	ConnectTimeout     Duration `toml:"connect_timeout"`
	MaxConnectAttempts int      `toml:"max_connect_attempts"`
}

type UIConfig struct {
	Width         int  `toml:"width"`
	Height        int  `toml:"height"`
	ExtMultigrid  bool `toml:"ext_multigrid"`
	ExtMessages   bool `toml:"ext_messages"`
	ExtHlState    bool `toml:"ext_hlstate"`
	ExtTermColors bool `toml:"ext_termcolors"`
}

type RPCConfig struct {
	RequestTimeout Duration `toml:"request_timeout"`
	WriteTimeout   Duration `toml:"write_timeout"`
}

type InspectConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// Token, when set, is required as a bearer token on data routes.
	Token string `toml:"token"`
}

type RenderConfig struct {
	// Target is "terminal", "accelerated" or "none".
	Target string `toml:"target"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultClientConfig is the base that file values are decoded over.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Name: "gridlink",
		Peer: PeerConfig{
			Network:            "unix",
			ConnectTimeout:     Duration{5 * time.Second},
			MaxConnectAttempts: 5,
		},
		UI: UIConfig{
			Width:        120,
			Height:       40,
			ExtMultigrid: true,
			ExtHlState:   true,
		},
		RPC: RPCConfig{
			WriteTimeout: Duration{15 * time.Second},
		},
		Inspect: InspectConfig{
			Addr: "127.0.0.1:9400",
		},
		Render: RenderConfig{Target: "terminal"},
		Log:    LogConfig{Level: "info"},
	}
}

func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "gridlink"
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Peer.Network)) {
	case "unix", "tcp", "tcp4", "tcp6":
	default:
		return fmt.Errorf("%w: peer network %q (want unix or tcp)", ErrInvalidConfig, cfg.Peer.Network)
	}
	if strings.TrimSpace(cfg.Peer.Address) == "" {
		return fmt.Errorf("%w: peer address is required", ErrInvalidConfig)
	}
	if cfg.Peer.MaxConnectAttempts < 1 {
		return fmt.Errorf("%w: peer max_connect_attempts must be at least 1", ErrInvalidConfig)
	}
	if cfg.Peer.ConnectTimeout.Duration < 0 || cfg.RPC.RequestTimeout.Duration < 0 || cfg.RPC.WriteTimeout.Duration < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if cfg.UI.Width <= 0 || cfg.UI.Height <= 0 {
		return fmt.Errorf("%w: ui size %dx%d must be positive", ErrInvalidConfig, cfg.UI.Width, cfg.UI.Height)
	}
	if cfg.Inspect.Enabled && strings.TrimSpace(cfg.Inspect.Addr) == "" {
		return fmt.Errorf("%w: inspect addr is required when inspect is enabled", ErrInvalidConfig)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Render.Target)) {
	case "", "terminal", "accelerated", "none":
	default:
		return fmt.Errorf("%w: render target %q", ErrInvalidConfig, cfg.Render.Target)
	}
	return nil
}
