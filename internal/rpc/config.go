package rpc

import (
	"time"

	"github.com/danmuck/gridlink/internal/protocol/wire"
)

// BackoffConfig defines retry backoff behavior for Dial.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines per-connection behavior.
type Config struct {
	// RequestTimeout adds a default deadline to Call. Zero waits until the
	// response arrives, the caller's context ends or the connection closes.
	RequestTimeout time.Duration
	// WriteTimeout bounds one outbound Write on streams with SetWriteDeadline.
	WriteTimeout time.Duration
	Limits       wire.Limits
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 0,
		WriteTimeout:   15 * time.Second,
		Limits:         wire.DefaultLimits(),
	}
}

// DialConfig describes how to reach a listening peer.
type DialConfig struct {
	Network            string
	Address            string
	ConnectTimeout     time.Duration
	MaxConnectAttempts int
	Backoff            BackoffConfig
	Conn               Config
}

func DefaultDialConfig(network, address string) DialConfig {
	return DialConfig{
		Network:            network,
		Address:            address,
		ConnectTimeout:     5 * time.Second,
		MaxConnectAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		Conn: DefaultConfig(),
	}
}
