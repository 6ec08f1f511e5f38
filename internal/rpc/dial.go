package rpc

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/danmuck/gridlink/internal/logs"
)

// Dial connects to a listening peer, retrying with backoff. The returned
// Conn is not started so handlers can be registered first.
func Dial(ctx context.Context, cfg DialConfig) (*Conn, error) {
	network := cfg.Network
	if network == "" {
		network = "unix"
	}
	attempts := cfg.MaxConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
		nc, err := dialer.DialContext(ctx, network, cfg.Address)
		if err == nil {
			logs.Infof("rpc.Dial connected network=%s addr=%q attempt=%d", network, cfg.Address, attempt)
			return New(nc, cfg.Conn), nil
		}
		lastErr = err
		logs.Warnf("rpc.Dial attempt failed network=%s addr=%q attempt=%d err=%v", network, cfg.Address, attempt, err)
		if attempt == attempts {
			break
		}
		if err := sleepBackoff(ctx, NextBackoffDelay(cfg.Backoff, attempt, rng)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s %q after %d attempts: %w", ErrDialFailed, network, cfg.Address, attempts, lastErr)
}
