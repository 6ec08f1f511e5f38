// Package session ties one peer connection to the editor state it drives.
//
// Ownership boundary:
// - highlight table, grid engine, options and ui state for one attached ui
// - ui attach, resize and detach requests
// - the read interface used by render and inspect
//
// State is written only by the connection's dispatch goroutine. Readers take
// the read lock per call; flush callbacks run without it held.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/gridlink/internal/grid"
	"github.com/danmuck/gridlink/internal/highlight"
	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/redraw"
	"github.com/danmuck/gridlink/internal/rpc"
	"github.com/google/uuid"
)

var (
	ErrNotAttached     = errors.New("session: ui not attached")
	ErrAlreadyAttached = errors.New("session: ui already attached")
	ErrInvalidSize     = errors.New("session: width and height must be positive")
)

// Config selects the ui extensions requested on attach.
type Config struct {
	ExtMultigrid  bool
	ExtMessages   bool
	ExtHlState    bool
	ExtTermColors bool
}

func DefaultConfig() Config {
	return Config{
		ExtMultigrid: true,
		ExtHlState:   true,
	}
}

// attachOptions is the options map of nvim_ui_attach. rgb and ext_linegrid
// are always on; the grid engine only understands the linegrid events.
func (c Config) attachOptions() value.Value {
	return value.Map(
		value.Entry("rgb", value.Bool(true)),
		value.Entry("ext_linegrid", value.Bool(true)),
		value.Entry("ext_multigrid", value.Bool(c.ExtMultigrid)),
		value.Entry("ext_messages", value.Bool(c.ExtMessages)),
		value.Entry("ext_hlstate", value.Bool(c.ExtHlState)),
		value.Entry("ext_termcolors", value.Bool(c.ExtTermColors)),
	)
}

type Session struct {
	ID      string
	Created time.Time

	conn *rpc.Conn
	cfg  Config

	mu         sync.RWMutex
	hl         *highlight.State
	grids      *grid.Engine
	options    *redraw.Options
	ui         *redraw.UIState
	dispatcher *redraw.Dispatcher

	flushMu  sync.Mutex
	onFlush  []func()
	flushes  atomic.Uint64
	attached atomic.Bool
}

// New builds the session state and registers the redraw handler on conn.
// Register before conn.Start so no early redraw is missed.
func New(conn *rpc.Conn, cfg Config) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		conn:    conn,
		cfg:     cfg,
		hl:      highlight.NewState(),
		grids:   grid.NewEngine(),
		options: redraw.NewOptions(),
		ui:      &redraw.UIState{},
	}
	s.dispatcher = redraw.NewDispatcher(s.grids, s.hl, s.options, s.ui, &s.mu)
	s.dispatcher.OnFlush(s.fireFlush)
	conn.HandleNotification("redraw", s.dispatcher.HandleRedraw)
	conn.OnDisconnect(func(err error) {
		s.attached.Store(false)
		logs.Infof("session.Session disconnected id=%s err=%v", s.ID, err)
	})
	logs.Debugf("session.New id=%s multigrid=%v messages=%v", s.ID, cfg.ExtMultigrid, cfg.ExtMessages)
	return s
}

// Start starts the underlying connection.
func (s *Session) Start(ctx context.Context) error {
	return s.conn.Start(ctx)
}

// Attach asks the peer to start sending redraw for a width x height ui.
func (s *Session) Attach(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}
	if !s.attached.CompareAndSwap(false, true) {
		return ErrAlreadyAttached
	}
	_, err := s.conn.Call(ctx, "nvim_ui_attach",
		value.Int(int64(width)),
		value.Int(int64(height)),
		s.cfg.attachOptions(),
	)
	if err != nil {
		s.attached.Store(false)
		logs.Warnf("session.Session.Attach failed id=%s err=%v", s.ID, err)
		return err
	}
	logs.Infof("session.Session.Attach id=%s size=%dx%d", s.ID, width, height)
	return nil
}

// Attached reports whether an attach succeeded and no detach or disconnect followed.
func (s *Session) Attached() bool {
	return s.attached.Load()
}

func (s *Session) TryResize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}
	if !s.attached.Load() {
		return ErrNotAttached
	}
	_, err := s.conn.Call(ctx, "nvim_ui_try_resize", value.Int(int64(width)), value.Int(int64(height)))
	return err
}

// TryResizeGrid requests a size for one grid; it needs ext_multigrid.
func (s *Session) TryResizeGrid(ctx context.Context, gridID, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}
	if !s.attached.Load() {
		return ErrNotAttached
	}
	_, err := s.conn.Call(ctx, "nvim_ui_try_resize_grid",
		value.Int(int64(gridID)),
		value.Int(int64(width)),
		value.Int(int64(height)),
	)
	return err
}

// SetUIOption changes one attach option on a live ui.
func (s *Session) SetUIOption(ctx context.Context, name string, v value.Value) error {
	if !s.attached.Load() {
		return ErrNotAttached
	}
	_, err := s.conn.Call(ctx, "nvim_ui_set_option", value.String(name), v)
	return err
}

func (s *Session) Detach(ctx context.Context) error {
	if !s.attached.CompareAndSwap(true, false) {
		return ErrNotAttached
	}
	if _, err := s.conn.Call(ctx, "nvim_ui_detach"); err != nil {
		logs.Warnf("session.Session.Detach id=%s err=%v", s.ID, err)
		return err
	}
	logs.Infof("session.Session.Detach id=%s", s.ID)
	return nil
}

// OnFlush registers fn to run after each flush event. fn runs on the
// dispatch goroutine and may call the read methods.
func (s *Session) OnFlush(fn func()) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	s.onFlush = append(s.onFlush, fn)
}

func (s *Session) fireFlush() {
	s.flushes.Add(1)
	s.flushMu.Lock()
	fns := append([]func(){}, s.onFlush...)
	s.flushMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Flushes counts flush events seen so far.
func (s *Session) Flushes() uint64 {
	return s.flushes.Load()
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// Shutdown detaches the ui when attached and then closes the connection.
// The connection closes even when the detach request fails.
func (s *Session) Shutdown(ctx context.Context) error {
	var detachErr error
	if err := s.Detach(ctx); err != nil && !errors.Is(err, ErrNotAttached) {
		detachErr = err
	}
	return errors.Join(detachErr, s.Close())
}

func (s *Session) Done() <-chan struct{} {
	return s.conn.Done()
}

func (s *Session) Err() error {
	return s.conn.Err()
}

// Pending lists requests still waiting for a peer response.
func (s *Session) Pending() []rpc.PendingRequest {
	return s.conn.Pending()
}
