package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/observability"
	"github.com/danmuck/gridlink/internal/protocol/message"
	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/protocol/wire"
)

// State is the connection lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// NotificationHandler runs on the dispatch goroutine.
type NotificationHandler func(params []value.Value)

// RequestHandler runs on the dispatch goroutine and must return a Reply.
type RequestHandler func(params []value.Value) Reply

// Reply is the answer to a peer request. Build it with Result or Failure.
type Reply struct {
	payload value.Value
	failed  bool
	set     bool
}

func Result(v value.Value) Reply {
	return Reply{payload: v, set: true}
}

// Failure builds an error reply. A nil payload is replaced with a generic message.
func Failure(v value.Value) Reply {
	if v.IsNil() {
		v = errorPayload("request failed")
	}
	return Reply{payload: v, failed: true, set: true}
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Conn is one msgpack-rpc connection.
type Conn struct {
	rw  io.ReadWriteCloser
	cfg Config

	state   atomic.Int32
	started atomic.Bool
	nextID  atomic.Uint64

	writeMu sync.Mutex
	pending *pendingTable
	inbound *jobQueue

	handlersMu      sync.RWMutex
	notifyHandlers  map[string]NotificationHandler
	requestHandlers map[string]RequestHandler

	disconnectMu    sync.Mutex
	disconnectFns   []func(error)
	disconnectFired bool

	closeOnce sync.Once
	done      chan struct{}
	errMu     sync.RWMutex
	err       error
}

// New wraps rw. Register handlers before Start so no inbound message is missed.
func New(rw io.ReadWriteCloser, cfg Config) *Conn {
	if cfg.Limits == (wire.Limits{}) {
		cfg.Limits = wire.DefaultLimits()
	}
	return &Conn{
		rw:              rw,
		cfg:             cfg,
		pending:         newPendingTable(),
		inbound:         newJobQueue(),
		notifyHandlers:  make(map[string]NotificationHandler),
		requestHandlers: make(map[string]RequestHandler),
		done:            make(chan struct{}),
	}
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

// Start moves Idle to Connected and launches the reader and dispatch
// goroutines. Cancelling ctx closes the connection.
func (c *Conn) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateConnected)) {
		if c.State() == StateConnected {
			return ErrAlreadyStarted
		}
		return ErrTransportClosed
	}
	c.started.Store(true)
	logs.Infof("rpc.Conn.Start state=%s", c.State())

	go c.readLoop()
	go c.dispatchLoop()
	go func() {
		select {
		case <-ctx.Done():
			c.shutdown(fmt.Errorf("%w: %w", ErrTransportClosed, context.Cause(ctx)))
		case <-c.done:
		}
	}()
	return nil
}

// Call sends a request and waits for its response, ctx, or disconnect.
func (c *Conn) Call(ctx context.Context, method string, args ...value.Value) (value.Value, error) {
	if err := c.ready(); err != nil {
		return value.Nil(), err
	}
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	id := c.nextID.Add(1)
	reply := make(chan message.Response, 1)
	sentAt := time.Now()
	entry := pendingEntry{
		info:  PendingRequest{ID: id, Method: method, Blocking: true, SentAt: sentAt},
		reply: reply,
	}
	if !c.pending.add(entry) {
		return value.Nil(), c.closedErr()
	}
	if err := c.write(message.Request{ID: id, Method: method, Params: args}); err != nil {
		c.pending.remove(id)
		return value.Nil(), err
	}

	select {
	case resp := <-reply:
		return responseResult(method, resp)
	case <-ctx.Done():
		if c.pending.remove(id) {
			logs.Debugf("rpc.Conn.Call abandoned id=%d method=%q err=%v", id, method, ctx.Err())
			observability.RecordCall(method, "abandoned", time.Since(sentAt))
			return value.Nil(), ctx.Err()
		}
		// The entry is gone: either the reader is delivering it or shutdown drained it.
		return c.awaitTaken(method, reply)
	case <-c.done:
		return c.awaitTaken(method, reply)
	}
}

// awaitTaken prefers a response that is already buffered over the closed signal.
func (c *Conn) awaitTaken(method string, reply <-chan message.Response) (value.Value, error) {
	select {
	case resp := <-reply:
		return responseResult(method, resp)
	default:
	}
	select {
	case resp := <-reply:
		return responseResult(method, resp)
	case <-c.done:
		return value.Nil(), c.closedErr()
	}
}

// Go sends a request without waiting. cb runs on the dispatch goroutine with
// the result, or with ErrTransportClosed if the connection closes first.
func (c *Conn) Go(method string, args []value.Value, cb func(value.Value, error)) (uint64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	if cb == nil {
		cb = func(value.Value, error) {}
	}
	id := c.nextID.Add(1)
	entry := pendingEntry{
		info:     PendingRequest{ID: id, Method: method, SentAt: time.Now()},
		callback: cb,
	}
	if !c.pending.add(entry) {
		return 0, c.closedErr()
	}
	if err := c.write(message.Request{ID: id, Method: method, Params: args}); err != nil {
		if c.pending.remove(id) {
			return 0, err
		}
		// Shutdown already drained the entry and will report through cb.
		return id, nil
	}
	return id, nil
}

func (c *Conn) Notify(method string, args ...value.Value) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.write(message.Notification{Method: method, Params: args})
}

// HandleNotification registers h for method, replacing any previous handler.
func (c *Conn) HandleNotification(method string, h NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.notifyHandlers[method] = h
}

// HandleRequest registers h for method, replacing any previous handler.
func (c *Conn) HandleRequest(method string, h RequestHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.requestHandlers[method] = h
}

// OnDisconnect registers fn to run once when the connection closes. If it
// has already closed, fn runs immediately.
func (c *Conn) OnDisconnect(fn func(error)) {
	c.disconnectMu.Lock()
	if !c.disconnectFired {
		c.disconnectFns = append(c.disconnectFns, fn)
		c.disconnectMu.Unlock()
		return
	}
	c.disconnectMu.Unlock()
	fn(c.Err())
}

// Pending lists outstanding requests ordered by id.
func (c *Conn) Pending() []PendingRequest {
	return c.pending.list()
}

// Close moves the connection to Closed. It is safe to call more than once.
func (c *Conn) Close() error {
	for {
		s := c.State()
		if s == StateClosing || s == StateClosed {
			return nil
		}
		if c.state.CompareAndSwap(int32(s), int32(StateClosing)) {
			break
		}
	}
	c.shutdown(ErrTransportClosed)
	return nil
}

// Done is closed when the connection reaches StateClosed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection closed, or nil while it is open.
func (c *Conn) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

func (c *Conn) ready() error {
	switch c.State() {
	case StateConnected:
		return nil
	case StateIdle:
		return ErrNotConnected
	default:
		return c.closedErr()
	}
}

func (c *Conn) closedErr() error {
	if err := c.Err(); err != nil {
		return err
	}
	return ErrTransportClosed
}

func (c *Conn) write(msg message.Message) error {
	b, err := message.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		if d, ok := c.rw.(writeDeadliner); ok {
			_ = d.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		}
	}
	if _, err := c.rw.Write(b); err != nil {
		werr := fmt.Errorf("%w: write: %w", ErrTransportClosed, err)
		c.shutdown(werr)
		return werr
	}
	observability.RecordRPCMessage("out", msg.Type().String())
	return nil
}

func (c *Conn) readLoop() {
	// Closing the queue here, after the stream is dead, guarantees every
	// job pushed by shutdown is already queued.
	defer c.inbound.close()

	dec := wire.NewDecoderWithLimits(c.rw, c.cfg.Limits)
	for {
		v, err := dec.Next()
		if err != nil {
			c.shutdown(fmt.Errorf("%w: read: %w", ErrTransportClosed, err))
			return
		}
		msg, err := message.Parse(v)
		if err != nil {
			logs.Warnf("rpc.Conn.readLoop dropped message err=%v", err)
			observability.RecordRPCMessage("in", "invalid")
			continue
		}
		observability.RecordRPCMessage("in", msg.Type().String())
		select {
		case <-c.done:
			return
		default:
		}

		switch m := msg.(type) {
		case message.Response:
			c.deliver(m)
		case message.Request:
			c.inbound.push(func() { c.serveRequest(m) })
		case message.Notification:
			c.inbound.push(func() { c.serveNotification(m) })
		}
	}
}

func (c *Conn) dispatchLoop() {
	for {
		job, ok := c.inbound.pop()
		if !ok {
			return
		}
		job()
	}
}

func (c *Conn) deliver(resp message.Response) {
	entry, ok := c.pending.take(resp.ID)
	if !ok {
		logs.Warnf("rpc.Conn.deliver unknown response id=%d", resp.ID)
		observability.RecordUnknownResponse()
		return
	}
	outcome := "ok"
	if resp.Failed() {
		outcome = "error"
	}
	observability.RecordCall(entry.info.Method, outcome, time.Since(entry.info.SentAt))

	if entry.reply != nil {
		entry.reply <- resp
		return
	}
	cb := entry.callback
	method := entry.info.Method
	c.inbound.push(func() {
		cb(responseResult(method, resp))
	})
}

func (c *Conn) serveNotification(n message.Notification) {
	c.handlersMu.RLock()
	h, ok := c.notifyHandlers[n.Method]
	c.handlersMu.RUnlock()
	if !ok {
		logs.Debugf("rpc.Conn.serveNotification unhandled method=%q", n.Method)
		return
	}
	h(n.Params)
}

func (c *Conn) serveRequest(req message.Request) {
	c.handlersMu.RLock()
	h, ok := c.requestHandlers[req.Method]
	c.handlersMu.RUnlock()

	var reply Reply
	if !ok {
		logs.Debugf("rpc.Conn.serveRequest unknown method=%q id=%d", req.Method, req.ID)
		reply = Failure(errorPayload("unknown method: " + req.Method))
	} else {
		reply = invoke(h, req)
	}
	if !reply.set {
		reply = Failure(errorPayload("no reply from handler for " + req.Method))
	}

	resp := message.Response{ID: req.ID, Error: value.Nil(), Result: value.Nil()}
	if reply.failed {
		resp.Error = reply.payload
	} else {
		resp.Result = reply.payload
	}
	if err := c.write(resp); err != nil {
		logs.Warnf("rpc.Conn.serveRequest reply failed id=%d method=%q err=%v", req.ID, req.Method, err)
	}
}

// invoke turns a handler panic into a failure reply so the peer is never left waiting.
func invoke(h RequestHandler, req message.Request) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("rpc.Conn.serveRequest handler panic method=%q panic=%v", req.Method, r)
			reply = Failure(errorPayload(fmt.Sprintf("handler panic: %v", r)))
		}
	}()
	return h(req.Params)
}

// shutdown runs once. It releases pending requests, signals Done and fires
// disconnect callbacks on the dispatch goroutine.
func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		if cause == nil {
			cause = ErrTransportClosed
		}
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()
		c.state.Store(int32(StateClosed))

		if errors.Is(cause, io.EOF) {
			logs.Infof("rpc.Conn.shutdown peer closed stream")
		} else {
			logs.Infof("rpc.Conn.shutdown cause=%v", cause)
		}

		drained := c.pending.close()
		started := c.started.Load()
		for _, entry := range drained {
			if entry.callback == nil {
				continue
			}
			cb := entry.callback
			if !started || !c.inbound.push(func() { cb(value.Nil(), cause) }) {
				cb(value.Nil(), cause)
			}
		}

		c.disconnectMu.Lock()
		fns := c.disconnectFns
		c.disconnectFns = nil
		c.disconnectFired = true
		c.disconnectMu.Unlock()
		fire := func() {
			for _, fn := range fns {
				fn(cause)
			}
		}

		close(c.done)
		if started && c.inbound.push(fire) {
			_ = c.rw.Close()
			return
		}
		_ = c.rw.Close()
		c.inbound.close()
		fire()
	})
}

func responseResult(method string, resp message.Response) (value.Value, error) {
	if resp.Failed() {
		return value.Nil(), &RemoteError{Method: method, Payload: resp.Error}
	}
	return resp.Result, nil
}
