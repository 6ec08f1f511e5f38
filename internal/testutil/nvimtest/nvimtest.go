// Package nvimtest is an in-memory editor peer for transport and session tests.
package nvimtest

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/gridlink/internal/protocol/message"
	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/protocol/wire"
)

const DefaultTimeout = 2 * time.Second

// RequestFunc answers one client request with a result or an error payload.
type RequestFunc func(req message.Request) (result value.Value, errPayload value.Value)

// Peer is the editor side of a net.Pipe. A background pump reads every
// client message so client writes never block on the test.
type Peer struct {
	t    testing.TB
	conn net.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	serving  bool
	handlers map[string]RequestFunc
	requests []message.Request

	inbox  chan message.Message
	closed chan struct{}
	err    error
}

// Pipe returns a peer and the client end of the connection. Both ends are
// closed when the test finishes.
func Pipe(t testing.TB) (*Peer, net.Conn) {
	t.Helper()
	peerEnd, clientEnd := net.Pipe()
	p := &Peer{
		t:        t,
		conn:     peerEnd,
		handlers: make(map[string]RequestFunc),
		inbox:    make(chan message.Message, 4096),
		closed:   make(chan struct{}),
	}
	go p.pump(wire.NewDecoder(peerEnd))
	t.Cleanup(func() {
		_ = peerEnd.Close()
		_ = clientEnd.Close()
	})
	return p, clientEnd
}

func (p *Peer) pump(dec *wire.Decoder) {
	defer close(p.closed)
	for {
		v, err := dec.Next()
		if err != nil {
			p.err = err
			return
		}
		msg, err := message.Parse(v)
		if err != nil {
			continue
		}
		if req, ok := msg.(message.Request); ok {
			p.mu.Lock()
			serving := p.serving
			fn := p.handlers[req.Method]
			if serving {
				p.requests = append(p.requests, req)
			}
			p.mu.Unlock()
			if serving {
				result, errPayload := value.Nil(), value.Nil()
				if fn != nil {
					result, errPayload = fn(req)
				}
				if err := p.Send(message.Response{ID: req.ID, Error: errPayload, Result: result}); err != nil {
					p.err = err
					return
				}
				continue
			}
		}
		p.inbox <- msg
	}
}

// Send writes one message to the client.
func (p *Peer) Send(msg message.Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
	return message.Encode(p.conn, msg)
}

// WriteRaw writes bytes that may not form a valid message.
func (p *Peer) WriteRaw(b []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
	_, err := p.conn.Write(b)
	return err
}

func (p *Peer) Notify(method string, params ...value.Value) error {
	return p.Send(message.Notification{Method: method, Params: params})
}

// Redraw sends one redraw notification carrying the given event batches.
func (p *Peer) Redraw(events ...value.Value) error {
	return p.Notify("redraw", events...)
}

func (p *Peer) Respond(id uint64, result value.Value) error {
	return p.Send(message.Response{ID: id, Error: value.Nil(), Result: result})
}

func (p *Peer) RespondError(id uint64, payload value.Value) error {
	return p.Send(message.Response{ID: id, Error: payload, Result: value.Nil()})
}

// Next returns the next client message not answered by Serve.
func (p *Peer) Next(timeout time.Duration) (message.Message, error) {
	select {
	case msg := <-p.inbox:
		return msg, nil
	default:
	}
	select {
	case msg := <-p.inbox:
		return msg, nil
	case <-p.closed:
		select {
		case msg := <-p.inbox:
			return msg, nil
		default:
		}
		if p.err != nil {
			return nil, p.err
		}
		return nil, errors.New("nvimtest: pipe closed")
	case <-time.After(timeout):
		return nil, errors.New("nvimtest: timed out waiting for message")
	}
}

// ExpectRequest reads the next message and fails the test unless it is a
// request for method.
func (p *Peer) ExpectRequest(method string) message.Request {
	p.t.Helper()
	msg, err := p.Next(DefaultTimeout)
	if err != nil {
		p.t.Fatalf("nvimtest: waiting for %s: %v", method, err)
	}
	req, ok := msg.(message.Request)
	if !ok || req.Method != method {
		p.t.Fatalf("nvimtest: expected request %s, got %#v", method, msg)
	}
	return req
}

// Handle registers an answer for method used once Serve is on.
// Unregistered methods get a nil result.
func (p *Peer) Handle(method string, fn RequestFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[method] = fn
}

// Serve makes the pump answer client requests itself instead of queueing them.
func (p *Peer) Serve() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serving = true
}

// Requests returns the requests answered by Serve so far.
func (p *Peer) Requests() []message.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]message.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// WaitNotification skips other messages until the client sends a notification.
func (p *Peer) WaitNotification(timeout time.Duration) (message.Notification, error) {
	deadline := time.Now().Add(timeout)
	for {
		msg, err := p.Next(time.Until(deadline))
		if err != nil {
			return message.Notification{}, err
		}
		if n, ok := msg.(message.Notification); ok {
			return n, nil
		}
	}
}

func (p *Peer) Close() error {
	return p.conn.Close()
}

// Event builds one redraw batch: [name, [args...], [args...], ...].
func Event(name string, tuples ...[]value.Value) value.Value {
	items := make([]value.Value, 0, len(tuples)+1)
	items = append(items, value.String(name))
	for _, args := range tuples {
		items = append(items, value.Array(args...))
	}
	return value.Array(items...)
}

// Args is shorthand for one event tuple.
func Args(args ...value.Value) []value.Value {
	return args
}

// Ints builds a tuple of Int values.
func Ints(ns ...int64) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.Int(n)
	}
	return out
}
