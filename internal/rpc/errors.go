package rpc

import (
	"errors"
	"fmt"

	"github.com/danmuck/gridlink/internal/protocol/value"
)

var (
	ErrTransportClosed = errors.New("rpc: transport closed")
	ErrAlreadyStarted  = errors.New("rpc: already started")
	ErrNotConnected    = errors.New("rpc: not connected")
	ErrDialFailed      = errors.New("rpc: dial failed")
)

// RemoteError carries the error payload of a failed response.
type RemoteError struct {
	Method  string
	Payload value.Value
}

// Error extracts the message from the peer's [type, message] error pair
// when present and falls back to the raw payload.
func (e *RemoteError) Error() string {
	if items, ok := e.Payload.AsArray(); ok && len(items) >= 2 {
		if msg, ok := items[1].AsString(); ok {
			return fmt.Sprintf("rpc: %s failed: %s", e.Method, msg)
		}
	}
	if msg, ok := e.Payload.AsString(); ok {
		return fmt.Sprintf("rpc: %s failed: %s", e.Method, msg)
	}
	return fmt.Sprintf("rpc: %s failed: %s", e.Method, e.Payload)
}

// errorPayload builds the [type, message] pair the editor peer expects.
func errorPayload(msg string) value.Value {
	return value.Array(value.Int(0), value.String(msg))
}
