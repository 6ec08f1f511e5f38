// Package message owns the three msgpack-rpc message shapes.
//
// Ownership boundary:
// - Request [0, id, method, params]
// - Response [1, id, error, result]
// - Notification [2, method, params]
//
// Requests and responses share one id namespace; notifications never carry an id.
package message

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/protocol/wire"
)

var ErrProtocolViolation = errors.New("message: protocol violation")

// Type is the leading discriminant of every message array.
type Type int64

const (
	TypeRequest      Type = 0
	TypeResponse     Type = 1
	TypeNotification Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	case TypeNotification:
		return "notification"
	default:
		return fmt.Sprintf("type(%d)", int64(t))
	}
}

// Message is implemented by Request, Response and Notification.
type Message interface {
	Type() Type
	Value() value.Value
}

type Request struct {
	ID     uint64
	Method string
	Params []value.Value
}

type Response struct {
	ID     uint64
	Error  value.Value
	Result value.Value
}

type Notification struct {
	Method string
	Params []value.Value
}

func (Request) Type() Type      { return TypeRequest }
func (Response) Type() Type     { return TypeResponse }
func (Notification) Type() Type { return TypeNotification }

func (r Request) Value() value.Value {
	return value.Array(
		value.Int(int64(TypeRequest)),
		value.Uint(r.ID),
		value.String(r.Method),
		value.Array(r.Params...),
	)
}

func (r Response) Value() value.Value {
	return value.Array(
		value.Int(int64(TypeResponse)),
		value.Uint(r.ID),
		r.Error,
		r.Result,
	)
}

func (n Notification) Value() value.Value {
	return value.Array(
		value.Int(int64(TypeNotification)),
		value.String(n.Method),
		value.Array(n.Params...),
	)
}

// Failed reports whether the response carries an error payload.
func (r Response) Failed() bool {
	return !r.Error.IsNil()
}

// Marshal encodes msg into one contiguous buffer.
func Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrProtocolViolation)
	}
	return wire.Marshal(msg.Value())
}

// Encode writes msg to w with a single Write call.
func Encode(w io.Writer, msg Message) error {
	b, err := Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Parse classifies a decoded value into a message shape.
func Parse(v value.Value) (Message, error) {
	items, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: message is %s, not array", ErrProtocolViolation, v.Kind())
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty message array", ErrProtocolViolation)
	}
	kind, ok := items[0].AsInt()
	if !ok {
		return nil, fmt.Errorf("%w: discriminant is %s", ErrProtocolViolation, items[0].Kind())
	}

	switch Type(kind) {
	case TypeRequest:
		if len(items) != 4 {
			return nil, arityError(TypeRequest, 4, len(items))
		}
		id, err := parseID(items[1])
		if err != nil {
			return nil, err
		}
		method, err := parseMethod(items[2])
		if err != nil {
			return nil, err
		}
		params, err := parseParams(items[3])
		if err != nil {
			return nil, err
		}
		return Request{ID: id, Method: method, Params: params}, nil
	case TypeResponse:
		if len(items) != 4 {
			return nil, arityError(TypeResponse, 4, len(items))
		}
		id, err := parseID(items[1])
		if err != nil {
			return nil, err
		}
		return Response{ID: id, Error: items[2], Result: items[3]}, nil
	case TypeNotification:
		if len(items) != 3 {
			return nil, arityError(TypeNotification, 3, len(items))
		}
		method, err := parseMethod(items[1])
		if err != nil {
			return nil, err
		}
		params, err := parseParams(items[2])
		if err != nil {
			return nil, err
		}
		return Notification{Method: method, Params: params}, nil
	default:
		return nil, fmt.Errorf("%w: unknown discriminant %d", ErrProtocolViolation, kind)
	}
}

func arityError(t Type, want, got int) error {
	return fmt.Errorf("%w: %s has %d elements, want %d", ErrProtocolViolation, t, got, want)
}

func parseID(v value.Value) (uint64, error) {
	id, ok := v.AsUint()
	if !ok {
		return 0, fmt.Errorf("%w: id is %s", ErrProtocolViolation, v.Kind())
	}
	return id, nil
}

func parseMethod(v value.Value) (string, error) {
	method, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: method is %s", ErrProtocolViolation, v.Kind())
	}
	return method, nil
}

func parseParams(v value.Value) ([]value.Value, error) {
	// Some peers send nil for an empty parameter list.
	if v.IsNil() {
		return nil, nil
	}
	params, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: params is %s", ErrProtocolViolation, v.Kind())
	}
	return params, nil
}
