package message

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/protocol/wire"
	"github.com/danmuck/gridlink/internal/testutil/testlog"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	testlog.Start(t)
	msgs := []Message{
		Request{ID: 7, Method: "nvim_ui_attach", Params: []value.Value{value.Int(80), value.Int(24), value.Map()}},
		Response{ID: 7, Error: value.Nil(), Result: value.String("ok")},
		Response{ID: 8, Error: value.Array(value.Int(0), value.String("boom")), Result: value.Nil()},
		Notification{Method: "redraw", Params: []value.Value{value.Array(value.String("flush"), value.Array())}},
	}
	for _, msg := range msgs {
		var buf bytes.Buffer
		if err := Encode(&buf, msg); err != nil {
			t.Fatalf("encode %s: %v", msg.Type(), err)
		}
		v, _, err := wire.Decode(buf.Bytes(), 0)
		if err != nil {
			t.Fatalf("decode %s: %v", msg.Type(), err)
		}
		got, err := Parse(v)
		if err != nil {
			t.Fatalf("parse %s: %v", msg.Type(), err)
		}
		if got.Type() != msg.Type() || !value.Equal(got.Value(), msg.Value()) {
			t.Fatalf("mismatch: got=%v want=%v", got.Value(), msg.Value())
		}
	}
}

func TestParseAcceptsSignedIDs(t *testing.T) {
	testlog.Start(t)
	v := value.Array(value.Int(1), value.Int(3), value.Nil(), value.Bool(true))
	msg, err := Parse(v)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	resp, ok := msg.(Response)
	if !ok || resp.ID != 3 || resp.Failed() {
		t.Fatalf("unexpected response %+v", msg)
	}
}

func TestParseNilParams(t *testing.T) {
	testlog.Start(t)
	msg, err := Parse(value.Array(value.Int(2), value.String("flush"), value.Nil()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n := msg.(Notification); n.Method != "flush" || len(n.Params) != 0 {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestParseViolations(t *testing.T) {
	testlog.Start(t)
	cases := map[string]value.Value{
		"not array":      value.String("x"),
		"empty":          value.Array(),
		"bad discrim":    value.Array(value.Int(9), value.Int(1)),
		"string discrim": value.Array(value.String("0")),
		"request arity":  value.Array(value.Int(0), value.Int(1), value.String("m")),
		"negative id":    value.Array(value.Int(1), value.Int(-1), value.Nil(), value.Nil()),
		"method kind":    value.Array(value.Int(2), value.Int(5), value.Array()),
		"params kind":    value.Array(value.Int(2), value.String("m"), value.Int(5)),
		"notify has id":  value.Array(value.Int(2), value.Int(1), value.String("m"), value.Array()),
		"response arity": value.Array(value.Int(1), value.Int(1), value.Nil()),
	}
	for name, v := range cases {
		if _, err := Parse(v); !errors.Is(err, ErrProtocolViolation) {
			t.Fatalf("%s: expected ErrProtocolViolation, got %v", name, err)
		}
	}
}
