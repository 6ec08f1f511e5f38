// Package value owns the dynamically typed value tree decoded from the wire.
//
// Ownership boundary:
// - closed Value union and its constructors
// - read-only accessors used by message parsing and redraw routing
// - structural equality
package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindBytes
	KindString
	KindArray
	KindMap
	KindExt
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExt:
		return "ext"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MapEntry is one key/value pair of a Map. Keys are always text.
type MapEntry struct {
	Key   string
	Value Value
}

// Value is an immutable decoded protocol value. The zero Value is Nil.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	u       uint64
	f       float64
	s       string
	raw     []byte
	arr     []Value
	entries []MapEntry
	extType int8
}

func Nil() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: cloneBytes(b)} }

// Array builds an Array value. The slice is copied.
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindArray, arr: out}
}

// Map builds a Map value preserving entry order. Later duplicates replace
// earlier entries in place so keys stay unique.
func Map(entries ...MapEntry) Value {
	out := make([]MapEntry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if at, ok := index[e.Key]; ok {
			out[at].Value = e.Value
			continue
		}
		index[e.Key] = len(out)
		out = append(out, e)
	}
	return Value{kind: KindMap, entries: out}
}

// Entry is shorthand for building map entries.
func Entry(key string, v Value) MapEntry {
	return MapEntry{Key: key, Value: v}
}

// Ext builds an extension value carrying an application type tag.
func Ext(typ int8, data []byte) Value {
	return Value{kind: KindExt, extType: typ, raw: cloneBytes(data)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns the value as int64 when it is an Int, or a Uint that fits.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u > math.MaxInt64 {
			return 0, false
		}
		return int64(v.u), true
	default:
		return 0, false
	}
}

// AsUint returns the value as uint64 when it is a Uint, or a non-negative Int.
func (v Value) AsUint() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i < 0 {
			return 0, false
		}
		return uint64(v.i), true
	default:
		return 0, false
	}
}

// AsFloat accepts any numeric kind.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	default:
		return 0, false
	}
}

// AsString accepts String and Bytes; the peer sends some text as bin.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindBytes:
		return string(v.raw), true
	default:
		return "", false
	}
}

func (v Value) AsBytes() ([]byte, bool) {
	switch v.kind {
	case KindBytes:
		return cloneBytes(v.raw), true
	case KindString:
		return []byte(v.s), true
	default:
		return nil, false
	}
}

// AsArray returns the array items. The returned slice must not be modified.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsMap returns the map entries in wire order. The returned slice must not be modified.
func (v Value) AsMap() ([]MapEntry, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.entries, true
}

// Get looks up a map key. Non-map values never match.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Ext returns the extension tag and a copy of its payload.
func (v Value) Ext() (int8, []byte, bool) {
	if v.kind != KindExt {
		return 0, nil, false
	}
	return v.extType, cloneBytes(v.raw), true
}

// Len is the element count for containers and the byte length for text and bytes.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.entries)
	case KindString:
		return len(v.s)
	case KindBytes, KindExt:
		return len(v.raw)
	default:
		return 0
	}
}

// Equal reports deep structural equality. Int and Uint never compare equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindUint:
		return a.u == b.u
	case KindFloat:
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	case KindString:
		return a.s == b.s
	case KindBytes:
		return bytes.Equal(a.raw, b.raw)
	case KindExt:
		return a.extType == b.extType && bytes.Equal(a.raw, b.raw)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.entries) != len(b.entries) {
			return false
		}
		for i := range a.entries {
			if a.entries[i].Key != b.entries[i].Key || !Equal(a.entries[i].Value, b.entries[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a compact debug form.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case KindNil:
		sb.WriteString("nil")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindUint:
		sb.WriteString(strconv.FormatUint(v.u, 10))
		sb.WriteByte('u')
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindBytes:
		fmt.Fprintf(sb, "b%q", v.raw)
	case KindExt:
		fmt.Fprintf(sb, "ext(%d,%x)", v.extType, v.raw)
	case KindArray:
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.format(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(e.Key))
			sb.WriteString(": ")
			e.Value.format(sb)
		}
		sb.WriteByte('}')
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
