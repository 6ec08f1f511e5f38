package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/gridlink/internal/protocol/value"
)

var (
	// ErrInsufficientBytes means the buffer ends inside a value. Nothing was
	// consumed; retry once more bytes are available.
	ErrInsufficientBytes = errors.New("wire: insufficient bytes")
	// ErrMalformed means the stream is desynchronized and cannot be resumed.
	ErrMalformed = errors.New("wire: malformed encoding")
)

// Limits constrains decode memory use.
type Limits struct {
	MaxContainerLen int
	MaxBytesLen     int
	MaxDepth        int
}

func DefaultLimits() Limits {
	return Limits{
		MaxContainerLen: 1 << 22,
		MaxBytesLen:     64 * 1024 * 1024,
		MaxDepth:        512,
	}
}

// Decode decodes exactly one top-level value starting at buf[off] and
// returns it with the offset just past it. On any error the returned offset
// equals off.
func Decode(buf []byte, off int) (value.Value, int, error) {
	return DecodeWithLimits(buf, off, DefaultLimits())
}

func DecodeWithLimits(buf []byte, off int, limits Limits) (value.Value, int, error) {
	if off < 0 || off > len(buf) {
		return value.Nil(), off, fmt.Errorf("%w: offset %d outside buffer of %d bytes", ErrMalformed, off, len(buf))
	}
	d := decoder{buf: buf, pos: off, limits: limits}
	v, err := d.run()
	if err != nil {
		return value.Nil(), off, err
	}
	return v, d.pos, nil
}

// container is one open array or map on the decode stack.
type container struct {
	isMap     bool
	remaining int
	items     []value.Value
	entries   []value.MapEntry
	key       string
	needKey   bool
}

func (c *container) add(v value.Value) {
	if c.isMap {
		c.entries = append(c.entries, value.MapEntry{Key: c.key, Value: v})
		c.needKey = true
	} else {
		c.items = append(c.items, v)
	}
	c.remaining--
}

func (c *container) finish() value.Value {
	if c.isMap {
		return value.Map(c.entries...)
	}
	return value.Array(c.items...)
}

type decoder struct {
	buf    []byte
	pos    int
	limits Limits
}

// run drives the pull parser. Containers are pushed when their header is
// read and popped as soon as their element count is satisfied, so nested
// input is decoded in one forward pass.
func (d *decoder) run() (value.Value, error) {
	var stack []*container
	for {
		if n := len(stack); n > 0 && stack[n-1].needKey {
			key, err := d.readKey()
			if err != nil {
				return value.Nil(), err
			}
			stack[n-1].key = key
			stack[n-1].needKey = false
			continue
		}

		v, open, err := d.readItem()
		if err != nil {
			return value.Nil(), err
		}
		if open != nil {
			if open.remaining > 0 {
				if len(stack) >= d.limits.MaxDepth {
					return value.Nil(), fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, d.limits.MaxDepth)
				}
				stack = append(stack, open)
				continue
			}
			v = open.finish()
		}

		for {
			if len(stack) == 0 {
				return v, nil
			}
			top := stack[len(stack)-1]
			top.add(v)
			if top.remaining > 0 {
				break
			}
			stack = stack[:len(stack)-1]
			v = top.finish()
		}
	}
}

func (d *decoder) need(n int) error {
	if n < 0 || len(d.buf)-d.pos < n {
		return ErrInsufficientBytes
	}
	return nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *decoder) readUint(size int) (uint64, error) {
	b, err := d.take(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	default:
		return binary.BigEndian.Uint64(b), nil
	}
}

func (d *decoder) readLen(size int, limit int, what string) (int, error) {
	n, err := d.readUint(size)
	if err != nil {
		return 0, err
	}
	if n > uint64(limit) {
		return 0, fmt.Errorf("%w: %s length %d exceeds limit %d", ErrMalformed, what, n, limit)
	}
	return int(n), nil
}

func (d *decoder) openContainer(n int, isMap bool) *container {
	// Every element needs at least one byte; cap the preallocation by what is buffered.
	hint := n
	if avail := len(d.buf) - d.pos; hint > avail {
		hint = avail
	}
	c := &container{isMap: isMap, remaining: n, needKey: isMap}
	if isMap {
		c.entries = make([]value.MapEntry, 0, hint)
	} else {
		c.items = make([]value.Value, 0, hint)
	}
	return c
}

func (d *decoder) readKey() (string, error) {
	if err := d.need(1); err != nil {
		return "", err
	}
	b := d.buf[d.pos]
	var n int
	var err error
	switch {
	case b >= 0xa0 && b <= 0xbf:
		d.pos++
		n = int(b & 0x1f)
	case b == 0xd9 || b == 0xc4:
		d.pos++
		n, err = d.readLen(1, d.limits.MaxBytesLen, "map key")
	case b == 0xda || b == 0xc5:
		d.pos++
		n, err = d.readLen(2, d.limits.MaxBytesLen, "map key")
	case b == 0xdb || b == 0xc6:
		d.pos++
		n, err = d.readLen(4, d.limits.MaxBytesLen, "map key")
	default:
		return "", fmt.Errorf("%w: map key with type byte 0x%02x is not text", ErrMalformed, b)
	}
	if err != nil {
		return "", err
	}
	raw, err := d.take(n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// readItem reads a scalar, or the header of a container which is returned
// open for the caller to fill.
func (d *decoder) readItem() (value.Value, *container, error) {
	if err := d.need(1); err != nil {
		return value.Nil(), nil, err
	}
	b := d.buf[d.pos]
	d.pos++

	switch {
	case b <= 0x7f:
		return value.Int(int64(b)), nil, nil
	case b >= 0xe0:
		return value.Int(int64(int8(b))), nil, nil
	case b >= 0x80 && b <= 0x8f:
		return value.Nil(), d.openContainer(int(b&0x0f), true), nil
	case b >= 0x90 && b <= 0x9f:
		return value.Nil(), d.openContainer(int(b&0x0f), false), nil
	case b >= 0xa0 && b <= 0xbf:
		v, err := d.readText(int(b & 0x1f))
		return v, nil, err
	}

	switch b {
	case 0xc0:
		return value.Nil(), nil, nil
	case 0xc1:
		return value.Nil(), nil, fmt.Errorf("%w: reserved type byte 0xc1", ErrMalformed)
	case 0xc2:
		return value.Bool(false), nil, nil
	case 0xc3:
		return value.Bool(true), nil, nil
	case 0xc4, 0xc5, 0xc6:
		n, err := d.readLen(1<<(b-0xc4), d.limits.MaxBytesLen, "bin")
		if err != nil {
			return value.Nil(), nil, err
		}
		raw, err := d.take(n)
		if err != nil {
			return value.Nil(), nil, err
		}
		return value.Bytes(raw), nil, nil
	case 0xc7, 0xc8, 0xc9:
		n, err := d.readLen(1<<(b-0xc7), d.limits.MaxBytesLen, "ext")
		if err != nil {
			return value.Nil(), nil, err
		}
		v, err := d.readExt(n)
		return v, nil, err
	case 0xca:
		bits, err := d.readUint(4)
		if err != nil {
			return value.Nil(), nil, err
		}
		return value.Float(float64(math.Float32frombits(uint32(bits)))), nil, nil
	case 0xcb:
		bits, err := d.readUint(8)
		if err != nil {
			return value.Nil(), nil, err
		}
		return value.Float(math.Float64frombits(bits)), nil, nil
	case 0xcc, 0xcd, 0xce, 0xcf:
		u, err := d.readUint(1 << (b - 0xcc))
		if err != nil {
			return value.Nil(), nil, err
		}
		return value.Uint(u), nil, nil
	case 0xd0:
		u, err := d.readUint(1)
		return value.Int(int64(int8(u))), nil, err
	case 0xd1:
		u, err := d.readUint(2)
		return value.Int(int64(int16(u))), nil, err
	case 0xd2:
		u, err := d.readUint(4)
		return value.Int(int64(int32(u))), nil, err
	case 0xd3:
		u, err := d.readUint(8)
		return value.Int(int64(u)), nil, err
	case 0xd4, 0xd5, 0xd6, 0xd7, 0xd8:
		v, err := d.readExt(1 << (b - 0xd4))
		return v, nil, err
	case 0xd9, 0xda, 0xdb:
		n, err := d.readLen(1<<(b-0xd9), d.limits.MaxBytesLen, "str")
		if err != nil {
			return value.Nil(), nil, err
		}
		v, err := d.readText(n)
		return v, nil, err
	case 0xdc, 0xdd:
		n, err := d.readLen(2<<(b-0xdc), d.limits.MaxContainerLen, "array")
		if err != nil {
			return value.Nil(), nil, err
		}
		return value.Nil(), d.openContainer(n, false), nil
	case 0xde, 0xdf:
		n, err := d.readLen(2<<(b-0xde), d.limits.MaxContainerLen, "map")
		if err != nil {
			return value.Nil(), nil, err
		}
		return value.Nil(), d.openContainer(n, true), nil
	}
	return value.Nil(), nil, fmt.Errorf("%w: unknown type byte 0x%02x", ErrMalformed, b)
}

func (d *decoder) readText(n int) (value.Value, error) {
	if n > d.limits.MaxBytesLen {
		return value.Nil(), fmt.Errorf("%w: str length %d exceeds limit %d", ErrMalformed, n, d.limits.MaxBytesLen)
	}
	raw, err := d.take(n)
	if err != nil {
		return value.Nil(), err
	}
	return value.String(string(raw)), nil
}

func (d *decoder) readExt(n int) (value.Value, error) {
	typ, err := d.take(1)
	if err != nil {
		return value.Nil(), err
	}
	raw, err := d.take(n)
	if err != nil {
		return value.Nil(), err
	}
	return value.Ext(int8(typ[0]), raw), nil
}
