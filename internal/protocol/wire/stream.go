package wire

import (
	"errors"
	"io"

	"github.com/danmuck/gridlink/internal/protocol/value"
)

const minReadSize = 64 * 1024

// Decoder pulls consecutive top-level values from a byte stream. The stream
// has no framing layer; each value delimits itself.
type Decoder struct {
	r      io.Reader
	limits Limits
	buf    []byte
	start  int
	err    error
}

func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithLimits(r, DefaultLimits())
}

func NewDecoderWithLimits(r io.Reader, limits Limits) *Decoder {
	return &Decoder{r: r, limits: limits}
}

// Next returns the next value. io.EOF is returned only on a clean value
// boundary; a stream that ends mid-value yields io.ErrUnexpectedEOF.
func (d *Decoder) Next() (value.Value, error) {
	for {
		if d.start < len(d.buf) {
			v, next, err := DecodeWithLimits(d.buf, d.start, d.limits)
			if err == nil {
				d.start = next
				return v, nil
			}
			if !errors.Is(err, ErrInsufficientBytes) {
				return value.Nil(), err
			}
		}
		if err := d.fill(); err != nil {
			if errors.Is(err, io.EOF) && d.start < len(d.buf) {
				return value.Nil(), io.ErrUnexpectedEOF
			}
			return value.Nil(), err
		}
	}
}

// Buffered reports how many undecoded bytes are held.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.start
}

func (d *Decoder) fill() error {
	if d.err != nil {
		return d.err
	}
	pending := len(d.buf) - d.start
	if d.start > 0 {
		copy(d.buf, d.buf[d.start:])
		d.buf = d.buf[:pending]
		d.start = 0
	}
	// Grow geometrically so a large value is re-scanned a logarithmic number of times.
	want := pending + max(minReadSize, pending)
	if cap(d.buf) < want {
		grown := make([]byte, pending, want)
		copy(grown, d.buf)
		d.buf = grown
	}
	for {
		n, err := d.r.Read(d.buf[pending:cap(d.buf)])
		d.buf = d.buf[:pending+n]
		if n > 0 {
			if err != nil {
				d.err = err
			}
			return nil
		}
		if err != nil {
			d.err = err
			return err
		}
	}
}
