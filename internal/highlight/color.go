package highlight

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a 24-bit 0xRRGGBB value as sent by the peer.
type Color uint32

var (
	DefaultForeground Color = 0xffffff
	DefaultBackground Color = 0x000000
	DefaultSpecial    Color = 0xff0000
)

func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) RGB() (uint8, uint8, uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Hex renders #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

func (c Color) String() string {
	return c.Hex()
}

// ParseHex accepts #rrggbb, rrggbb and #rgb.
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, fmt.Errorf("highlight: invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("highlight: invalid hex color %q: %w", s, err)
	}
	return Color(n), nil
}

func (c Color) colorful() colorful.Color {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return RGB(r, g, b)
}

// Blend mixes top over bottom. blend follows the editor's winblend and
// pumblend scale: 0 is opaque top, 100 is fully bottom.
func Blend(top, bottom Color, blend int) Color {
	switch {
	case blend <= 0:
		return top
	case blend >= 100:
		return bottom
	}
	return fromColorful(top.colorful().BlendRgb(bottom.colorful(), float64(blend)/100))
}
