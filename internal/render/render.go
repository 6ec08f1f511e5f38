// Package render draws a session's grids onto a drawing surface.
//
// Draw is stateless: every call repaints the whole surface from the model.
package render

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/gridlink/internal/grid"
	"github.com/danmuck/gridlink/internal/highlight"
	"github.com/gdamore/tcell/v2"
)

var (
	ErrUnsupportedTarget = errors.New("render: target not supported")
	ErrUnknownTarget     = errors.New("render: unknown target")
)

type Target uint8

const (
	// TargetTerminal draws cells through tcell.
	TargetTerminal Target = iota
	// TargetAccelerated is a GPU surface. It is declared for configuration
	// but has no implementation here.
	TargetAccelerated
)

func (t Target) String() string {
	switch t {
	case TargetTerminal:
		return "terminal"
	case TargetAccelerated:
		return "accelerated"
	default:
		return fmt.Sprintf("target(%d)", uint8(t))
	}
}

func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "terminal", "tty":
		return TargetTerminal, nil
	case "accelerated", "gpu":
		return TargetAccelerated, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

// Model is the read interface render needs. *session.Session implements it.
type Model interface {
	Order() []int
	GridSnapshot(id int) (grid.Grid, bool)
	AttributeFor(id int) highlight.Attribute
	Resolve(attr highlight.Attribute) (fg, bg, sp highlight.Color)
	DefaultColors() highlight.DefaultColors
	Cursor() grid.Cursor
}

// Surface is the subset of tcell.Screen that Draw writes to.
type Surface interface {
	Size() (int, int)
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	ShowCursor(x, y int)
	HideCursor()
	Show()
}

var _ Surface = (tcell.Screen)(nil)

func Draw(target Target, surface Surface, model Model) error {
	switch target {
	case TargetTerminal:
		drawCells(surface, model)
		return nil
	case TargetAccelerated:
		return fmt.Errorf("%w: %s", ErrUnsupportedTarget, target)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
}

// canvas tracks the background already painted per screen cell so blended
// floats can mix with what lies under them.
type canvas struct {
	width  int
	height int
	bg     []highlight.Color
}

func (c *canvas) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

func drawCells(surface Surface, model Model) {
	width, height := surface.Size()
	defaults := model.DefaultColors()
	cv := &canvas{width: width, height: height, bg: make([]highlight.Color, width*height)}

	base := tcell.StyleDefault.
		Foreground(tcellColor(defaults.Foreground)).
		Background(tcellColor(defaults.Background))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			surface.SetContent(x, y, ' ', nil, base)
			cv.bg[y*width+x] = defaults.Background
		}
	}

	cur := model.Cursor()
	var (
		cursorGrid grid.Grid
		cursorSeen bool
	)
	for _, id := range model.Order() {
		g, ok := model.GridSnapshot(id)
		if !ok {
			continue
		}
		drawGrid(surface, model, cv, g)
		if id == cur.Grid {
			cursorGrid, cursorSeen = g, true
		}
	}

	// The cursor shows only on a grid that was drawn this frame.
	x, y := origin(cursorGrid)
	x += cur.Col
	y += cur.Row
	if cursorSeen && cv.inBounds(x, y) {
		surface.ShowCursor(x, y)
	} else {
		surface.HideCursor()
	}
	surface.Show()
}

func origin(g grid.Grid) (int, int) {
	return int(math.Floor(g.Col)), int(math.Floor(g.Row))
}

func drawGrid(surface Surface, model Model, cv *canvas, g grid.Grid) {
	ox, oy := origin(g)
	for row := 0; row < g.Height; row++ {
		for col, cell := range g.RowCells(row) {
			x, y := ox+col, oy+row
			if !cv.inBounds(x, y) || cell.IsContinuation() {
				continue
			}
			attr := model.AttributeFor(cell.AttrID)
			fg, bg, sp := model.Resolve(attr)
			if g.Floating && attr.Blend > 0 {
				bg = highlight.Blend(bg, cv.bg[y*cv.width+x], attr.Blend)
			}
			cv.bg[y*cv.width+x] = bg
			if cell.DoubleWidth && cv.inBounds(x+1, y) {
				cv.bg[y*cv.width+x+1] = bg
			}
			primary, combining := runes(cell.Text)
			surface.SetContent(x, y, primary, combining, cellStyle(attr, fg, bg, sp))
		}
	}
}

func runes(text string) (rune, []rune) {
	if text == "" {
		return ' ', nil
	}
	primary, size := utf8.DecodeRuneInString(text)
	if size == len(text) {
		return primary, nil
	}
	return primary, []rune(text[size:])
}

// cellStyle maps a resolved attribute to a tcell style. Reverse is already
// applied by the color resolution and is not set again.
func cellStyle(attr highlight.Attribute, fg, bg, sp highlight.Color) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(tcellColor(fg)).
		Background(tcellColor(bg))
	if attr.Style.Has(highlight.StyleBold) {
		style = style.Bold(true)
	}
	if attr.Style.Has(highlight.StyleItalic) {
		style = style.Italic(true)
	}
	if attr.Style.Has(highlight.StyleStrikethrough) {
		style = style.StrikeThrough(true)
	}
	switch {
	case attr.Style.Has(highlight.StyleUndercurl):
		style = style.Underline(tcell.UnderlineStyleCurly, tcellColor(sp))
	case attr.Style.Has(highlight.StyleUnderdouble):
		style = style.Underline(tcell.UnderlineStyleDouble, tcellColor(sp))
	case attr.Style.Has(highlight.StyleUnderdotted):
		style = style.Underline(tcell.UnderlineStyleDotted, tcellColor(sp))
	case attr.Style.Has(highlight.StyleUnderdashed):
		style = style.Underline(tcell.UnderlineStyleDashed, tcellColor(sp))
	case attr.Style.Has(highlight.StyleUnderline):
		style = style.Underline(true)
	}
	return style
}

func tcellColor(c highlight.Color) tcell.Color {
	r, g, b := c.RGB()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
