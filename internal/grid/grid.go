// Package grid owns the cell buffers the peer draws into.
//
// Ownership boundary:
// - per-grid cell storage, resize, text runs, scroll and clear
// - window placement metadata (position, float anchor, message row, viewport)
// - composition order across grids
//
// Nothing here is safe for concurrent use; the session serializes access.
package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDimension bounds a grid's width and height.
	MaxDimension = 1 << 15
	// MaxCells bounds width*height.
	MaxCells = 1 << 22
)

var ErrTooLarge = errors.New("grid: dimensions over limit")

// CheckSize reports whether width x height fits the grid limits. Negative
// sizes count as 0.
func CheckSize(width, height int) error {
	width, height = max(width, 0), max(height, 0)
	if width > MaxDimension || height > MaxDimension || width*height > MaxCells {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, width, height)
	}
	return nil
}

// Cell is one column of one row. A continuation cell (empty Text) follows a
// double-width cell and carries the same attribute.
type Cell struct {
	AttrID      int
	Text        string
	DoubleWidth bool
	Codepoint   rune
}

func BlankCell() Cell {
	return Cell{Text: " ", Codepoint: ' '}
}

func (c Cell) IsContinuation() bool {
	return c.Text == ""
}

func newCell(text string, attrID int, doubleWidth bool) Cell {
	r, _ := utf8.DecodeRuneInString(text)
	if text == "" {
		r = 0
	}
	return Cell{AttrID: attrID, Text: text, DoubleWidth: doubleWidth, Codepoint: r}
}

// TextRun is Repeat copies of Text at AttrID. A DoubleWidth run occupies two
// columns per copy.
type TextRun struct {
	Text        string
	AttrID      int
	Repeat      int
	DoubleWidth bool
}

// Viewport mirrors win_viewport.
type Viewport struct {
	TopLine     int `json:"topline"`
	BotLine     int `json:"botline"`
	CurLine     int `json:"curline"`
	CurCol      int `json:"curcol"`
	LineCount   int `json:"line_count"`
	ScrollDelta int `json:"scroll_delta"`
}

// Grid is one rectangular cell buffer plus its placement.
type Grid struct {
	ID     int
	Window int64
	// Row and Col are the origin in outer grid coordinates. Floats may sit at
	// fractional positions.
	Row    float64
	Col    float64
	Width  int
	Height int
	cells  []Cell

	Viewport     Viewport
	PrevViewport Viewport

	Placed   bool
	Floating bool
	Float    FloatPos
	Message  bool
	MsgZ     int
	External bool
	Hidden   bool
	Closed   bool
}

// New returns a grid of width x height. Sizes over the limits leave it 0x0.
func New(id, width, height int) *Grid {
	g := &Grid{ID: id}
	_ = g.Resize(width, height)
	return g
}

// Resize reallocates the buffer, keeping the top-left overlap. New cells are
// blank. Negative sizes count as 0; sizes over the limits leave the grid
// untouched and return ErrTooLarge.
func (g *Grid) Resize(width, height int) error {
	width, height = max(width, 0), max(height, 0)
	if err := CheckSize(width, height); err != nil {
		return err
	}
	if width == g.Width && height == g.Height && len(g.cells) == width*height {
		return nil
	}
	cells := make([]Cell, width*height)
	blank := BlankCell()
	for i := range cells {
		cells[i] = blank
	}
	copyWidth := min(g.Width, width)
	copyHeight := min(g.Height, height)
	for r := 0; r < copyHeight; r++ {
		copy(cells[r*width:r*width+copyWidth], g.cells[r*g.Width:r*g.Width+copyWidth])
	}
	g.cells = cells
	g.Width = width
	g.Height = height
	return nil
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.Height && col >= 0 && col < g.Width
}

// Cell returns the cell at row, col.
func (g *Grid) Cell(row, col int) (Cell, bool) {
	if !g.inBounds(row, col) {
		return Cell{}, false
	}
	return g.cells[row*g.Width+col], true
}

// RowCells returns a copy of one row.
func (g *Grid) RowCells(row int) []Cell {
	if row < 0 || row >= g.Height {
		return nil
	}
	out := make([]Cell, g.Width)
	copy(out, g.cells[row*g.Width:(row+1)*g.Width])
	return out
}

// Text joins one row's cell text. Continuation cells contribute nothing.
func (g *Grid) Text(row int) string {
	var sb strings.Builder
	for _, c := range g.RowCells(row) {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// Len is the number of stored cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// SetTextRun writes runs starting at row, col and returns the column after
// the last copy. Cells outside the grid are dropped one by one; copies past
// the right edge are not visited.
func (g *Grid) SetTextRun(row, col int, runs []TextRun) int {
	rowOK := row >= 0 && row < g.Height
	for _, run := range runs {
		if run.Repeat <= 0 {
			continue
		}
		step := 1
		if run.DoubleWidth {
			step = 2
		}
		if rowOK {
			cell := newCell(run.Text, run.AttrID, run.DoubleWidth)
			first := 0
			if col < 0 {
				first = min(-(col+1)/step, run.Repeat)
			}
			for i := first; i < run.Repeat; i++ {
				c := col + i*step
				if c >= g.Width {
					break
				}
				g.put(row, c, cell)
				if run.DoubleWidth {
					g.put(row, c+1, newCell("", run.AttrID, false))
				}
			}
		}
		col = advance(col, run.Repeat, step)
	}
	return col
}

// advance is col + repeat*step, saturating at math.MaxInt.
func advance(col, repeat, step int) int {
	if repeat > (math.MaxInt-max(col, 0))/step {
		return math.MaxInt
	}
	return col + repeat*step
}

func (g *Grid) put(row, col int, c Cell) {
	if g.inBounds(row, col) {
		g.cells[row*g.Width+col] = c
	}
}

// Scroll shifts rows [top, bot) within columns [left, right) by rows. A
// positive count moves content up. Rows uncovered by the shift keep their
// old content until the peer repaints them.
func (g *Grid) Scroll(top, bot, left, right, rows int) {
	top, left = max(top, 0), max(left, 0)
	bot, right = min(bot, g.Height), min(right, g.Width)
	if rows == 0 || top >= bot || left >= right {
		return
	}
	if rows > 0 {
		for r := top; r+rows < bot; r++ {
			g.copyRow(r+rows, r, left, right)
		}
		return
	}
	for r := bot - 1; r+rows >= top; r-- {
		g.copyRow(r+rows, r, left, right)
	}
}

func (g *Grid) copyRow(src, dst, left, right int) {
	copy(g.cells[dst*g.Width+left:dst*g.Width+right], g.cells[src*g.Width+left:src*g.Width+right])
}

// Clear blanks every cell.
func (g *Grid) Clear() {
	blank := BlankCell()
	for i := range g.cells {
		g.cells[i] = blank
	}
}

// Clone returns a deep copy.
func (g *Grid) Clone() Grid {
	out := *g
	out.cells = make([]Cell, len(g.cells))
	copy(out.cells, g.cells)
	return out
}
