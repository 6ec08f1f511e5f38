package grid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/gridlink/internal/logs"
)

// DefaultGridID is the outer grid every other grid is positioned against.
const DefaultGridID = 1

// Anchor is the float corner placed at the anchor position.
type Anchor uint8

const (
	AnchorNW Anchor = iota
	AnchorNE
	AnchorSW
	AnchorSE
)

func (a Anchor) String() string {
	switch a {
	case AnchorNE:
		return "NE"
	case AnchorSW:
		return "SW"
	case AnchorSE:
		return "SE"
	default:
		return "NW"
	}
}

func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToUpper(s) {
	case "NW":
		return AnchorNW, nil
	case "NE":
		return AnchorNE, nil
	case "SW":
		return AnchorSW, nil
	case "SE":
		return AnchorSE, nil
	default:
		return AnchorNW, fmt.Errorf("grid: unknown anchor %q", s)
	}
}

// FloatPos mirrors win_float_pos. Seq is assigned by the engine.
type FloatPos struct {
	Anchor     Anchor
	AnchorGrid int
	AnchorRow  float64
	AnchorCol  float64
	Focusable  bool
	ZIndex     int
	Seq        uint64
}

type Cursor struct {
	Grid int `json:"grid"`
	Row  int `json:"row"`
	Col  int `json:"col"`
}

// Engine exclusively owns every grid by id.
type Engine struct {
	grids    map[int]*Grid
	cursor   Cursor
	floatSeq uint64
}

func NewEngine() *Engine {
	return &Engine{
		grids:  make(map[int]*Grid),
		cursor: Cursor{Grid: DefaultGridID},
	}
}

func (e *Engine) lookup(op string, id int) (*Grid, bool) {
	g, ok := e.grids[id]
	if !ok {
		logs.Debugf("grid.Engine.%s unknown grid=%d", op, id)
	}
	return g, ok
}

// ensure creates a 0x0 grid for placement events that precede grid_resize.
func (e *Engine) ensure(id int) *Grid {
	g, ok := e.grids[id]
	if !ok {
		g = New(id, 0, 0)
		e.grids[id] = g
	}
	return g
}

// Resize creates the grid when it does not exist yet. Sizes over the limits
// return ErrTooLarge and change nothing.
func (e *Engine) Resize(id, width, height int) error {
	if err := CheckSize(width, height); err != nil {
		return err
	}
	g := e.ensure(id)
	if err := g.Resize(width, height); err != nil {
		return err
	}
	if id == DefaultGridID {
		g.Placed = true
	}
	return nil
}

func (e *Engine) SetTextRun(id, row, col int, runs []TextRun) (int, bool) {
	g, ok := e.lookup("SetTextRun", id)
	if !ok {
		return col, false
	}
	return g.SetTextRun(row, col, runs), true
}

func (e *Engine) Scroll(id, top, bot, left, right, rows int) {
	if g, ok := e.lookup("Scroll", id); ok {
		g.Scroll(top, bot, left, right, rows)
	}
}

func (e *Engine) Clear(id int) {
	if g, ok := e.lookup("Clear", id); ok {
		g.Clear()
	}
}

// Move handles win_pos: a regular window at row, col of the outer grid.
func (e *Engine) Move(id int, window int64, row, col int) {
	g := e.ensure(id)
	g.Window = window
	g.Row, g.Col = float64(row), float64(col)
	g.Placed = true
	g.Floating = false
	g.Message = false
	g.External = false
	g.Hidden = false
	g.Closed = false
}

// FloatAnchor handles win_float_pos. The origin is computed from the anchor
// grid's origin and the anchored corner.
func (e *Engine) FloatAnchor(id int, window int64, pos FloatPos) {
	g := e.ensure(id)
	e.floatSeq++
	pos.Seq = e.floatSeq

	row, col := pos.AnchorRow, pos.AnchorCol
	switch pos.Anchor {
	case AnchorNE:
		col -= float64(g.Width)
	case AnchorSW:
		row -= float64(g.Height)
	case AnchorSE:
		row -= float64(g.Height)
		col -= float64(g.Width)
	}
	if anchor, ok := e.grids[pos.AnchorGrid]; ok && pos.AnchorGrid != id {
		row += anchor.Row
		col += anchor.Col
	}

	g.Window = window
	g.Row, g.Col = row, col
	g.Float = pos
	g.Placed = true
	g.Floating = true
	g.Message = false
	g.External = false
	g.Hidden = false
	g.Closed = false
}

// MessagePos handles msg_set_pos for the ext_messages grid.
func (e *Engine) MessagePos(id, row, zindex int) {
	g := e.ensure(id)
	g.Row, g.Col = float64(row), 0
	g.MsgZ = zindex
	g.Placed = true
	g.Message = true
	g.Floating = false
	g.Hidden = false
	g.Closed = false
}

func (e *Engine) ViewportChanged(id int, vp Viewport) {
	if g, ok := e.lookup("ViewportChanged", id); ok {
		g.PrevViewport = g.Viewport
		g.Viewport = vp
	}
}

func (e *Engine) Hide(id int) {
	if g, ok := e.lookup("Hide", id); ok {
		g.Hidden = true
	}
}

func (e *Engine) Close(id int) {
	if g, ok := e.lookup("Close", id); ok {
		g.Closed = true
	}
}

func (e *Engine) External(id int, window int64) {
	if g, ok := e.lookup("External", id); ok {
		g.Window = window
		g.External = true
	}
}

func (e *Engine) Destroy(id int) {
	if _, ok := e.lookup("Destroy", id); ok {
		delete(e.grids, id)
	}
}

func (e *Engine) CursorGoto(id, row, col int) {
	if _, ok := e.lookup("CursorGoto", id); ok {
		e.cursor = Cursor{Grid: id, Row: row, Col: col}
	}
}

func (e *Engine) Cursor() Cursor {
	return e.cursor
}

// Grid returns the live grid. Callers must not retain it past the session lock.
func (e *Engine) Grid(id int) (*Grid, bool) {
	g, ok := e.grids[id]
	return g, ok
}

// Snapshot returns a deep copy of the grid.
func (e *Engine) Snapshot(id int) (Grid, bool) {
	g, ok := e.grids[id]
	if !ok {
		return Grid{}, false
	}
	return g.Clone(), true
}

func (e *Engine) IDs() []int {
	ids := make([]int, 0, len(e.grids))
	for id := range e.grids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Order returns visible grid ids back to front: regular windows by id, then
// floats by (zindex, anchor row, anchor col, float sequence, id), then
// message grids. Hidden, external, closed and never placed grids are omitted.
func (e *Engine) Order() []int {
	var regular, floats, messages []*Grid
	for _, g := range e.grids {
		if !g.Placed || g.Hidden || g.External || g.Closed {
			continue
		}
		switch {
		case g.Message:
			messages = append(messages, g)
		case g.Floating:
			floats = append(floats, g)
		default:
			regular = append(regular, g)
		}
	}
	sort.Slice(regular, func(i, j int) bool {
		return regular[i].ID < regular[j].ID
	})
	sort.Slice(floats, func(i, j int) bool {
		a, b := floats[i].Float, floats[j].Float
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		if a.AnchorRow != b.AnchorRow {
			return a.AnchorRow < b.AnchorRow
		}
		if a.AnchorCol != b.AnchorCol {
			return a.AnchorCol < b.AnchorCol
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return floats[i].ID < floats[j].ID
	})
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].MsgZ != messages[j].MsgZ {
			return messages[i].MsgZ < messages[j].MsgZ
		}
		return messages[i].ID < messages[j].ID
	})

	out := make([]int, 0, len(regular)+len(floats)+len(messages))
	for _, group := range [][]*Grid{regular, floats, messages} {
		for _, g := range group {
			out = append(out, g.ID)
		}
	}
	return out
}
