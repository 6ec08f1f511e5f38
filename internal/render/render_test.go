package render

import (
	"errors"
	"testing"

	"github.com/danmuck/gridlink/internal/grid"
	"github.com/danmuck/gridlink/internal/highlight"
	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/testutil/testlog"
	"github.com/gdamore/tcell/v2"
)

// fakeModel serves the read interface straight from an engine and table.
type fakeModel struct {
	grids *grid.Engine
	hl    *highlight.State
}

func newFakeModel() *fakeModel {
	return &fakeModel{grids: grid.NewEngine(), hl: highlight.NewState()}
}

func (m *fakeModel) Order() []int { return m.grids.Order() }

func (m *fakeModel) GridSnapshot(id int) (grid.Grid, bool) { return m.grids.Snapshot(id) }

func (m *fakeModel) AttributeFor(id int) highlight.Attribute { return m.hl.LookupByID(id) }

func (m *fakeModel) Resolve(attr highlight.Attribute) (fg, bg, sp highlight.Color) {
	return m.hl.Resolve(attr)
}

func (m *fakeModel) DefaultColors() highlight.DefaultColors { return m.hl.DefaultColors() }

func (m *fakeModel) Cursor() grid.Cursor { return m.grids.Cursor() }

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func cellAt(t *testing.T, screen tcell.SimulationScreen, x, y int) tcell.SimCell {
	t.Helper()
	cells, w, _ := screen.GetContents()
	return cells[y*w+x]
}

func TestDrawTextAndColors(t *testing.T) {
	testlog.Start(t)
	m := newFakeModel()
	m.hl.SetDefaultColors(0xc0c0c0, 0x000000, -1)
	m.hl.Define(3, highlight.ParseAttribute(3,
		value.Map(value.Entry("foreground", value.Int(0xff8800)), value.Entry("bold", value.Bool(true))),
		value.Array(),
	))
	m.grids.Resize(1, 6, 2)
	m.grids.SetTextRun(1, 0, 0, []grid.TextRun{{Text: "h", AttrID: 3, Repeat: 1}, {Text: "i", AttrID: 0, Repeat: 1}})
	m.grids.CursorGoto(1, 1, 2)

	screen := newScreen(t, 6, 2)
	if err := Draw(TargetTerminal, screen, m); err != nil {
		t.Fatalf("draw: %v", err)
	}

	h := cellAt(t, screen, 0, 0)
	if len(h.Runes) == 0 || h.Runes[0] != 'h' {
		t.Fatalf("cell(0,0) runes=%q", h.Runes)
	}
	fg, bg, attrs := h.Style.Decompose()
	if fg != tcell.NewRGBColor(0xff, 0x88, 0x00) || bg != tcell.NewRGBColor(0, 0, 0) || attrs&tcell.AttrBold == 0 {
		t.Fatalf("cell(0,0) style fg=%v bg=%v attrs=%v", fg, bg, attrs)
	}
	i := cellAt(t, screen, 1, 0)
	if fg, _, _ := i.Style.Decompose(); fg != tcell.NewRGBColor(0xc0, 0xc0, 0xc0) {
		t.Fatalf("default fg not applied: %v", fg)
	}
	x, y, visible := screen.GetCursor()
	if !visible || x != 2 || y != 1 {
		t.Fatalf("cursor x=%d y=%d visible=%v", x, y, visible)
	}
}

func TestDrawFloatOverRegularGrid(t *testing.T) {
	testlog.Start(t)
	m := newFakeModel()
	m.hl.Define(1, highlight.ParseAttribute(1, value.Map(value.Entry("background", value.Int(0x0000ff))), value.Array()))
	m.hl.Define(2, highlight.ParseAttribute(2,
		value.Map(value.Entry("background", value.Int(0xff0000)), value.Entry("blend", value.Int(50))),
		value.Array(),
	))
	m.grids.Resize(1, 8, 3)
	m.grids.SetTextRun(1, 0, 0, []grid.TextRun{{Text: "a", AttrID: 1, Repeat: 8}})
	m.grids.Resize(3, 2, 1)
	m.grids.SetTextRun(3, 0, 0, []grid.TextRun{{Text: "F", AttrID: 2, Repeat: 2}})
	m.grids.FloatAnchor(3, 1000, grid.FloatPos{Anchor: grid.AnchorNW, AnchorGrid: 1, AnchorRow: 0, AnchorCol: 3, ZIndex: 50})

	screen := newScreen(t, 8, 3)
	if err := Draw(TargetTerminal, screen, m); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if got := cellAt(t, screen, 3, 0); got.Runes[0] != 'F' {
		t.Fatalf("float not drawn on top: %q", got.Runes)
	}
	if got := cellAt(t, screen, 5, 0); got.Runes[0] != 'a' {
		t.Fatalf("regular grid lost past float: %q", got.Runes)
	}
	_, bg, _ := cellAt(t, screen, 3, 0).Style.Decompose()
	want := highlight.Blend(0xff0000, 0x0000ff, 50)
	r, g, b := want.RGB()
	if bg != tcell.NewRGBColor(int32(r), int32(g), int32(b)) {
		t.Fatalf("blended bg got=%v want=%s", bg, want)
	}
}

func TestDrawWideCell(t *testing.T) {
	testlog.Start(t)
	m := newFakeModel()
	m.grids.Resize(1, 4, 1)
	m.grids.SetTextRun(1, 0, 0, []grid.TextRun{{Text: "語", DoubleWidth: true, Repeat: 1}, {Text: "x", Repeat: 1}})

	screen := newScreen(t, 4, 1)
	if err := Draw(TargetTerminal, screen, m); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if got := cellAt(t, screen, 0, 0); got.Runes[0] != '語' {
		t.Fatalf("wide rune got=%q", got.Runes)
	}
	if got := cellAt(t, screen, 2, 0); got.Runes[0] != 'x' {
		t.Fatalf("cell after wide rune got=%q", got.Runes)
	}
}

func TestDrawHidesCursorOffGrid(t *testing.T) {
	testlog.Start(t)
	m := newFakeModel()
	m.grids.Resize(1, 4, 2)
	m.grids.Resize(2, 2, 1)
	m.grids.Move(2, 1000, 1, 2)
	m.grids.CursorGoto(2, 0, 1)

	screen := newScreen(t, 4, 2)
	if err := Draw(TargetTerminal, screen, m); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if x, y, visible := screen.GetCursor(); !visible || x != 3 || y != 1 {
		t.Fatalf("cursor got=(%d,%d) visible=%v want=(3,1)", x, y, visible)
	}

	m.grids.Hide(2)
	if err := Draw(TargetTerminal, screen, m); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if _, _, visible := screen.GetCursor(); visible {
		t.Fatalf("cursor on hidden grid should be hidden")
	}

	m.grids.CursorGoto(9, 0, 0)
	if got := m.grids.Cursor(); got.Grid != 2 {
		t.Fatalf("cursor goto unknown grid should be ignored, cursor=%+v", got)
	}
	if err := Draw(TargetTerminal, screen, m); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if _, _, visible := screen.GetCursor(); visible {
		t.Fatalf("cursor should stay hidden while its grid is hidden")
	}
}

func TestTargets(t *testing.T) {
	testlog.Start(t)
	screen := newScreen(t, 2, 1)
	if err := Draw(TargetAccelerated, screen, newFakeModel()); !errors.Is(err, ErrUnsupportedTarget) {
		t.Fatalf("expected ErrUnsupportedTarget, got %v", err)
	}
	if err := Draw(Target(9), screen, newFakeModel()); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
	for in, want := range map[string]Target{"": TargetTerminal, "Terminal": TargetTerminal, "gpu": TargetAccelerated} {
		got, err := ParseTarget(in)
		if err != nil || got != want {
			t.Fatalf("ParseTarget(%q) got=%s err=%v", in, got, err)
		}
	}
	if _, err := ParseTarget("opengl"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
}
