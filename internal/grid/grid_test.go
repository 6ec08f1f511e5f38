package grid

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/gridlink/internal/testutil/testlog"
)

func fillRows(g *Grid) {
	for r := 0; r < g.Height; r++ {
		g.SetTextRun(r, 0, []TextRun{{Text: string(rune('a' + r)), AttrID: r, Repeat: g.Width}})
	}
}

func TestResizeKeepsLengthAndOverlap(t *testing.T) {
	testlog.Start(t)
	g := New(1, 4, 3)
	fillRows(g)
	sizes := [][2]int{{6, 5}, {2, 2}, {0, 4}, {3, 0}, {7, 7}}
	prev := g.Clone()
	for _, size := range sizes {
		w, h := size[0], size[1]
		g.Resize(w, h)
		if g.Len() != w*h || g.Width != w || g.Height != h {
			t.Fatalf("resize %dx%d got len=%d w=%d h=%d", w, h, g.Len(), g.Width, g.Height)
		}
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				got, _ := g.Cell(r, c)
				if r < prev.Height && c < prev.Width {
					want, _ := prev.Cell(r, c)
					if got != want {
						t.Fatalf("resize %dx%d cell(%d,%d) got=%+v want=%+v", w, h, r, c, got, want)
					}
				} else if got != BlankCell() {
					t.Fatalf("resize %dx%d new cell(%d,%d) not blank: %+v", w, h, r, c, got)
				}
			}
		}
		prev = g.Clone()
	}
}

func TestScrollUpLeavesVacatedRowsStale(t *testing.T) {
	testlog.Start(t)
	g := New(1, 10, 10)
	fillRows(g)
	g.Scroll(0, 5, 0, 10, 2)

	want := map[int]string{
		0: "cccccccccc",
		1: "dddddddddd",
		2: "eeeeeeeeee",
		3: "dddddddddd",
		4: "eeeeeeeeee",
		5: "ffffffffff",
	}
	for row, text := range want {
		if got := g.Text(row); got != text {
			t.Fatalf("row %d got=%q want=%q", row, got, text)
		}
	}
}

func TestScrollDownIteratesInReverse(t *testing.T) {
	testlog.Start(t)
	g := New(1, 3, 6)
	fillRows(g)
	g.Scroll(1, 5, 0, 3, -2)
	got := []string{g.Text(0), g.Text(1), g.Text(2), g.Text(3), g.Text(4), g.Text(5)}
	want := []string{"aaa", "bbb", "ccc", "bbb", "ccc", "fff"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("scroll down got=%v want=%v", got, want)
	}
}

func TestScrollRespectsColumnsAndClamps(t *testing.T) {
	testlog.Start(t)
	g := New(1, 4, 3)
	fillRows(g)
	g.Scroll(-5, 99, 1, 3, 1)
	if got := g.Text(0); got != "abba" {
		t.Fatalf("row 0 got=%q", got)
	}
	if got := g.Text(1); got != "bccb" {
		t.Fatalf("row 1 got=%q", got)
	}
	g.Scroll(0, 3, 0, 4, 10)
	if got := g.Text(2); got != "cccc" {
		t.Fatalf("oversized scroll should not move rows, got=%q", got)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	testlog.Start(t)
	g := New(1, 5, 2)
	fillRows(g)
	g.Clear()
	once := g.Clone()
	g.Clear()
	if !reflect.DeepEqual(once, g.Clone()) {
		t.Fatalf("second clear changed state")
	}
	if got := g.Text(1); got != "     " {
		t.Fatalf("cleared row got=%q", got)
	}
}

func TestSetTextRunDropsOutOfRange(t *testing.T) {
	testlog.Start(t)
	g := New(1, 4, 1)
	next := g.SetTextRun(0, 2, []TextRun{{Text: "x", AttrID: 3, Repeat: 5}})
	if next != 7 {
		t.Fatalf("next col got=%d want=7", next)
	}
	if got := g.Text(0); got != "  xx" {
		t.Fatalf("row got=%q", got)
	}
	g.SetTextRun(5, 0, []TextRun{{Text: "y", Repeat: 1}})
	g.SetTextRun(0, -1, []TextRun{{Text: "z", Repeat: 2}})
	if got := g.Text(0); got != "z xx" {
		t.Fatalf("row after negative start got=%q", got)
	}
}

func TestResizeRejectsOversize(t *testing.T) {
	testlog.Start(t)
	g := New(1, 4, 2)
	sizes := [][2]int{{1 << 32, 1 << 32}, {MaxDimension + 1, 1}, {1, MaxDimension + 1}, {MaxDimension, MaxDimension}}
	for _, size := range sizes {
		if err := g.Resize(size[0], size[1]); !errors.Is(err, ErrTooLarge) {
			t.Fatalf("resize %dx%d expected ErrTooLarge, got %v", size[0], size[1], err)
		}
		if g.Width != 4 || g.Height != 2 || g.Len() != 8 {
			t.Fatalf("rejected resize changed grid w=%d h=%d len=%d", g.Width, g.Height, g.Len())
		}
	}
	if err := CheckSize(MaxDimension, MaxCells/MaxDimension); err != nil {
		t.Fatalf("size at the cell limit rejected: %v", err)
	}
	if err := g.Resize(MaxDimension, 1); err != nil || g.Len() != MaxDimension {
		t.Fatalf("resize to max width err=%v len=%d", err, g.Len())
	}
}

func TestSetTextRunHugeRepeatStopsAtEdge(t *testing.T) {
	testlog.Start(t)
	g := New(1, 80, 3)
	next := g.SetTextRun(0, 0, []TextRun{{Text: "x", Repeat: 1 << 50}})
	if next != 1<<50 {
		t.Fatalf("next col got=%d want=%d", next, 1<<50)
	}
	if got := g.Text(0); got != strings.Repeat("x", 80) {
		t.Fatalf("row got=%q", got)
	}

	g.SetTextRun(1, -(1 << 40), []TextRun{{Text: "y", Repeat: 1<<40 + 2}})
	if got := g.Text(1); got != "yy"+strings.Repeat(" ", 78) {
		t.Fatalf("negative start row got=%q", got)
	}

	g.SetTextRun(2, -1, []TextRun{{Text: "世", Repeat: 1 << 60, DoubleWidth: true}})
	first, _ := g.Cell(2, 0)
	wide, _ := g.Cell(2, 1)
	last, _ := g.Cell(2, 79)
	if !first.IsContinuation() || wide.Text != "世" || last.Text != "世" {
		t.Fatalf("wide run cells got=%+v %+v %+v", first, wide, last)
	}
}

func TestSetTextRunZeroRepeatWritesNothing(t *testing.T) {
	testlog.Start(t)
	g := New(1, 3, 1)
	next := g.SetTextRun(0, 1, []TextRun{{Text: "z", Repeat: 0}, {Text: "q", Repeat: -2}})
	if next != 1 {
		t.Fatalf("next col got=%d want=1", next)
	}
	if got := g.Text(0); got != "   " {
		t.Fatalf("row got=%q", got)
	}
}

func TestSetTextRunDoubleWidth(t *testing.T) {
	testlog.Start(t)
	g := New(1, 6, 1)
	next := g.SetTextRun(0, 0, []TextRun{
		{Text: "世", AttrID: 4, Repeat: 2, DoubleWidth: true},
		{Text: "!", AttrID: 1, Repeat: 1},
	})
	if next != 5 {
		t.Fatalf("next col got=%d want=5", next)
	}
	first, _ := g.Cell(0, 0)
	cont, _ := g.Cell(0, 1)
	if !first.DoubleWidth || first.Codepoint != '世' || first.AttrID != 4 {
		t.Fatalf("unexpected wide cell %+v", first)
	}
	if !cont.IsContinuation() || cont.AttrID != 4 {
		t.Fatalf("unexpected continuation %+v", cont)
	}
	if got := g.Text(0); got != "世世! " {
		t.Fatalf("row got=%q", got)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	testlog.Start(t)
	e := NewEngine()
	e.Resize(1, 3, 1)
	e.SetTextRun(1, 0, 0, []TextRun{{Text: "a", Repeat: 3}})
	snap, ok := e.Snapshot(1)
	if !ok {
		t.Fatalf("snapshot missing")
	}
	e.Clear(1)
	if got := snap.Text(0); got != "aaa" {
		t.Fatalf("snapshot changed with engine: %q", got)
	}
	snap.Clear()
	live, _ := e.Grid(1)
	live.SetTextRun(0, 0, []TextRun{{Text: "b", Repeat: 1}})
	if got := snap.Text(0); got != "   " {
		t.Fatalf("snapshot aliases live grid: %q", got)
	}
}
