// Package redraw applies the peer's redraw notification to session state.
//
// Ownership boundary:
// - splitting redraw batches into per-event argument tuples
// - validating each tuple and dropping only the offending one
// - translating events into grid, highlight, option and ui mutations
// - firing the flush callback
package redraw

import (
	"fmt"
	"sync"

	"github.com/danmuck/gridlink/internal/grid"
	"github.com/danmuck/gridlink/internal/highlight"
	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/observability"
	"github.com/danmuck/gridlink/internal/protocol/schema"
	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/protocol/wire"
)

const (
	defaultFloatZIndex   = 50
	defaultMessageZIndex = 200
)

type Dispatcher struct {
	grids   *grid.Engine
	hl      *highlight.State
	options *Options
	ui      *UIState

	// mu is held while one tuple mutates state; flush callbacks run outside it.
	mu      sync.Locker
	onFlush []func()
}

// NewDispatcher binds the dispatcher to the state it mutates. mu may be nil
// when no reader runs concurrently.
func NewDispatcher(grids *grid.Engine, hl *highlight.State, options *Options, ui *UIState, mu sync.Locker) *Dispatcher {
	if mu == nil {
		mu = noopLocker{}
	}
	return &Dispatcher{
		grids:   grids,
		hl:      hl,
		options: options,
		ui:      ui,
		mu:      mu,
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// OnFlush registers fn to run once per flush event.
func (d *Dispatcher) OnFlush(fn func()) {
	d.onFlush = append(d.onFlush, fn)
}

// HandleRedraw applies the params of one redraw notification in order. Each
// param is a batch [name, args, args, ...].
func (d *Dispatcher) HandleRedraw(params []value.Value) {
	for _, batch := range params {
		items, ok := batch.AsArray()
		if !ok || len(items) == 0 {
			logs.Warnf("redraw.Dispatcher.HandleRedraw dropped batch kind=%s", batch.Kind())
			observability.RecordRedrawViolation("batch")
			continue
		}
		name, ok := items[0].AsString()
		if !ok {
			logs.Warnf("redraw.Dispatcher.HandleRedraw dropped batch with name kind=%s", items[0].Kind())
			observability.RecordRedrawViolation("batch")
			continue
		}
		if !schema.Known(name) {
			logs.Debugf("redraw.Dispatcher.HandleRedraw ignored event=%s tuples=%d", name, len(items)-1)
			continue
		}
		for _, tuple := range items[1:] {
			args, ok := tuple.AsArray()
			if !ok {
				d.violation(schema.ViolationError{Event: name, Index: -1, Reason: "tuple is " + tuple.Kind().String()})
				continue
			}
			if err := d.Apply(name, args); err != nil {
				d.violation(err)
			}
		}
	}
}

func (d *Dispatcher) violation(err error) {
	event := "unknown"
	if ve, ok := err.(schema.ViolationError); ok {
		event = ve.Event
	}
	logs.Warnf("redraw.Dispatcher dropped tuple err=%v", err)
	observability.RecordRedrawViolation(event)
}

// Apply validates and applies one event tuple.
func (d *Dispatcher) Apply(event string, args []value.Value) error {
	if err := schema.Validate(event, args); err != nil {
		return err
	}
	if event == "flush" {
		observability.RecordRedrawEvent(event)
		observability.RecordFlush()
		for _, fn := range d.onFlush {
			fn()
		}
		return nil
	}

	d.mu.Lock()
	err := d.apply(event, args)
	d.mu.Unlock()
	if err == nil {
		observability.RecordRedrawEvent(event)
	}
	return err
}

func (d *Dispatcher) apply(event string, args []value.Value) error {
	switch event {
	case "grid_resize":
		if err := d.grids.Resize(intArg(args, 0), intArg(args, 1), intArg(args, 2)); err != nil {
			return schema.ViolationError{Event: event, Index: 1, Reason: err.Error()}
		}
	case "grid_line":
		runs, err := parseCells(args[3])
		if err != nil {
			return err
		}
		d.grids.SetTextRun(intArg(args, 0), intArg(args, 1), intArg(args, 2), runs)
	case "grid_scroll":
		d.grids.Scroll(intArg(args, 0), intArg(args, 1), intArg(args, 2), intArg(args, 3), intArg(args, 4), intArg(args, 5))
	case "grid_clear":
		d.grids.Clear(intArg(args, 0))
	case "grid_destroy":
		d.grids.Destroy(intArg(args, 0))
	case "grid_cursor_goto":
		d.grids.CursorGoto(intArg(args, 0), intArg(args, 1), intArg(args, 2))

	case "win_pos":
		d.grids.Move(intArg(args, 0), windowHandle(args[1]), intArg(args, 2), intArg(args, 3))
	case "win_float_pos":
		anchorName, _ := args[2].AsString()
		anchor, err := grid.ParseAnchor(anchorName)
		if err != nil {
			return schema.ViolationError{Event: event, Index: 2, Reason: err.Error()}
		}
		pos := grid.FloatPos{
			Anchor:     anchor,
			AnchorGrid: intArg(args, 3),
			AnchorRow:  floatArg(args, 4),
			AnchorCol:  floatArg(args, 5),
			Focusable:  true,
			ZIndex:     defaultFloatZIndex,
		}
		if len(args) > 6 {
			pos.Focusable, _ = args[6].AsBool()
		}
		if len(args) > 7 {
			pos.ZIndex = intArg(args, 7)
		}
		d.grids.FloatAnchor(intArg(args, 0), windowHandle(args[1]), pos)
	case "win_external_pos":
		d.grids.External(intArg(args, 0), windowHandle(args[1]))
	case "win_hide":
		d.grids.Hide(intArg(args, 0))
	case "win_close":
		d.grids.Close(intArg(args, 0))
	case "win_viewport":
		vp := grid.Viewport{
			TopLine: intArg(args, 2),
			BotLine: intArg(args, 3),
			CurLine: intArg(args, 4),
			CurCol:  intArg(args, 5),
		}
		if len(args) > 6 {
			vp.LineCount = intArg(args, 6)
		}
		if len(args) > 7 {
			vp.ScrollDelta = intArg(args, 7)
		}
		d.grids.ViewportChanged(intArg(args, 0), vp)
	case "msg_set_pos":
		zindex := defaultMessageZIndex
		if len(args) > 4 {
			zindex = intArg(args, 4)
		}
		d.grids.MessagePos(intArg(args, 0), intArg(args, 1), zindex)

	case "hl_attr_define":
		id := intArg(args, 0)
		if err := d.hl.Define(id, highlight.ParseAttribute(id, args[1], args[3])); err != nil {
			return schema.ViolationError{Event: event, Index: 0, Reason: err.Error()}
		}
	case "hl_group_set":
		name, _ := args[0].AsString()
		d.hl.SetName(name, intArg(args, 1))
	case "default_colors_set":
		fg, _ := args[0].AsInt()
		bg, _ := args[1].AsInt()
		sp, _ := args[2].AsInt()
		d.hl.SetDefaultColors(fg, bg, sp)
	case "option_set":
		name, _ := args[0].AsString()
		d.options.Set(name, args[1])

	case "mode_info_set":
		d.ui.CursorStyleEnabled, _ = args[0].AsBool()
		infos, _ := args[1].AsArray()
		modes := make([]ModeInfo, 0, len(infos))
		for _, info := range infos {
			modes = append(modes, parseModeInfo(info))
		}
		d.ui.Modes = modes
	case "mode_change":
		d.ui.Mode, _ = args[0].AsString()
		d.ui.ModeIdx = intArg(args, 1)
	case "set_title":
		d.ui.Title, _ = args[0].AsString()
	case "set_icon":
		d.ui.Icon, _ = args[0].AsString()
	case "busy_start":
		d.ui.Busy = true
	case "busy_stop":
		d.ui.Busy = false
	case "mouse_on":
		d.ui.MouseEnabled = true
	case "mouse_off":
		d.ui.MouseEnabled = false
	default:
		return schema.ViolationError{Event: event, Index: -1, Reason: "no handler"}
	}
	return nil
}

// parseCells decodes grid_line cells [text, hl_id?, repeat?]. hl_id carries
// over from the previous cell and an empty text marks the previous cell as
// double width.
func parseCells(v value.Value) ([]grid.TextRun, error) {
	cells, _ := v.AsArray()
	runs := make([]grid.TextRun, 0, len(cells))
	hl := 0
	for i, cell := range cells {
		parts, ok := cell.AsArray()
		if !ok || len(parts) == 0 {
			return nil, cellError(i, "cell is not a non-empty array")
		}
		text, ok := parts[0].AsString()
		if !ok {
			return nil, cellError(i, "cell text is "+parts[0].Kind().String())
		}
		if len(parts) > 1 {
			n, ok := parts[1].AsInt()
			if !ok {
				return nil, cellError(i, "hl_id is "+parts[1].Kind().String())
			}
			hl = int(n)
		}
		repeat := 1
		if len(parts) > 2 {
			n, ok := parts[2].AsInt()
			if !ok || n < 0 {
				return nil, cellError(i, "repeat is not a count")
			}
			repeat = int(n)
		}
		if repeat == 0 {
			continue
		}

		if text == "" && len(runs) > 0 {
			runs = markDoubleWidth(runs)
			continue
		}
		runs = append(runs, grid.TextRun{Text: text, AttrID: hl, Repeat: repeat})
	}
	return runs, nil
}

// markDoubleWidth flags the last written copy of the previous run as wide,
// splitting the run when it repeats.
func markDoubleWidth(runs []grid.TextRun) []grid.TextRun {
	last := &runs[len(runs)-1]
	if last.DoubleWidth {
		return runs
	}
	if last.Repeat <= 1 {
		last.DoubleWidth = true
		return runs
	}
	wide := *last
	wide.Repeat = 1
	wide.DoubleWidth = true
	last.Repeat--
	return append(runs, wide)
}

func cellError(i int, reason string) error {
	return schema.ViolationError{Event: "grid_line", Index: 3, Reason: fmt.Sprintf("cell %d: %s", i, reason)}
}

func intArg(args []value.Value, i int) int {
	if i >= len(args) {
		return 0
	}
	n, _ := args[i].AsInt()
	return int(n)
}

func floatArg(args []value.Value, i int) float64 {
	if i >= len(args) {
		return 0
	}
	f, _ := args[i].AsFloat()
	return f
}

// windowHandle reads a window id sent either as a plain integer or as an
// ext value whose payload is a msgpack integer.
func windowHandle(v value.Value) int64 {
	if n, ok := v.AsInt(); ok {
		return n
	}
	if _, payload, ok := v.Ext(); ok {
		inner, _, err := wire.Decode(payload, 0)
		if err != nil {
			return 0
		}
		n, _ := inner.AsInt()
		return n
	}
	return 0
}
