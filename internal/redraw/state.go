package redraw

import (
	"sort"

	"github.com/danmuck/gridlink/internal/protocol/value"
)

// Options stores option_set values by name.
type Options struct {
	values map[string]value.Value
}

func NewOptions() *Options {
	return &Options{values: make(map[string]value.Value)}
}

func (o *Options) Set(name string, v value.Value) {
	o.values[name] = v
}

func (o *Options) Get(name string) (value.Value, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Names lists option names in sorted order.
func (o *Options) Names() []string {
	out := make([]string, 0, len(o.values))
	for name := range o.values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ModeInfo is one entry of mode_info_set.
type ModeInfo struct {
	Name           string
	ShortName      string
	CursorShape    string
	CellPercentage int
	BlinkWait      int
	BlinkOn        int
	BlinkOff       int
	AttrID         int
}

func parseModeInfo(v value.Value) ModeInfo {
	return ModeInfo{
		Name:           stringKey(v, "name"),
		ShortName:      stringKey(v, "short_name"),
		CursorShape:    stringKey(v, "cursor_shape"),
		CellPercentage: intKey(v, "cell_percentage"),
		BlinkWait:      intKey(v, "blinkwait"),
		BlinkOn:        intKey(v, "blinkon"),
		BlinkOff:       intKey(v, "blinkoff"),
		AttrID:         intKey(v, "attr_id"),
	}
}

// UIState holds the non-grid editor state carried by redraw.
type UIState struct {
	Title              string
	Icon               string
	Mode               string
	ModeIdx            int
	Modes              []ModeInfo
	CursorStyleEnabled bool
	Busy               bool
	MouseEnabled       bool
}

// CurrentMode returns the mode_info entry for the active mode index.
func (u *UIState) CurrentMode() (ModeInfo, bool) {
	if u.ModeIdx < 0 || u.ModeIdx >= len(u.Modes) {
		return ModeInfo{}, false
	}
	return u.Modes[u.ModeIdx], true
}

func stringKey(m value.Value, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

func intKey(m value.Value, key string) int {
	v, ok := m.Get(key)
	if !ok {
		return 0
	}
	n, _ := v.AsInt()
	return int(n)
}
