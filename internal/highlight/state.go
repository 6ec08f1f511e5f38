// Package highlight owns the attribute table referenced by grid cells.
//
// Ownership boundary:
// - attribute definitions indexed densely by peer-assigned id
// - group name aliases
// - default colors and the resolution rule every consumer uses
//
// State is not safe for concurrent use; the session serializes access.
package highlight

import (
	"errors"
	"fmt"

	"github.com/danmuck/gridlink/internal/logs"
)

// MaxID bounds attribute ids so the dense table stays small.
const MaxID = 1 << 20

var ErrIDOutOfRange = errors.New("highlight: attribute id out of range")

// DefaultColors is the fallback triple used for unset attribute colors.
type DefaultColors struct {
	Foreground Color
	Background Color
	Special    Color
}

func BuiltinDefaults() DefaultColors {
	return DefaultColors{
		Foreground: DefaultForeground,
		Background: DefaultBackground,
		Special:    DefaultSpecial,
	}
}

type State struct {
	// attrs[0] is never read; id 0 always resolves to the default attribute.
	attrs    []Attribute
	names    map[string]int
	defaults DefaultColors
}

func NewState() *State {
	return &State{
		attrs:    make([]Attribute, 1),
		names:    make(map[string]int),
		defaults: BuiltinDefaults(),
	}
}

// Define stores attr at id, growing the table with placeholders when id is
// past the end. Ids below 1 are ignored; ids above MaxID are rejected.
func (s *State) Define(id int, attr Attribute) error {
	if id <= 0 {
		logs.Debugf("highlight.State.Define ignored id=%d", id)
		return nil
	}
	if id > MaxID {
		return fmt.Errorf("%w: %d", ErrIDOutOfRange, id)
	}
	for len(s.attrs) <= id {
		s.attrs = append(s.attrs, Attribute{ID: len(s.attrs)})
	}
	attr.ID = id
	s.attrs[id] = attr.Clone()
	return nil
}

// SetName aliases name to id, replacing any previous alias.
func (s *State) SetName(name string, id int) {
	s.names[name] = id
}

// LookupByID never fails: id 0 and unknown ids return the default attribute.
func (s *State) LookupByID(id int) Attribute {
	if id <= 0 || id >= len(s.attrs) {
		return s.Default()
	}
	return s.attrs[id].Clone()
}

// LookupByName returns 0 for unknown names.
func (s *State) LookupByName(name string) int {
	return s.names[name]
}

// Names returns a copy of the alias table.
func (s *State) Names() map[string]int {
	out := make(map[string]int, len(s.names))
	for k, v := range s.names {
		out[k] = v
	}
	return out
}

// SetDefaultColors replaces all three defaults at once. Negative inputs mean
// "unset" and fall back to the built-in colors.
func (s *State) SetDefaultColors(fg, bg, sp int64) {
	d := BuiltinDefaults()
	if fg >= 0 {
		d.Foreground = Color(fg & 0xffffff)
	}
	if bg >= 0 {
		d.Background = Color(bg & 0xffffff)
	}
	if sp >= 0 {
		d.Special = Color(sp & 0xffffff)
	}
	s.defaults = d
}

func (s *State) DefaultColors() DefaultColors {
	return s.defaults
}

// Default is the attribute used for id 0.
func (s *State) Default() Attribute {
	return Attribute{
		Foreground:    s.defaults.Foreground,
		Background:    s.defaults.Background,
		Special:       s.defaults.Special,
		HasForeground: true,
		HasBackground: true,
		HasSpecial:    true,
	}
}

// Resolve substitutes defaults for unset colors, then swaps foreground and
// background when the attribute is reversed.
func (s *State) Resolve(attr Attribute) (fg, bg, sp Color) {
	fg, bg, sp = s.defaults.Foreground, s.defaults.Background, s.defaults.Special
	if attr.HasForeground {
		fg = attr.Foreground
	}
	if attr.HasBackground {
		bg = attr.Background
	}
	if attr.HasSpecial {
		sp = attr.Special
	}
	if attr.Style.Has(StyleReverse) {
		fg, bg = bg, fg
	}
	return fg, bg, sp
}

// Len is the table size including the reserved id 0 slot.
func (s *State) Len() int {
	return len(s.attrs)
}
