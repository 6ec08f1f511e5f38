package session

import (
	"github.com/danmuck/gridlink/internal/grid"
	"github.com/danmuck/gridlink/internal/highlight"
	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/redraw"
)

// GridSnapshot returns a deep copy of grid id.
func (s *Session) GridSnapshot(id int) (grid.Grid, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grids.Snapshot(id)
}

// GridIDs lists every known grid, drawn or not.
func (s *Session) GridIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grids.IDs()
}

// Order lists drawable grids back to front.
func (s *Session) Order() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grids.Order()
}

func (s *Session) AttributeFor(id int) highlight.Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hl.LookupByID(id)
}

// HighlightID maps a group name from hl_group_set to its attribute id, 0 if unknown.
func (s *Session) HighlightID(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hl.LookupByName(name)
}

// Resolve returns the effective colors of attr against the current defaults.
func (s *Session) Resolve(attr highlight.Attribute) (fg, bg, sp highlight.Color) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hl.Resolve(attr)
}

func (s *Session) DefaultColors() highlight.DefaultColors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hl.DefaultColors()
}

func (s *Session) Cursor() grid.Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grids.Cursor()
}

// Mode returns the active mode name and its mode_info entry when known.
func (s *Session) Mode() (string, redraw.ModeInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.ui.CurrentMode()
	return s.ui.Mode, info, ok
}

func (s *Session) Option(name string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options.Get(name)
}

func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ui.Title
}

// UI returns a copy of the non-grid ui state.
func (s *Session) UI() redraw.UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := *s.ui
	out.Modes = append([]redraw.ModeInfo(nil), s.ui.Modes...)
	return out
}
