package highlight

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/gridlink/internal/protocol/value"
	"github.com/danmuck/gridlink/internal/testutil/testlog"
)

func TestLookupZeroEqualsOutOfRange(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	if !reflect.DeepEqual(s.LookupByID(0), s.LookupByID(9999)) {
		t.Fatalf("id 0 and out-of-range lookups differ: %+v vs %+v", s.LookupByID(0), s.LookupByID(9999))
	}
	if !reflect.DeepEqual(s.LookupByID(-3), s.Default()) {
		t.Fatalf("negative id should return default")
	}
}

func TestDefineRejectsIDsOverLimit(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	if err := s.Define(1<<40, Attribute{}); !errors.Is(err, ErrIDOutOfRange) {
		t.Fatalf("expected ErrIDOutOfRange, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("rejected define grew table len=%d", s.Len())
	}
	if err := s.Define(-3, Attribute{}); err != nil {
		t.Fatalf("non-positive ids are ignored, got %v", err)
	}
}

func TestDefineGrowsWithPlaceholders(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	s.Define(5, Attribute{Foreground: 0x112233, HasForeground: true})
	if s.Len() != 6 {
		t.Fatalf("len got=%d want=6", s.Len())
	}
	placeholder := s.LookupByID(3)
	if placeholder.ID != 3 || placeholder.HasForeground || placeholder.HasBackground {
		t.Fatalf("unexpected placeholder %+v", placeholder)
	}
	fg, bg, _ := s.Resolve(placeholder)
	if fg != DefaultForeground || bg != DefaultBackground {
		t.Fatalf("placeholder should resolve to defaults fg=%s bg=%s", fg, bg)
	}
	if got := s.LookupByID(5); got.ID != 5 || got.Foreground != 0x112233 {
		t.Fatalf("unexpected attr %+v", got)
	}

	s.Define(5, Attribute{Background: 0x445566, HasBackground: true})
	if got := s.LookupByID(5); got.HasForeground || got.Background != 0x445566 {
		t.Fatalf("redefine should overwrite, got %+v", got)
	}
	s.Define(0, Attribute{Foreground: 1, HasForeground: true})
	if got := s.LookupByID(0); got.Foreground != DefaultForeground {
		t.Fatalf("id 0 must stay the default, got %+v", got)
	}
}

func TestResolveSwapsAfterDefaultSubstitution(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	s.SetDefaultColors(0xaaaaaa, 0x111111, -1)
	attr := Attribute{Foreground: 0x00ff00, HasForeground: true, Style: StyleReverse}
	fg, bg, sp := s.Resolve(attr)
	if fg != 0x111111 || bg != 0x00ff00 {
		t.Fatalf("reverse resolution fg=%s bg=%s", fg, bg)
	}
	if sp != DefaultSpecial {
		t.Fatalf("negative special should fall back to builtin, got %s", sp)
	}
}

func TestSetDefaultColorsReplacesTriple(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	s.SetDefaultColors(1, 2, 3)
	s.SetDefaultColors(-1, 5, -1)
	got := s.DefaultColors()
	want := DefaultColors{Foreground: DefaultForeground, Background: 5, Special: DefaultSpecial}
	if got != want {
		t.Fatalf("defaults got=%+v want=%+v", got, want)
	}
}

func TestNamesOverwriteAndUnknown(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	s.SetName("Normal", 3)
	s.SetName("Normal", 4)
	if got := s.LookupByName("Normal"); got != 4 {
		t.Fatalf("alias got=%d want=4", got)
	}
	if got := s.LookupByName("Missing"); got != 0 {
		t.Fatalf("unknown name got=%d", got)
	}
}

func TestParseAttribute(t *testing.T) {
	testlog.Start(t)
	rgb := value.Map(
		value.Entry("foreground", value.Int(0xff8800)),
		value.Entry("background", value.Uint(0x000010)),
		value.Entry("bold", value.Bool(true)),
		value.Entry("italic", value.Bool(false)),
		value.Entry("reverse", value.Bool(true)),
		value.Entry("undercurl", value.Bool(true)),
		value.Entry("blend", value.Int(140)),
		value.Entry("nocombine", value.Bool(true)),
	)
	info := value.Array(
		value.Map(value.Entry("kind", value.String("syntax")), value.Entry("hi_name", value.String("Comment"))),
		value.Map(value.Entry("kind", value.String("ui")), value.Entry("ui_name", value.String("Pmenu"))),
	)
	attr := ParseAttribute(7, rgb, info)
	if attr.ID != 7 || attr.Foreground != 0xff8800 || !attr.HasBackground || attr.Background != 0x10 {
		t.Fatalf("unexpected colors %+v", attr)
	}
	if attr.HasSpecial {
		t.Fatalf("special should be unset")
	}
	want := StyleBold | StyleReverse | StyleUndercurl
	if attr.Style != want {
		t.Fatalf("style got=%s want=%s", attr.Style, want)
	}
	if attr.Blend != 100 || attr.Kind != KindSyntax {
		t.Fatalf("blend=%d kind=%s", attr.Blend, attr.Kind)
	}
	if !reflect.DeepEqual(attr.Groups, []string{"Comment", "Pmenu"}) {
		t.Fatalf("groups got=%v", attr.Groups)
	}
}

func TestBlendEndpointsAndMidpoint(t *testing.T) {
	testlog.Start(t)
	top, bottom := Color(0xffffff), Color(0x000000)
	if got := Blend(top, bottom, 0); got != top {
		t.Fatalf("blend 0 got=%s", got)
	}
	if got := Blend(top, bottom, 100); got != bottom {
		t.Fatalf("blend 100 got=%s", got)
	}
	r, g, b := Blend(top, bottom, 50).RGB()
	if r < 126 || r > 129 || r != g || g != b {
		t.Fatalf("blend 50 got=%d,%d,%d", r, g, b)
	}
}

func TestParseHex(t *testing.T) {
	testlog.Start(t)
	c, err := ParseHex("#1a2B3c")
	if err != nil || c != 0x1a2b3c || c.Hex() != "#1a2b3c" {
		t.Fatalf("parse got=%s err=%v", c, err)
	}
	if c, err := ParseHex("f00"); err != nil || c != 0xff0000 {
		t.Fatalf("short form got=%s err=%v", c, err)
	}
	if _, err := ParseHex("#zz0000"); err == nil {
		t.Fatalf("expected error")
	}
}
