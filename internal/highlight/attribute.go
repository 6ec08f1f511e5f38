package highlight

import (
	"strings"

	"github.com/danmuck/gridlink/internal/protocol/value"
)

// Style is a bitset of text decorations.
type Style uint16

const (
	StyleBold Style = 1 << iota
	StyleItalic
	StyleUnderline
	StyleUndercurl
	StyleUnderdouble
	StyleUnderdotted
	StyleUnderdashed
	StyleStrikethrough
	StyleReverse
	StyleAltfont
)

var styleKeys = []struct {
	key   string
	style Style
}{
	{"bold", StyleBold},
	{"italic", StyleItalic},
	{"underline", StyleUnderline},
	{"undercurl", StyleUndercurl},
	{"underdouble", StyleUnderdouble},
	{"underdotted", StyleUnderdotted},
	{"underdashed", StyleUnderdashed},
	{"strikethrough", StyleStrikethrough},
	{"reverse", StyleReverse},
	{"altfont", StyleAltfont},
}

func (s Style) Has(flag Style) bool {
	return s&flag != 0
}

func (s Style) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, k := range styleKeys {
		if s.Has(k.style) {
			parts = append(parts, k.key)
		}
	}
	return strings.Join(parts, "|")
}

// Kind is where a highlight came from, taken from the ext_hlstate info.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUI
	KindSyntax
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindUI:
		return "ui"
	case KindSyntax:
		return "syntax"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

func parseKind(s string) Kind {
	switch s {
	case "ui":
		return KindUI
	case "syntax":
		return KindSyntax
	case "terminal":
		return KindTerminal
	default:
		return KindUnknown
	}
}

// Attribute is one entry of the highlight table. Unset colors fall back to
// the default colors at resolution time.
type Attribute struct {
	ID            int
	Foreground    Color
	Background    Color
	Special       Color
	HasForeground bool
	HasBackground bool
	HasSpecial    bool
	Style         Style
	Blend         int
	Groups        []string
	Kind          Kind
}

// Clone copies the group slice so callers cannot alias table storage.
func (a Attribute) Clone() Attribute {
	if a.Groups != nil {
		a.Groups = append([]string(nil), a.Groups...)
	}
	return a
}

// ParseAttribute builds an Attribute from hl_attr_define's rgb_attr map and
// info array. Unknown keys are ignored.
func ParseAttribute(id int, rgb value.Value, info value.Value) Attribute {
	attr := Attribute{ID: id}
	if c, ok := colorKey(rgb, "foreground"); ok {
		attr.Foreground, attr.HasForeground = c, true
	}
	if c, ok := colorKey(rgb, "background"); ok {
		attr.Background, attr.HasBackground = c, true
	}
	if c, ok := colorKey(rgb, "special"); ok {
		attr.Special, attr.HasSpecial = c, true
	}
	for _, k := range styleKeys {
		if v, ok := rgb.Get(k.key); ok {
			if b, ok := v.AsBool(); ok && b {
				attr.Style |= k.style
			}
		}
	}
	if v, ok := rgb.Get("blend"); ok {
		if n, ok := v.AsInt(); ok {
			attr.Blend = clampBlend(n)
		}
	}

	items, _ := info.AsArray()
	for _, item := range items {
		if v, ok := item.Get("kind"); ok && attr.Kind == KindUnknown {
			if s, ok := v.AsString(); ok {
				attr.Kind = parseKind(s)
			}
		}
		name := ""
		if v, ok := item.Get("hi_name"); ok {
			name, _ = v.AsString()
		}
		if name == "" {
			if v, ok := item.Get("ui_name"); ok {
				name, _ = v.AsString()
			}
		}
		if name != "" {
			attr.Groups = append(attr.Groups, name)
		}
	}
	return attr
}

func colorKey(m value.Value, key string) (Color, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.AsInt()
	if !ok || n < 0 {
		return 0, false
	}
	return Color(n & 0xffffff), true
}

func clampBlend(n int64) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	default:
		return int(n)
	}
}
