package schema

import (
	"fmt"

	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/protocol/value"
)

// ArgKind is the accepted shape of one positional redraw argument.
type ArgKind uint8

const (
	ArgAny ArgKind = iota
	ArgInt
	ArgNumber
	ArgString
	ArgBool
	ArgArray
	ArgMap
)

func (k ArgKind) String() string {
	switch k {
	case ArgAny:
		return "any"
	case ArgInt:
		return "int"
	case ArgNumber:
		return "number"
	case ArgString:
		return "string"
	case ArgBool:
		return "bool"
	case ArgArray:
		return "array"
	case ArgMap:
		return "map"
	default:
		return fmt.Sprintf("argkind(%d)", uint8(k))
	}
}

func (k ArgKind) accepts(v value.Value) bool {
	switch k {
	case ArgAny:
		return true
	case ArgInt:
		_, ok := v.AsInt()
		return ok
	case ArgNumber:
		_, ok := v.AsFloat()
		return ok
	case ArgString:
		_, ok := v.AsString()
		return ok
	case ArgBool:
		_, ok := v.AsBool()
		return ok
	case ArgArray:
		return v.Kind() == value.KindArray
	case ArgMap:
		return v.Kind() == value.KindMap
	default:
		return false
	}
}

// Rule lists the positional arguments of one event. Arguments past MinArgs
// are optional; arguments past len(Args) are ignored.
type Rule struct {
	Args    []ArgKind
	MinArgs int
}

type ViolationError struct {
	Event  string
	Index  int
	Reason string
}

func (e ViolationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("schema: event=%s: %s", e.Event, e.Reason)
	}
	return fmt.Sprintf("schema: event=%s arg=%d: %s", e.Event, e.Index, e.Reason)
}

func fixed(args ...ArgKind) Rule {
	return Rule{Args: args, MinArgs: len(args)}
}

func optional(required int, args ...ArgKind) Rule {
	return Rule{Args: args, MinArgs: required}
}

var rules = map[string]Rule{
	"grid_resize":      fixed(ArgInt, ArgInt, ArgInt),
	"grid_line":        optional(4, ArgInt, ArgInt, ArgInt, ArgArray, ArgBool),
	"grid_scroll":      fixed(ArgInt, ArgInt, ArgInt, ArgInt, ArgInt, ArgInt, ArgInt),
	"grid_clear":       fixed(ArgInt),
	"grid_destroy":     fixed(ArgInt),
	"grid_cursor_goto": fixed(ArgInt, ArgInt, ArgInt),

	"win_pos":          fixed(ArgInt, ArgAny, ArgInt, ArgInt, ArgInt, ArgInt),
	"win_float_pos":    optional(6, ArgInt, ArgAny, ArgString, ArgInt, ArgNumber, ArgNumber, ArgBool, ArgInt),
	"win_external_pos": fixed(ArgInt, ArgAny),
	"win_hide":         fixed(ArgInt),
	"win_close":        fixed(ArgInt),
	"win_viewport":     optional(6, ArgInt, ArgAny, ArgInt, ArgInt, ArgInt, ArgInt, ArgInt, ArgInt),
	"msg_set_pos":      optional(4, ArgInt, ArgInt, ArgBool, ArgString, ArgInt),

	"hl_attr_define":     fixed(ArgInt, ArgMap, ArgMap, ArgArray),
	"hl_group_set":       fixed(ArgString, ArgInt),
	"default_colors_set": optional(3, ArgInt, ArgInt, ArgInt, ArgInt, ArgInt),
	"option_set":         fixed(ArgString, ArgAny),

	"mode_info_set": fixed(ArgBool, ArgArray),
	"mode_change":   fixed(ArgString, ArgInt),
	"set_title":     fixed(ArgString),
	"set_icon":      fixed(ArgString),
	"busy_start":    fixed(),
	"busy_stop":     fixed(),
	"mouse_on":      fixed(),
	"mouse_off":     fixed(),
	"flush":         fixed(),
}

// Known reports whether event has a rule. Unknown events are skipped by callers.
func Known(event string) bool {
	_, ok := rules[event]
	return ok
}

// Lookup returns the rule for event.
func Lookup(event string) (Rule, bool) {
	r, ok := rules[event]
	return r, ok
}

// Validate checks one argument tuple of a redraw event against its rule.
// Extra trailing arguments are accepted so newer peers stay compatible.
func Validate(event string, args []value.Value) error {
	rule, ok := rules[event]
	if !ok {
		return ViolationError{Event: event, Index: -1, Reason: "unknown event"}
	}
	if len(args) < rule.MinArgs {
		logs.Debugf("schema.Validate short tuple event=%s got=%d want=%d", event, len(args), rule.MinArgs)
		return ViolationError{
			Event:  event,
			Index:  -1,
			Reason: fmt.Sprintf("got %d args, want at least %d", len(args), rule.MinArgs),
		}
	}
	for i, kind := range rule.Args {
		if i >= len(args) {
			break
		}
		if !kind.accepts(args[i]) {
			logs.Debugf(
				"schema.Validate kind mismatch event=%s arg=%d got=%s want=%s",
				event,
				i,
				args[i].Kind(),
				kind,
			)
			return ViolationError{
				Event:  event,
				Index:  i,
				Reason: fmt.Sprintf("got %s, want %s", args[i].Kind(), kind),
			}
		}
	}
	return nil
}
