// Package literal defines the value model shared by query evaluation and table results.
//
// A Literal is a closed sum type: exactly one of null, boolean, number, duration,
// date, string, link, list or mapping. Every operation in this package is total over
// well-formed values and never panics.
package literal

import (
	"maps"
	"path"
	"slices"
	"strings"
	"time"
)

// Kind identifies the variant held by a Literal.
// The declaration order is the cross-kind sort precedence.
type Kind int

// Literal kinds in sort precedence order.
const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindDuration
	KindDate
	KindString
	KindLink
	KindList
	KindMapping
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBoolean:  "boolean",
	KindNumber:   "number",
	KindDuration: "duration",
	KindDate:     "date",
	KindString:   "string",
	KindLink:     "link",
	KindList:     "list",
	KindMapping:  "mapping",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return KindNull, false
}

// Link points at a document, optionally with a display alias.
type Link struct {
	Path    string
	Display string
	Embed   bool
}

// Name returns the alias if set, otherwise the target's base name without extension.
func (l Link) Name() string {
	if l.Display != "" {
		return l.Display
	}
	base := path.Base(l.Path)
	if base == "." || base == "/" {
		return l.Path
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Literal is an immutable query value.
type Literal struct {
	kind    Kind
	b       bool
	n       float64
	s       string
	t       time.Time
	hasTime bool
	d       time.Duration
	link    Link
	list    []Literal
	m       map[string]Literal
}

// Null returns the null literal. The zero Literal is also null.
func Null() Literal { return Literal{} }

// Bool wraps a boolean.
func Bool(b bool) Literal { return Literal{kind: KindBoolean, b: b} }

// Number wraps a float64.
func Number(n float64) Literal { return Literal{kind: KindNumber, n: n} }

// Int wraps an integer as a number.
func Int(n int64) Literal { return Number(float64(n)) }

// String wraps a string.
func String(s string) Literal { return Literal{kind: KindString, s: s} }

// Date wraps a calendar date. The time of day is truncated.
func Date(t time.Time) Literal {
	y, mo, d := t.Date()
	return Literal{kind: KindDate, t: time.Date(y, mo, d, 0, 0, 0, 0, t.Location())}
}

// DateTime wraps an instant that carries a time of day.
func DateTime(t time.Time) Literal {
	return Literal{kind: KindDate, t: t, hasTime: true}
}

// Duration wraps a duration.
func Duration(d time.Duration) Literal { return Literal{kind: KindDuration, d: d} }

// LinkTo wraps a link without alias.
func LinkTo(p string) Literal { return Literal{kind: KindLink, link: Link{Path: p}} }

// NewLink wraps a link.
func NewLink(l Link) Literal { return Literal{kind: KindLink, link: l} }

// List wraps a copy of the given items.
func List(items ...Literal) Literal {
	return Literal{kind: KindList, list: slices.Clone(items)}
}

// Mapping wraps a copy of the given map.
func Mapping(m map[string]Literal) Literal {
	if m == nil {
		m = map[string]Literal{}
	}
	return Literal{kind: KindMapping, m: maps.Clone(m)}
}

// Strings wraps a list of strings.
func Strings(items []string) Literal {
	out := make([]Literal, len(items))
	for i, s := range items {
		out[i] = String(s)
	}
	return Literal{kind: KindList, list: out}
}

// Kind returns the variant held by v.
func (v Literal) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Literal) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Literal) AsBool() (bool, bool) { return v.b, v.kind == KindBoolean }

// AsNumber returns the numeric payload.
func (v Literal) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload.
func (v Literal) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsDate returns the instant and whether it carries a time of day.
func (v Literal) AsDate() (t time.Time, hasTime, ok bool) {
	return v.t, v.hasTime, v.kind == KindDate
}

// AsDuration returns the duration payload.
func (v Literal) AsDuration() (time.Duration, bool) { return v.d, v.kind == KindDuration }

// AsLink returns the link payload.
func (v Literal) AsLink() (Link, bool) { return v.link, v.kind == KindLink }

// AsList returns a copy of the list items.
func (v Literal) AsList() ([]Literal, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// AsMapping returns a copy of the mapping entries.
func (v Literal) AsMapping() (map[string]Literal, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	return maps.Clone(v.m), true
}

// Len returns the number of items of a list or mapping, the rune count of a string, 0 otherwise.
func (v Literal) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMapping:
		return len(v.m)
	case KindString:
		return len([]rune(v.s))
	default:
		return 0
	}
}

// Item returns the i-th list element; out of range yields null.
func (v Literal) Item(i int) Literal {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Null()
	}
	return v.list[i]
}

// Get returns a mapping entry.
func (v Literal) Get(key string) (Literal, bool) {
	if v.kind != KindMapping {
		return Null(), false
	}
	e, ok := v.m[key]
	return e, ok
}

// Keys returns the sorted mapping keys.
func (v Literal) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	return slices.Sorted(maps.Keys(v.m))
}

// Truthy reports the boolean interpretation of v used by filters and logical operators.
func (v Literal) Truthy() bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindDuration:
		return v.d != 0
	case KindDate, KindLink:
		return true
	case KindList:
		return len(v.list) > 0
	case KindMapping:
		return len(v.m) > 0
	default:
		return false
	}
}
