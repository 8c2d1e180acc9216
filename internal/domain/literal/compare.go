package literal

import (
	"cmp"
	"math"
	"strings"
)

// Compare orders two literals totally: by kind precedence first, then within the kind.
// It returns -1, 0 or 1.
func Compare(a, b Literal) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}

	switch a.kind {
	case KindNull:
		return 0
	case KindBoolean:
		return compareBool(a.b, b.b)
	case KindNumber:
		return compareNumber(a.n, b.n)
	case KindDuration:
		return cmp.Compare(a.d, b.d)
	case KindDate:
		if c := a.t.Compare(b.t); c != 0 {
			return c
		}
		return compareBool(a.hasTime, b.hasTime)
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindLink:
		return compareLink(a.link, b.link)
	case KindList:
		return compareList(a.list, b.list)
	case KindMapping:
		return compareMapping(a, b)
	default:
		return 0
	}
}

// Equal reports whether Compare(a, b) == 0.
func Equal(a, b Literal) bool { return Compare(a, b) == 0 }

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareNumber places NaN before every other number.
func compareNumber(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	}
	return cmp.Compare(a, b)
}

func compareLink(a, b Link) int {
	if c := strings.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	if c := strings.Compare(a.Display, b.Display); c != 0 {
		return c
	}
	return compareBool(a.Embed, b.Embed)
}

func compareList(a, b []Literal) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	for i := range a {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareMapping(a, b Literal) int {
	if c := cmp.Compare(len(a.m), len(b.m)); c != 0 {
		return c
	}
	ak, bk := a.Keys(), b.Keys()
	for i := range ak {
		if c := strings.Compare(ak[i], bk[i]); c != 0 {
			return c
		}
		if c := Compare(a.m[ak[i]], b.m[bk[i]]); c != 0 {
			return c
		}
	}
	return 0
}
