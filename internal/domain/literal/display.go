package literal

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	nullDisplay    = "-"
)

// Display renders v for a table cell.
func Display(v Literal) string {
	switch v.kind {
	case KindNull:
		return nullDisplay
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindDuration:
		return formatDuration(v.d)
	case KindDate:
		if v.hasTime {
			return v.t.Format(dateTimeLayout)
		}
		return v.t.Format(dateLayout)
	case KindString:
		return v.s
	case KindLink:
		return v.link.Name()
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = Display(item)
		}
		return strings.Join(parts, ", ")
	case KindMapping:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Display(v.m[k])
		}
		return strings.Join(parts, ", ")
	default:
		return nullDisplay
	}
}

// String implements fmt.Stringer with the display form.
func (v Literal) String() string { return Display(v) }

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case math.Abs(n) >= 1e21:
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}

var durationUnits = []struct {
	size time.Duration
	name string
}{
	{24 * time.Hour, "day"},
	{time.Hour, "hour"},
	{time.Minute, "minute"},
	{time.Second, "second"},
	{time.Millisecond, "millisecond"},
}

// formatDuration renders e.g. "1 day, 2 hours". Sub-millisecond remainders are dropped.
func formatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	var parts []string
	for _, u := range durationUnits {
		if d < u.size {
			continue
		}
		n := d / u.size
		d -= n * u.size
		unit := u.name
		if n != 1 {
			unit += "s"
		}
		parts = append(parts, strconv.FormatInt(int64(n), 10)+" "+unit)
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return sign + strings.Join(parts, ", ")
}
