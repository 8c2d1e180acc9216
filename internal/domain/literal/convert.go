package literal

import (
	"fmt"
	"time"
)

// FromAny converts a decoded YAML/JSON value into a Literal.
// Unsupported shapes degrade to null.
func FromAny(v any) Literal {
	switch x := v.(type) {
	case nil:
		return Null()
	case Literal:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case string:
		return String(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return Date(x)
		}
		return DateTime(x)
	case time.Duration:
		return Duration(x)
	case Link:
		return NewLink(x)
	case []string:
		return Strings(x)
	case []any:
		items := make([]Literal, len(x))
		for i, item := range x {
			items[i] = FromAny(item)
		}
		return Literal{kind: KindList, list: items}
	case map[string]any:
		m := make(map[string]Literal, len(x))
		for k, item := range x {
			m[k] = FromAny(item)
		}
		return Literal{kind: KindMapping, m: m}
	case map[any]any:
		m := make(map[string]Literal, len(x))
		for k, item := range x {
			m[fmt.Sprint(k)] = FromAny(item)
		}
		return Literal{kind: KindMapping, m: m}
	default:
		return Null()
	}
}
