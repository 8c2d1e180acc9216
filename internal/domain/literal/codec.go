package literal

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// wire is the tagged JSON form of a Literal.
type wire struct {
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	HasTime bool            `json:"time,omitempty"`
}

type wireLink struct {
	Path    string `json:"path"`
	Display string `json:"display,omitempty"`
	Embed   bool   `json:"embed,omitempty"`
}

// MarshalJSON encodes v as {"type": <kind>, "value": <payload>}.
func (v Literal) MarshalJSON() ([]byte, error) {
	w := wire{Type: v.kind.String()}

	var payload any
	switch v.kind {
	case KindNull:
		return json.Marshal(w)
	case KindBoolean:
		payload = v.b
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			payload = strconv.FormatFloat(v.n, 'g', -1, 64)
		} else {
			payload = v.n
		}
	case KindDuration:
		payload = v.d.String()
	case KindDate:
		payload = v.t.Format(time.RFC3339Nano)
		w.HasTime = v.hasTime
	case KindString:
		payload = v.s
	case KindLink:
		payload = wireLink(v.link)
	case KindList:
		items := v.list
		if items == nil {
			items = []Literal{}
		}
		payload = items
	case KindMapping:
		payload = v.m
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s literal: %w", v.kind, err)
	}
	w.Value = raw
	return json.Marshal(w)
}

// UnmarshalJSON decodes the tagged form. Unknown types decode as null.
func (v *Literal) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode literal: %w", err)
	}

	kind, ok := ParseKind(w.Type)
	if !ok || kind == KindNull || len(w.Value) == 0 {
		*v = Null()
		return nil
	}

	out, err := decodePayload(kind, w)
	if err != nil {
		return fmt.Errorf("decode %s literal: %w", kind, err)
	}
	*v = out
	return nil
}

func decodePayload(kind Kind, w wire) (Literal, error) {
	switch kind {
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return Null(), err
		}
		return Bool(b), nil
	case KindNumber:
		var n float64
		if err := json.Unmarshal(w.Value, &n); err == nil {
			return Number(n), nil
		}
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Null(), err
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null(), err
		}
		return Number(n), nil
	case KindDuration:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Null(), err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return Null(), err
		}
		return Duration(d), nil
	case KindDate:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Null(), err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Null(), err
		}
		if w.HasTime {
			return DateTime(t), nil
		}
		return Date(t), nil
	case KindString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Null(), err
		}
		return String(s), nil
	case KindLink:
		var l wireLink
		if err := json.Unmarshal(w.Value, &l); err != nil {
			return Null(), err
		}
		return NewLink(Link(l)), nil
	case KindList:
		var items []Literal
		if err := json.Unmarshal(w.Value, &items); err != nil {
			return Null(), err
		}
		return Literal{kind: KindList, list: items}, nil
	case KindMapping:
		var m map[string]Literal
		if err := json.Unmarshal(w.Value, &m); err != nil {
			return Null(), err
		}
		return Mapping(m), nil
	default:
		return Null(), nil
	}
}
