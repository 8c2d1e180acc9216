package literal

import (
	"encoding/json"
	"math"
	"slices"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestCompare_KindPrecedence(t *testing.T) {
	ordered := []Literal{
		Null(),
		Bool(false),
		Number(-5),
		Duration(time.Second),
		Date(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		String(""),
		LinkTo("a.md"),
		List(),
		Mapping(nil),
	}

	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			assert.Equal(t, got, want, "Compare(%s, %s)", ordered[i].Kind(), ordered[j].Kind())
		}
	}
}

func TestCompare_WithinKind(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Literal
		want int
	}{
		{"bool", Bool(false), Bool(true), -1},
		{"number", Number(2), Number(10), -1},
		{"nan before numbers", Number(math.NaN()), Number(math.Inf(-1)), -1},
		{"nan equals nan", Number(math.NaN()), Number(math.NaN()), 0},
		{"string", String("b"), String("a"), 1},
		{"date", Date(day), Date(day.AddDate(0, 0, 1)), -1},
		{"date before datetime at midnight", Date(day), DateTime(day), -1},
		{"link path", LinkTo("a.md"), LinkTo("b.md"), -1},
		{"link alias", NewLink(Link{Path: "a.md", Display: "x"}), LinkTo("a.md"), 1},
		{"list length first", List(Number(9)), List(Number(1), Number(1)), -1},
		{"list elementwise", List(Number(1), Number(2)), List(Number(1), Number(3)), -1},
		{"mapping length first", Mapping(map[string]Literal{"z": Null()}), Mapping(map[string]Literal{"a": Null(), "b": Null()}), -1},
		{"mapping keys", Mapping(map[string]Literal{"a": Number(5)}), Mapping(map[string]Literal{"b": Number(1)}), -1},
		{"mapping values", Mapping(map[string]Literal{"a": Number(1)}), Mapping(map[string]Literal{"a": Number(2)}), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Compare(tt.a, tt.b), tt.want)
			assert.Equal(t, Compare(tt.b, tt.a), -tt.want)
		})
	}
}

func TestCompare_SortNeverFails(t *testing.T) {
	values := []Literal{
		String("x"), Number(math.NaN()), Null(), List(String("a")),
		Bool(true), Number(3), Mapping(map[string]Literal{"k": List()}), LinkTo("n.md"),
	}
	slices.SortStableFunc(values, Compare)

	for i := 1; i < len(values); i++ {
		assert.Assert(t, Compare(values[i-1], values[i]) <= 0, "values out of order at %d", i)
	}
}

func TestDisplay(t *testing.T) {
	when := time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		in   Literal
		want string
	}{
		{Null(), "-"},
		{Bool(true), "true"},
		{Number(200), "200"},
		{Number(1.25), "1.25"},
		{String("hello"), "hello"},
		{Date(when), "2024-05-17"},
		{DateTime(when), "2024-05-17 14:30"},
		{Duration(26*time.Hour + 3*time.Minute), "1 day, 2 hours, 3 minutes"},
		{Duration(0), "0 seconds"},
		{LinkTo("notes/B.md"), "B"},
		{NewLink(Link{Path: "notes/B.md", Display: "Bee"}), "Bee"},
		{List(Number(1), String("a")), "1, a"},
		{Mapping(map[string]Literal{"b": Number(2), "a": Number(1)}), "a: 1, b: 2"},
	}

	for _, tt := range tests {
		assert.Equal(t, Display(tt.in), tt.want)
	}
}

func TestTruthy(t *testing.T) {
	assert.Assert(t, !Null().Truthy())
	assert.Assert(t, !Number(0).Truthy())
	assert.Assert(t, Number(-1).Truthy())
	assert.Assert(t, !String("").Truthy())
	assert.Assert(t, !List().Truthy())
	assert.Assert(t, List(Null()).Truthy())
	assert.Assert(t, LinkTo("a.md").Truthy())
}

func TestJSON_RoundTripNested(t *testing.T) {
	in := Mapping(map[string]Literal{
		"when":  DateTime(time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)),
		"day":   Date(time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)),
		"took":  Duration(90 * time.Minute),
		"ref":   NewLink(Link{Path: "a/b.md", Display: "B"}),
		"tags":  Strings([]string{"x", "y"}),
		"none":  Null(),
		"ratio": Number(math.Inf(1)),
	})

	data, err := json.Marshal(in)
	assert.NilError(t, err)

	var out Literal
	assert.NilError(t, json.Unmarshal(data, &out))
	assert.Assert(t, Equal(in, out), "round trip changed value: %s", data)
}

func TestJSON_UnknownTypeDegradesToNull(t *testing.T) {
	var out Literal
	assert.NilError(t, json.Unmarshal([]byte(`{"type":"widget","value":{"x":1}}`), &out))
	assert.Assert(t, out.IsNull())
}

func TestFromAny(t *testing.T) {
	v := FromAny(map[string]any{
		"size":  150,
		"tags":  []any{"a", 2},
		"ok":    true,
		"weird": struct{}{},
	})

	size, _ := v.Get("size")
	n, ok := size.AsNumber()
	assert.Assert(t, ok)
	assert.Equal(t, n, 150.0)

	tags, _ := v.Get("tags")
	assert.Equal(t, tags.Len(), 2)
	assert.Equal(t, tags.Item(1).Kind(), KindNumber)

	weird, _ := v.Get("weird")
	assert.Assert(t, weird.IsNull())
}
