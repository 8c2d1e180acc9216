package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"gotest.tools/assert"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
	"github.com/kailas-cloud/livetable/internal/domain/query"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
)

func TestQuery_ToDomain(t *testing.T) {
	raw := `{
		"fields": [{"name": "Name", "expr": {"field": "file.name"}}],
		"show_id": false,
		"source": {"and": [{"folder": "projects"}, {"not": {"tag": "#archived"}}]},
		"filter": {"op": ">", "left": {"field": "file.size"}, "right": {"const": {"type": "number", "value": 100}}},
		"sort": [{"expr": {"call": "lower", "args": [{"field": "file.name"}]}, "direction": "desc"}],
		"limit": 5
	}`
	var q Query
	assert.NilError(t, json.Unmarshal([]byte(raw), &q))

	got, err := q.ToDomain()
	assert.NilError(t, err)

	header, ok := got.Table()
	assert.Assert(t, ok)
	assert.Assert(t, !header.ShowID())
	assert.Equal(t, header.Fields()[0].Name(), "Name")
	assert.Equal(t, got.Source().String(), `("projects" and -#archived)`)
	assert.Equal(t, got.Filter().String(), "(file.size > 100)")
	assert.Equal(t, got.Sort()[0].Direction(), query.Descending)
	assert.Equal(t, got.Sort()[0].Expr().String(), "lower(file.name)")
	limit, ok := got.Limit()
	assert.Assert(t, ok)
	assert.Equal(t, limit, 5)
}

func TestQuery_Defaults(t *testing.T) {
	q := Query{Fields: []Field{{Expr: Ref("status")}}}
	got, err := q.ToDomain()
	assert.NilError(t, err)

	header, _ := got.Table()
	assert.Assert(t, header.ShowID())
	assert.Equal(t, header.Fields()[0].Name(), "status")
	assert.Equal(t, got.Source().Kind(), query.SourceAll)
	_, limited := got.Limit()
	assert.Assert(t, !limited)
}

func TestQuery_Invalid(t *testing.T) {
	neg := -1
	empty := ""
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"type", Query{Type: "list", Fields: []Field{{Expr: Ref("a")}}}, "unsupported query type"},
		{"no columns", Query{ShowID: new(bool)}, "at least one field"},
		{"empty expression", Query{Fields: []Field{{Name: "x"}}}, "must set one of"},
		{"unknown operator", Query{Fields: []Field{{Expr: Bin("^", Ref("a"), Ref("b"))}}}, "unknown operator"},
		{"missing operand", Query{Fields: []Field{{Expr: Expr{Op: "+", Left: &Expr{Field: "a"}}}}}, "left and right"},
		{"unknown unary", Query{Fields: []Field{{Expr: Expr{Op: "~", Operand: &Expr{Field: "a"}}}}}, "unknown unary"},
		{"index without key", Query{Fields: []Field{{Expr: Expr{Target: &Expr{Field: "a"}}}}}, "needs a key"},
		{"ambiguous source", Query{ShowID: nil, Source: &Source{All: true, Tag: "x"}}, "exactly one"},
		{"empty source", Query{Source: &Source{}}, "exactly one"},
		{"single operand", Query{Source: &Source{Or: []Source{{Link: &empty}}}}, "at least two"},
		{"sort direction", Query{Sort: []SortKey{{Expr: Ref("a"), Direction: "up"}}}, "unknown sort direction"},
		{"negative limit", Query{Limit: &neg}, "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.q.ToDomain()
			assert.ErrorContains(t, err, tt.want)
			assert.Assert(t, errors.Is(err, domain.ErrInvalidQuery))
		})
	}
}

func TestSource_ChainsOperands(t *testing.T) {
	s := Source{Or: []Source{{Tag: "a"}, {Tag: "b"}, {Path: "c.md"}}}
	got, err := s.ToDomain()
	assert.NilError(t, err)
	assert.Equal(t, got.String(), `((#a or #b) or "c.md")`)
}

func TestFromState(t *testing.T) {
	settings := domview.DefaultSettings()

	ready := FromState(domview.Ready([]string{"File", "n"}, [][]literal.Literal{
		{literal.LinkTo("a.md"), literal.Number(1.5)},
	}).AtVersion(4), settings)
	assert.Equal(t, ready.Status, "ready")
	assert.Equal(t, ready.Version, uint64(4))
	assert.Equal(t, ready.Rows[0][1].Display, "1.5")
	assert.Equal(t, ready.Notice, "")

	empty := FromState(domview.Ready([]string{"n"}, nil), settings)
	assert.Equal(t, empty.Notice, domview.EmptyResultNotice)
	assert.Equal(t, len(empty.Rows), 0)
	assert.Assert(t, empty.Rows != nil)

	failed := FromState(domview.Failed("boom"), settings)
	assert.Equal(t, failed.Status, "error")
	assert.Equal(t, failed.Error, "boom")
	assert.Assert(t, failed.Rows == nil)
}

func TestDocument_ToDomain(t *testing.T) {
	d := Document{Path: "a/b.md", Tags: []string{"x"}, Fields: map[string]literal.Literal{"n": literal.Int(1)}}
	got, err := d.ToDomain()
	assert.NilError(t, err)
	assert.Equal(t, got.Path(), "a/b.md")

	_, err = (&Document{Path: "../up.md"}).ToDomain()
	assert.ErrorContains(t, err, `document "../up.md"`)
}
