package query

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/livetable/internal/domain/expr"
)

func mustHeader(t *testing.T, showID bool, names ...string) *TableHeader {
	t.Helper()
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		f, err := NewField(n, expr.Ref(n))
		if err != nil {
			t.Fatalf("NewField: %v", err)
		}
		fields = append(fields, f)
	}
	h, err := NewTableHeader(fields, showID)
	if err != nil {
		t.Fatalf("NewTableHeader: %v", err)
	}
	return h
}

func TestNew_Defaults(t *testing.T) {
	q, err := New(mustHeader(t, false, "file.name"), AllDocuments())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Filter() != nil {
		t.Error("Filter() should be nil")
	}
	if _, ok := q.Limit(); ok {
		t.Error("Limit() should be unset")
	}
	if _, ok := q.Group(); ok {
		t.Error("Group() should be unset")
	}
	h, ok := q.Table()
	if !ok {
		t.Fatal("expected table header")
	}
	if h.Kind() != KindTable || h.ShowID() {
		t.Errorf("header = %+v", h)
	}
}

func TestNew_Options(t *testing.T) {
	key, _ := NewSortKey(expr.Ref("file.name"), Descending)
	group, _ := NewGroup("", expr.Ref("status"))

	q, err := New(mustHeader(t, true, "a"), Tag("#project"),
		WithFilter(expr.Ref("done")),
		WithGroup(group),
		WithSort(key),
		WithLimit(3),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := q.Limit(); !ok || n != 3 {
		t.Errorf("Limit() = %d, %v", n, ok)
	}
	if g, ok := q.Group(); !ok || g.Name() != "status" {
		t.Errorf("Group() = %+v", g)
	}
	if len(q.Sort()) != 1 || q.Sort()[0].Direction() != Descending {
		t.Errorf("Sort() = %+v", q.Sort())
	}
	if q.Source().Value() != "project" {
		t.Errorf("tag source value = %q", q.Source().Value())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"negative limit", []Option{WithLimit(-1)}, "non-negative"},
		{"nil filter", []Option{WithFilter(nil)}, "filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(mustHeader(t, false, "a"), AllDocuments(), tt.opts...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestNewGroup_ReservedNames(t *testing.T) {
	for _, name := range []string{"key", "rows"} {
		if _, err := NewGroup(name, expr.Ref("status")); err == nil || !strings.Contains(err.Error(), "reserved") {
			t.Errorf("NewGroup(%q) error = %v, want reserved", name, err)
		}
	}
	if _, err := NewGroup("", expr.Ref("rows")); err == nil {
		t.Error("default name taken from the key must be checked too")
	}
	g, err := NewGroup("", expr.Ref("status"))
	if err != nil || g.Name() != "status" {
		t.Errorf("NewGroup default = %q, %v", g.Name(), err)
	}
}

func TestNewTableHeader_RequiresColumns(t *testing.T) {
	if _, err := NewTableHeader(nil, false); err == nil {
		t.Fatal("expected error for empty header without id column")
	}
	if _, err := NewTableHeader(nil, true); err != nil {
		t.Fatalf("id-only table should be valid: %v", err)
	}
}

func TestHeaderFields_AreCopies(t *testing.T) {
	h := mustHeader(t, false, "a", "b")
	fields := h.Fields()
	fields[0] = Field{}
	if h.Fields()[0].Name() != "a" {
		t.Error("mutating Fields() leaked into header")
	}
}

func TestSource_String(t *testing.T) {
	s := And(Folder("/notes/"), Negate(Or(Tag("a"), LinkedTo(""))))
	if got := s.String(); got != `("notes" and -(#a or [[]]))` {
		t.Errorf("String() = %q", got)
	}
}
