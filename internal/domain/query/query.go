// Package query defines the immutable query AST consumed by the execution engine.
package query

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/livetable/internal/domain/expr"
)

// Kind names the shape of the result a query produces.
type Kind string

// KindTable is the only query kind this engine executes.
const KindTable Kind = "table"

// Header carries the kind-specific configuration of a query.
type Header interface {
	Kind() Kind
}

// Field is a named column expression.
type Field struct {
	name string
	expr expr.Expression
}

// NewField creates a column with the given heading.
func NewField(name string, e expr.Expression) (Field, error) {
	if e == nil {
		return Field{}, fmt.Errorf("field %q has no expression", name)
	}
	if name == "" {
		name = e.String()
	}
	return Field{name: name, expr: e}, nil
}

// Name returns the column heading.
func (f Field) Name() string { return f.name }

// Expr returns the column expression.
func (f Field) Expr() expr.Expression { return f.expr }

// TableHeader configures a table query.
type TableHeader struct {
	fields []Field
	showID bool
}

// NewTableHeader validates and creates a table header.
func NewTableHeader(fields []Field, showID bool) (*TableHeader, error) {
	if len(fields) == 0 && !showID {
		return nil, fmt.Errorf("table query needs at least one field")
	}
	return &TableHeader{fields: slices.Clone(fields), showID: showID}, nil
}

// Kind implements Header.
func (h *TableHeader) Kind() Kind { return KindTable }

// Fields returns the requested columns in declaration order.
func (h *TableHeader) Fields() []Field { return slices.Clone(h.fields) }

// ShowID reports whether the identifier column is displayed.
func (h *TableHeader) ShowID() bool { return h.showID }

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortKey orders candidates by an expression.
type SortKey struct {
	expr      expr.Expression
	direction Direction
}

// NewSortKey creates a sort key.
func NewSortKey(e expr.Expression, d Direction) (SortKey, error) {
	if e == nil {
		return SortKey{}, fmt.Errorf("sort key has no expression")
	}
	if d != Ascending && d != Descending {
		return SortKey{}, fmt.Errorf("unknown sort direction %d", d)
	}
	return SortKey{expr: e, direction: d}, nil
}

// Expr returns the key expression.
func (k SortKey) Expr() expr.Expression { return k.expr }

// Direction returns the key direction.
func (k SortKey) Direction() Direction { return k.direction }

// Fields bound in every group row.
const (
	GroupKeyField  = "key"
	GroupRowsField = "rows"
)

// Group buckets documents by a key expression.
type Group struct {
	name string
	key  expr.Expression
}

// NewGroup creates a grouping. The name heads the identifier column and is bound in every
// group row next to "key" and "rows", so it may not be either of those.
func NewGroup(name string, key expr.Expression) (Group, error) {
	if key == nil {
		return Group{}, fmt.Errorf("group has no key expression")
	}
	if name == "" {
		name = key.String()
	}
	if name == GroupKeyField || name == GroupRowsField {
		return Group{}, fmt.Errorf("group name %q is reserved", name)
	}
	return Group{name: name, key: key}, nil
}

// Name returns the group display name.
func (g Group) Name() string { return g.name }

// Key returns the grouping expression.
func (g Group) Key() expr.Expression { return g.key }

// Query is an immutable, already parsed query.
type Query struct {
	header Header
	source Source
	filter expr.Expression
	group  *Group
	sort   []SortKey
	limit  *int
}

// Option configures optional query clauses.
type Option func(*Query) error

// WithFilter keeps only candidates for which e is truthy.
func WithFilter(e expr.Expression) Option {
	return func(q *Query) error {
		if e == nil {
			return fmt.Errorf("filter has no expression")
		}
		q.filter = e
		return nil
	}
}

// WithGroup groups documents before sorting.
func WithGroup(g Group) Option {
	return func(q *Query) error {
		q.group = &g
		return nil
	}
}

// WithSort orders candidates by the keys, first key most significant.
func WithSort(keys ...SortKey) Option {
	return func(q *Query) error {
		q.sort = append(q.sort, keys...)
		return nil
	}
}

// WithLimit keeps at most n candidates after sorting.
func WithLimit(n int) Option {
	return func(q *Query) error {
		if n < 0 {
			return fmt.Errorf("limit must be non-negative, got %d", n)
		}
		q.limit = &n
		return nil
	}
}

// New creates a query.
func New(header Header, source Source, opts ...Option) (Query, error) {
	if header == nil {
		return Query{}, fmt.Errorf("query header is required")
	}
	q := Query{header: header, source: source}
	for _, opt := range opts {
		if err := opt(&q); err != nil {
			return Query{}, err
		}
	}
	return q, nil
}

// Header returns the kind-specific header.
func (q Query) Header() Header { return q.header }

// Table returns the table header, if this is a table query.
func (q Query) Table() (*TableHeader, bool) {
	h, ok := q.header.(*TableHeader)
	return h, ok
}

// Source returns the source expression.
func (q Query) Source() Source { return q.source }

// Filter returns the filter expression or nil.
func (q Query) Filter() expr.Expression { return q.filter }

// Group returns the grouping, if any.
func (q Query) Group() (Group, bool) {
	if q.group == nil {
		return Group{}, false
	}
	return *q.group, true
}

// Sort returns the sort keys.
func (q Query) Sort() []SortKey { return slices.Clone(q.sort) }

// Limit returns the result-count limit, if any.
func (q Query) Limit() (int, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}
