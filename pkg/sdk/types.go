package livetable

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
	"github.com/kailas-cloud/livetable/internal/domain/query"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
	"github.com/kailas-cloud/livetable/internal/transport/wire"
)

// Document is an indexed corpus document.
type Document = document.Document

// Meta is the indexer-extracted metadata of a document.
type Meta = document.Meta

// Value is a field value or table cell.
type Value = literal.Literal

// Query is a validated table query.
type Query = query.Query

// QuerySpec is the JSON form of a query, for building queries in code.
type QuerySpec = wire.Query

// QueryField is a named column of a QuerySpec.
type QueryField = wire.Field

// Expr is the JSON form of an expression.
type Expr = wire.Expr

// State is what a view consumer observes: loading, error or ready.
type State = domview.State

// Status is the phase of a State.
type Status = domview.Status

// View phases.
const (
	StatusLoading = domview.StatusLoading
	StatusError   = domview.StatusError
	StatusReady   = domview.StatusReady
)

// NewDocument validates and creates a document.
func NewDocument(path string, fields map[string]Value, meta Meta) (Document, error) {
	d, err := document.New(path, fields, meta)
	if err != nil {
		return Document{}, fmt.Errorf("livetable: %w", err)
	}
	return d, nil
}

// ParseQuery decodes and validates a JSON query.
func ParseQuery(data []byte) (Query, error) {
	var spec QuerySpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return Query{}, fmt.Errorf("livetable: %w: %w", domain.ErrInvalidQuery, err)
	}
	return BuildQuery(spec)
}

// BuildQuery validates a query built in code.
func BuildQuery(spec QuerySpec) (Query, error) {
	q, err := spec.ToDomain()
	if err != nil {
		return Query{}, fmt.Errorf("livetable: %w", err)
	}
	return q, nil
}

// Ref references a field by dotted path.
func Ref(dotted string) Expr { return wire.Ref(dotted) }

// Const wraps a value as an expression.
func Const(v Value) Expr { return wire.Lit(v) }

// Op applies a binary operator.
func Op(op string, left, right Expr) Expr { return wire.Bin(op, left, right) }

// Null is the absent value.
func Null() Value { return literal.Null() }

// Bool wraps b.
func Bool(b bool) Value { return literal.Bool(b) }

// Number wraps n.
func Number(n float64) Value { return literal.Number(n) }

// String wraps s.
func String(s string) Value { return literal.String(s) }

// Date wraps a calendar date; the time of day is dropped.
func Date(t time.Time) Value { return literal.Date(t) }

// DateTime wraps an instant.
func DateTime(t time.Time) Value { return literal.DateTime(t) }

// Duration wraps d.
func Duration(d time.Duration) Value { return literal.Duration(d) }

// Link references a document by path.
func Link(path string) Value { return literal.LinkTo(path) }

// List wraps items.
func List(items ...Value) Value { return literal.List(items...) }

// Display renders v the way table cells show it.
func Display(v Value) string { return literal.Display(v) }
