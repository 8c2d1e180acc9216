// Package wire defines the JSON forms of queries, documents and view states shared by the
// HTTP API, the CLI and the SDK.
package wire

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/expr"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
	"github.com/kailas-cloud/livetable/internal/domain/query"
)

// Query is the JSON form of a table query.
type Query struct {
	Type   string    `json:"type,omitempty"` // "table" (default)
	Fields []Field   `json:"fields,omitempty"`
	ShowID *bool     `json:"show_id,omitempty"` // default true
	Source *Source   `json:"source,omitempty"`  // default: whole corpus
	Filter *Expr     `json:"filter,omitempty"`
	Group  *Group    `json:"group,omitempty"`
	Sort   []SortKey `json:"sort,omitempty"`
	Limit  *int      `json:"limit,omitempty"`
}

// Field is a named column.
type Field struct {
	Name string `json:"name,omitempty"`
	Expr Expr   `json:"expr"`
}

// Group names the grouping key.
type Group struct {
	Name string `json:"name"`
	Key  Expr   `json:"key"`
}

// SortKey orders rows by an expression.
type SortKey struct {
	Expr      Expr   `json:"expr"`
	Direction string `json:"direction,omitempty"` // asc (default), desc
}

// Source selects documents. Exactly one member is set.
type Source struct {
	All    bool     `json:"all,omitempty"`
	Folder *string  `json:"folder,omitempty"`
	Tag    string   `json:"tag,omitempty"`
	Link   *string  `json:"link,omitempty"` // "" links to the querying document
	Path   string   `json:"path,omitempty"`
	And    []Source `json:"and,omitempty"`
	Or     []Source `json:"or,omitempty"`
	Not    *Source  `json:"not,omitempty"`
}

// Expr is one expression node. Exactly one of Field, Const, Call, Target or Op is set.
type Expr struct {
	Field   string           `json:"field,omitempty"`
	Const   *literal.Literal `json:"const,omitempty"`
	Call    string           `json:"call,omitempty"`
	Args    []Expr           `json:"args,omitempty"`
	Target  *Expr            `json:"target,omitempty"`
	Key     *Expr            `json:"key,omitempty"`
	Op      string           `json:"op,omitempty"`
	Left    *Expr            `json:"left,omitempty"`
	Right   *Expr            `json:"right,omitempty"`
	Operand *Expr            `json:"operand,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// ToDomain converts q into a validated query. Every failure wraps domain.ErrInvalidQuery.
func (q *Query) ToDomain() (query.Query, error) {
	if q.Type != "" && q.Type != string(query.KindTable) {
		return query.Query{}, invalid("unsupported query type %q", q.Type)
	}

	fields := make([]query.Field, 0, len(q.Fields))
	for i := range q.Fields {
		e, err := q.Fields[i].Expr.ToDomain()
		if err != nil {
			return query.Query{}, fmt.Errorf("field %d: %w", i, err)
		}
		f, err := query.NewField(q.Fields[i].Name, e)
		if err != nil {
			return query.Query{}, invalid("%v", err)
		}
		fields = append(fields, f)
	}

	showID := true
	if q.ShowID != nil {
		showID = *q.ShowID
	}
	header, err := query.NewTableHeader(fields, showID)
	if err != nil {
		return query.Query{}, invalid("%v", err)
	}

	src := query.AllDocuments()
	if q.Source != nil {
		if src, err = q.Source.ToDomain(); err != nil {
			return query.Query{}, err
		}
	}

	var opts []query.Option
	if q.Filter != nil {
		e, err := q.Filter.ToDomain()
		if err != nil {
			return query.Query{}, fmt.Errorf("filter: %w", err)
		}
		opts = append(opts, query.WithFilter(e))
	}
	if q.Group != nil {
		key, err := q.Group.Key.ToDomain()
		if err != nil {
			return query.Query{}, fmt.Errorf("group: %w", err)
		}
		g, err := query.NewGroup(q.Group.Name, key)
		if err != nil {
			return query.Query{}, invalid("%v", err)
		}
		opts = append(opts, query.WithGroup(g))
	}
	if len(q.Sort) > 0 {
		keys := make([]query.SortKey, 0, len(q.Sort))
		for i := range q.Sort {
			k, err := q.Sort[i].toDomain()
			if err != nil {
				return query.Query{}, fmt.Errorf("sort %d: %w", i, err)
			}
			keys = append(keys, k)
		}
		opts = append(opts, query.WithSort(keys...))
	}
	if q.Limit != nil {
		opts = append(opts, query.WithLimit(*q.Limit))
	}

	out, err := query.New(header, src, opts...)
	if err != nil {
		return query.Query{}, invalid("%v", err)
	}
	return out, nil
}

func (k *SortKey) toDomain() (query.SortKey, error) {
	e, err := k.Expr.ToDomain()
	if err != nil {
		return query.SortKey{}, err
	}
	dir := query.Ascending
	switch k.Direction {
	case "", "asc", "ascending":
	case "desc", "descending":
		dir = query.Descending
	default:
		return query.SortKey{}, invalid("unknown sort direction %q", k.Direction)
	}
	out, err := query.NewSortKey(e, dir)
	if err != nil {
		return query.SortKey{}, invalid("%v", err)
	}
	return out, nil
}

// ToDomain converts s into a source expression.
func (s *Source) ToDomain() (query.Source, error) {
	set := 0
	for _, ok := range []bool{
		s.All, s.Folder != nil, s.Tag != "", s.Link != nil, s.Path != "",
		s.And != nil, s.Or != nil, s.Not != nil,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return query.Source{}, invalid("source must set exactly one of all, folder, tag, link, path, and, or, not")
	}

	switch {
	case s.All:
		return query.AllDocuments(), nil
	case s.Folder != nil:
		return query.Folder(*s.Folder), nil
	case s.Tag != "":
		return query.Tag(s.Tag), nil
	case s.Link != nil:
		return query.LinkedTo(*s.Link), nil
	case s.Path != "":
		return query.Path(s.Path), nil
	case s.Not != nil:
		inner, err := s.Not.ToDomain()
		if err != nil {
			return query.Source{}, err
		}
		return query.Negate(inner), nil
	}

	combine, operands := query.And, s.And
	if s.Or != nil {
		combine, operands = query.Or, s.Or
	}
	if len(operands) < 2 {
		return query.Source{}, invalid("and/or source needs at least two operands")
	}
	out, err := operands[0].ToDomain()
	if err != nil {
		return query.Source{}, err
	}
	for i := 1; i < len(operands); i++ {
		next, err := operands[i].ToDomain()
		if err != nil {
			return query.Source{}, err
		}
		out = combine(out, next)
	}
	return out, nil
}

var errEmptyExpr = errors.New("expression must set one of field, const, call, target, op")

// ToDomain converts e into an expression tree.
func (e *Expr) ToDomain() (expr.Expression, error) {
	switch {
	case e.Field != "":
		return expr.Ref(e.Field), nil
	case e.Const != nil:
		return expr.Lit(*e.Const), nil
	case e.Call != "":
		args := make([]expr.Expression, 0, len(e.Args))
		for i := range e.Args {
			a, err := e.Args[i].ToDomain()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return expr.Fn(e.Call, args...), nil
	case e.Target != nil:
		if e.Key == nil {
			return nil, invalid("index expression needs a key")
		}
		target, err := e.Target.ToDomain()
		if err != nil {
			return nil, err
		}
		key, err := e.Key.ToDomain()
		if err != nil {
			return nil, err
		}
		return &expr.Index{Target: target, Key: key}, nil
	case e.Op != "" && e.Operand != nil:
		op := expr.UnaryOp(e.Op)
		if !op.Valid() {
			return nil, invalid("unknown unary operator %q", e.Op)
		}
		operand, err := e.Operand.ToDomain()
		if err != nil {
			return nil, err
		}
		return &expr.Unary{Op: op, Operand: operand}, nil
	case e.Op != "":
		op := expr.BinaryOp(e.Op)
		if !op.Valid() {
			return nil, invalid("unknown operator %q", e.Op)
		}
		if e.Left == nil || e.Right == nil {
			return nil, invalid("operator %q needs left and right operands", e.Op)
		}
		left, err := e.Left.ToDomain()
		if err != nil {
			return nil, err
		}
		right, err := e.Right.ToDomain()
		if err != nil {
			return nil, err
		}
		return expr.Bin(op, left, right), nil
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, errEmptyExpr)
}

// Ref is the JSON form of a field reference.
func Ref(dotted string) Expr { return Expr{Field: dotted} }

// Lit is the JSON form of a constant.
func Lit(v literal.Literal) Expr { return Expr{Const: &v} }

// Bin is the JSON form of a binary operation.
func Bin(op string, left, right Expr) Expr { return Expr{Op: op, Left: &left, Right: &right} }
