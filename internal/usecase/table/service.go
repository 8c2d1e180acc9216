// Package table evaluates table queries against an index snapshot.
package table

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
	"github.com/kailas-cloud/livetable/internal/domain/query"
	"github.com/kailas-cloud/livetable/internal/domain/result"
)

// Service is the table execution engine. It holds no state between calls.
type Service struct{}

// New creates the engine.
func New() *Service {
	return &Service{}
}

// candidate is a row before projection: a document or a group.
type candidate struct {
	id literal.Literal
	sc scope
}

// ExecuteTable runs q against corpus. The result is either a complete table or an error,
// never a partial table. Panics raised during evaluation are reported as faults.
func (s *Service) ExecuteTable(
	ctx context.Context, q query.Query, corpus Corpus, sourcePath string,
) (res result.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = result.Table{}, domain.NewFault(r)
		}
	}()

	if err = ctx.Err(); err != nil {
		return result.Table{}, fmt.Errorf("execute table: %w", err)
	}

	header, ok := q.Table()
	if !ok {
		return result.Table{}, domain.NewEvaluationError("unsupported query type %q", q.Header().Kind())
	}

	docs, err := corpus.ResolveSource(q.Source(), sourcePath)
	if err != nil {
		return result.Table{}, err
	}

	ev := &evaluator{corpus: corpus}

	rows, err := s.filter(ev, q, docs)
	if err != nil {
		return result.Table{}, err
	}

	idMeaning := result.PathID()
	if g, grouped := q.Group(); grouped {
		if rows, err = s.group(ev, g, rows); err != nil {
			return result.Table{}, err
		}
		idMeaning = result.GroupID(g.Name())
	}

	if rows, err = s.sort(ev, q.Sort(), rows); err != nil {
		return result.Table{}, err
	}

	if limit, limited := q.Limit(); limited && limit < len(rows) {
		rows = rows[:limit]
	}

	fields := header.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}

	data := make([]result.Entry, 0, len(rows))
	for _, row := range rows {
		values := make([]literal.Literal, len(fields))
		for i, f := range fields {
			if values[i], err = ev.eval(f.Expr(), row.sc); err != nil {
				return result.Table{}, err
			}
		}
		data = append(data, result.NewEntry(row.id, values))
	}

	return result.NewTable(names, data, idMeaning), nil
}

func (s *Service) filter(ev *evaluator, q query.Query, docs []document.Document) ([]candidate, error) {
	known := knownFields(docs)
	rows := make([]candidate, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		row := candidate{
			id: literal.LinkTo(d.Path()),
			sc: scope{values: d.Literal(), known: known},
		}
		if f := q.Filter(); f != nil {
			keep, err := ev.eval(f, row.sc)
			if err != nil {
				return nil, err
			}
			if !keep.Truthy() {
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// knownFields reports the fields defined by at least one candidate. "file" is always defined.
func knownFields(docs []document.Document) func(name string) bool {
	fields := map[string]struct{}{document.FileField: {}}
	for i := range docs {
		for name := range docs[i].Fields() {
			fields[name] = struct{}{}
		}
	}
	return func(name string) bool {
		_, ok := fields[name]
		return ok
	}
}

// group buckets rows by key; groups come out in key order.
func (s *Service) group(ev *evaluator, g query.Group, rows []candidate) ([]candidate, error) {
	keys := make([]literal.Literal, len(rows))
	for i, row := range rows {
		k, err := ev.eval(g.Key(), row.sc)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return literal.Compare(keys[a], keys[b])
	})

	var groups []candidate
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && literal.Equal(keys[order[start]], keys[order[end]]) {
			end++
		}

		key := keys[order[start]]
		members := make([]literal.Literal, 0, end-start)
		for _, i := range order[start:end] {
			members = append(members, rows[i].sc.values)
		}
		values := map[string]literal.Literal{
			g.Name():             key,
			query.GroupKeyField:  key,
			query.GroupRowsField: literal.List(members...),
		}

		groups = append(groups, candidate{
			id: key,
			sc: scope{values: literal.Mapping(values), known: func(string) bool { return false }},
		})
		start = end
	}
	return groups, nil
}

// sort orders rows by the keys in turn; equal rows keep their prior order.
func (s *Service) sort(ev *evaluator, keys []query.SortKey, rows []candidate) ([]candidate, error) {
	if len(keys) == 0 {
		return rows, nil
	}

	values := make([][]literal.Literal, len(rows))
	for i, row := range rows {
		values[i] = make([]literal.Literal, len(keys))
		for k, key := range keys {
			v, err := ev.eval(key.Expr(), row.sc)
			if err != nil {
				return nil, err
			}
			values[i][k] = v
		}
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		for k, key := range keys {
			c := literal.Compare(values[a][k], values[b][k])
			if key.Direction() == query.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	sorted := make([]candidate, len(rows))
	for i, idx := range order {
		sorted[i] = rows[idx]
	}
	return sorted, nil
}
