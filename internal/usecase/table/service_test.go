package table

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/expr"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
	"github.com/kailas-cloud/livetable/internal/domain/query"
	"github.com/kailas-cloud/livetable/internal/domain/result"
	"github.com/kailas-cloud/livetable/internal/index"
)

func mustDoc(t *testing.T, path string, size int64, fields map[string]literal.Literal) document.Document {
	t.Helper()
	d, err := document.New(path, fields, document.Meta{Size: size})
	if err != nil {
		t.Fatalf("document.New(%q): %v", path, err)
	}
	return d
}

func mustQuery(t *testing.T, columns []string, showID bool, opts ...query.Option) query.Query {
	t.Helper()
	fields := make([]query.Field, len(columns))
	for i, c := range columns {
		f, err := query.NewField("", expr.Ref(c))
		if err != nil {
			t.Fatalf("NewField: %v", err)
		}
		fields[i] = f
	}
	h, err := query.NewTableHeader(fields, showID)
	if err != nil {
		t.Fatalf("NewTableHeader: %v", err)
	}
	q, err := query.New(h, query.AllDocuments(), opts...)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func sortBy(t *testing.T, field string, d query.Direction) query.SortKey {
	t.Helper()
	k, err := query.NewSortKey(expr.Ref(field), d)
	if err != nil {
		t.Fatalf("NewSortKey: %v", err)
	}
	return k
}

func display(tbl result.Table) [][]string {
	out := make([][]string, 0, tbl.Len())
	for _, e := range tbl.Data() {
		row := make([]string, 0, len(e.Values()))
		for _, v := range e.Values() {
			row = append(row, literal.Display(v))
		}
		out = append(out, row)
	}
	return out
}

func equalRows(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.Join(a[i], "|") != strings.Join(b[i], "|") {
			return false
		}
	}
	return true
}

func sizeCorpus(t *testing.T) *index.Snapshot {
	return index.NewSnapshot(1, []document.Document{
		mustDoc(t, "A.md", 50, nil),
		mustDoc(t, "B.md", 200, nil),
		mustDoc(t, "C.md", 150, nil),
	})
}

func TestExecuteTable_FilterAndSort(t *testing.T) {
	q := mustQuery(t, []string{"file.name"}, false,
		query.WithFilter(expr.Bin(expr.OpGt, expr.Ref("file.size"), expr.Lit(literal.Int(100)))),
		query.WithSort(sortBy(t, "file.name", query.Ascending)),
	)

	tbl, err := New().ExecuteTable(context.Background(), q, sizeCorpus(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{{"B"}, {"C"}}
	if got := display(tbl); !equalRows(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
	if tbl.IDMeaning().Kind() != result.IDPath {
		t.Errorf("idMeaning = %v, want path", tbl.IDMeaning().Kind())
	}
	if names := tbl.Names(); len(names) != 1 || names[0] != "file.name" {
		t.Errorf("names = %v", names)
	}
	if id, _ := tbl.Data()[0].ID().AsLink(); id.Path != "B.md" {
		t.Errorf("first id = %v, want B.md", id.Path)
	}
}

func TestExecuteTable_Descending(t *testing.T) {
	q := mustQuery(t, []string{"file.name"}, false,
		query.WithSort(sortBy(t, "file.size", query.Descending)),
	)
	tbl, err := New().ExecuteTable(context.Background(), q, sizeCorpus(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"B"}, {"C"}, {"A"}}
	if got := display(tbl); !equalRows(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestExecuteTable_StableSort(t *testing.T) {
	prio := func(n int64) map[string]literal.Literal {
		return map[string]literal.Literal{"prio": literal.Int(n)}
	}
	snap := index.NewSnapshot(1, []document.Document{
		mustDoc(t, "a.md", 0, prio(2)),
		mustDoc(t, "b.md", 0, prio(1)),
		mustDoc(t, "c.md", 0, prio(2)),
		mustDoc(t, "d.md", 0, prio(1)),
	})
	q := mustQuery(t, []string{"file.name"}, false, query.WithSort(sortBy(t, "prio", query.Ascending)))

	tbl, err := New().ExecuteTable(context.Background(), q, snap, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"b"}, {"d"}, {"a"}, {"c"}}
	if got := display(tbl); !equalRows(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestExecuteTable_LimitIsPrefix(t *testing.T) {
	ctx := context.Background()
	engine := New()
	snap := sizeCorpus(t)
	sortKey := query.WithSort(sortBy(t, "file.size", query.Ascending))

	full, err := engine.ExecuteTable(ctx, mustQuery(t, []string{"file.name"}, false, sortKey), snap, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for n := 0; n <= 4; n++ {
		limited, err := engine.ExecuteTable(ctx,
			mustQuery(t, []string{"file.name"}, false, sortKey, query.WithLimit(n)), snap, "")
		if err != nil {
			t.Fatalf("limit %d: %v", n, err)
		}
		want := display(full)
		if n < len(want) {
			want = want[:n]
		}
		if got := display(limited); !equalRows(got, want) {
			t.Errorf("limit %d: rows = %v, want %v", n, got, want)
		}
	}
}

func TestExecuteTable_Idempotent(t *testing.T) {
	q := mustQuery(t, []string{"file.name", "file.size"}, true,
		query.WithSort(sortBy(t, "file.size", query.Ascending)))
	snap := sizeCorpus(t)
	engine := New()

	first, err1 := engine.ExecuteTable(context.Background(), q, snap, "")
	second, err2 := engine.ExecuteTable(context.Background(), q, snap, "")
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if !equalRows(display(first), display(second)) {
		t.Errorf("results differ: %v vs %v", display(first), display(second))
	}
}

func TestExecuteTable_UnknownFieldIsError(t *testing.T) {
	q := mustQuery(t, []string{"file.name"}, false,
		query.WithFilter(expr.Bin(expr.OpEq, expr.Ref("status"), expr.Lit(literal.String("done")))))

	_, err := New().ExecuteTable(context.Background(), q, sizeCorpus(t), "")
	if err == nil {
		t.Fatal("expected error for undefined field")
	}
	if !errors.Is(err, domain.ErrEvaluation) {
		t.Errorf("expected ErrEvaluation, got %v", err)
	}
	if !strings.Contains(err.Error(), "status") {
		t.Errorf("error should name the field, got %q", err.Error())
	}
}

func TestExecuteTable_FieldOutsideSourceIsUnknown(t *testing.T) {
	snap := index.NewSnapshot(1, []document.Document{
		mustDoc(t, "a/x.md", 0, map[string]literal.Literal{"rating": literal.Int(5)}),
		mustDoc(t, "b/y.md", 0, nil),
		mustDoc(t, "b/z.md", 0, nil),
	})
	f, _ := query.NewField("", expr.Ref("file.name"))
	h, _ := query.NewTableHeader([]query.Field{f}, false)
	q, err := query.New(h, query.Folder("b"),
		query.WithFilter(expr.Bin(expr.OpGt, expr.Ref("rating"), expr.Lit(literal.Int(1)))))
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	_, err = New().ExecuteTable(context.Background(), q, snap, "")
	if !errors.Is(err, domain.ErrEvaluation) || !strings.Contains(err.Error(), `unknown field "rating"`) {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	// The same filter over a source that includes a.md is evaluated normally.
	q, _ = query.New(h, query.AllDocuments(),
		query.WithFilter(expr.Bin(expr.OpGt, expr.Ref("rating"), expr.Lit(literal.Int(1)))))
	tbl, err := New().ExecuteTable(context.Background(), q, snap, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := display(tbl); !equalRows(got, [][]string{{"x"}}) {
		t.Errorf("rows = %v, want [[x]]", got)
	}
}

func TestExecuteTable_KnownFieldMissingIsNull(t *testing.T) {
	snap := index.NewSnapshot(1, []document.Document{
		mustDoc(t, "a.md", 0, map[string]literal.Literal{"status": literal.String("done")}),
		mustDoc(t, "b.md", 0, nil),
	})
	q := mustQuery(t, []string{"status"}, false)

	tbl, err := New().ExecuteTable(context.Background(), q, snap, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"done"}, {"-"}}
	if got := display(tbl); !equalRows(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestExecuteTable_ResolutionError(t *testing.T) {
	h, _ := query.NewTableHeader(nil, true)
	q, err := query.New(h, query.Path("missing.md"))
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	_, err = New().ExecuteTable(context.Background(), q, sizeCorpus(t), "")
	if !errors.Is(err, domain.ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}

func TestExecuteTable_Grouping(t *testing.T) {
	status := func(s string) map[string]literal.Literal {
		return map[string]literal.Literal{"status": literal.String(s)}
	}
	snap := index.NewSnapshot(1, []document.Document{
		mustDoc(t, "a.md", 0, status("todo")),
		mustDoc(t, "b.md", 0, status("done")),
		mustDoc(t, "c.md", 0, status("todo")),
	})

	g, err := query.NewGroup("status", expr.Ref("status"))
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	count, _ := query.NewField("count", expr.Fn("length", expr.Ref("rows")))
	h, _ := query.NewTableHeader([]query.Field{count}, true)
	q, err := query.New(h, query.AllDocuments(), query.WithGroup(g))
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	tbl, err := New().ExecuteTable(context.Background(), q, snap, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.IDMeaning().Kind() != result.IDGroup || tbl.IDMeaning().Name() != "status" {
		t.Errorf("idMeaning = %+v", tbl.IDMeaning())
	}

	headings, rows := tbl.Fold(true, "File")
	if strings.Join(headings, ",") != "status,count" {
		t.Errorf("headings = %v", headings)
	}
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = literal.Display(r[0]) + "=" + literal.Display(r[1])
	}
	if strings.Join(got, ",") != "done=1,todo=2" {
		t.Errorf("groups = %v", got)
	}
}

func TestExecuteTable_RecoversPanics(t *testing.T) {
	_, err := New().ExecuteTable(context.Background(), mustQuery(t, []string{"file.name"}, false), panicCorpus{}, "")
	if !errors.Is(err, domain.ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
	if !strings.Contains(err.Error(), "index exploded") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestExecuteTable_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().ExecuteTable(ctx, mustQuery(t, []string{"file.name"}, false), sizeCorpus(t), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type panicCorpus struct{}

func (panicCorpus) ResolveSource(query.Source, string) ([]document.Document, error) {
	panic("index exploded")
}
func (panicCorpus) ResolveLink(target string) (string, bool) { return target, false }
func (panicCorpus) Document(string) (document.Document, bool) { return document.Document{}, false }

func evalConst(t *testing.T, e expr.Expression) (literal.Literal, error) {
	t.Helper()
	ev := &evaluator{corpus: sizeCorpus(t)}
	return ev.eval(e, scope{values: literal.Mapping(nil), known: func(string) bool { return false }})
}

func TestEvaluator_Expressions(t *testing.T) {
	day := 24 * time.Hour
	date := literal.Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	lit := expr.Lit

	tests := []struct {
		name string
		e    expr.Expression
		want string
	}{
		{"add numbers", expr.Bin(expr.OpAdd, lit(literal.Int(2)), lit(literal.Int(3))), "5"},
		{"concat", expr.Bin(expr.OpAdd, lit(literal.String("n")), lit(literal.Int(1))), "n1"},
		{"null propagates", expr.Bin(expr.OpMul, lit(literal.Null()), lit(literal.Int(3))), "-"},
		{"date plus duration", expr.Bin(expr.OpAdd, lit(date), lit(literal.Duration(2 * day))), "2024-05-03"},
		{"date minus date", expr.Bin(expr.OpSub,
			lit(literal.Date(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))), lit(date)), "1 day"},
		{"comparison", expr.Bin(expr.OpLt, lit(literal.Int(1)), lit(literal.String("a"))), "true"},
		{"not", expr.Not(lit(literal.String(""))), "true"},
		{"or short circuits", expr.Bin(expr.OpOr, lit(literal.Bool(true)), expr.Ref("nope")), "true"},
		{"list index", &expr.Index{Target: lit(literal.Strings([]string{"x", "y"})), Key: lit(literal.Int(-1))}, "y"},
		{"contains", expr.Fn("contains", lit(literal.Strings([]string{"x"})), lit(literal.String("x"))), "true"},
		{"upper", expr.Fn("upper", lit(literal.String("ab"))), "AB"},
		{"default", expr.Fn("default", lit(literal.Null()), lit(literal.String("none"))), "none"},
		{"round", expr.Fn("round", lit(literal.Number(2.345)), lit(literal.Int(1))), "2.3"},
		{"sum", expr.Fn("sum", lit(literal.List(literal.Int(1), literal.Null(), literal.Int(4)))), "5"},
		{"max", expr.Fn("max", lit(literal.Int(1)), lit(literal.Int(9)), lit(literal.Int(3))), "9"},
		{"min of list", expr.Fn("min", lit(literal.List(literal.Int(4), literal.Int(2)))), "2"},
		{"startswith", expr.Fn("startswith", lit(literal.String("project")), lit(literal.String("pro"))), "true"},
		{"join", expr.Fn("join", lit(literal.Strings([]string{"a", "b"})), lit(literal.String("/"))), "a/b"},
		{"length", expr.Fn("length", lit(literal.String("héllo"))), "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.e)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if literal.Display(got) != tt.want {
				t.Errorf("got %q, want %q", literal.Display(got), tt.want)
			}
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	lit := expr.Lit
	tests := []struct {
		name string
		e    expr.Expression
		want string
	}{
		{"division by zero", expr.Bin(expr.OpDiv, lit(literal.Int(1)), lit(literal.Int(0))), "division by zero"},
		{"modulo by zero", expr.Bin(expr.OpMod, lit(literal.Int(1)), lit(literal.Int(0))), "division by zero"},
		{"type mismatch", expr.Bin(expr.OpSub, lit(literal.String("a")), lit(literal.Int(1))), "cannot apply"},
		{"unknown function", expr.Fn("explode"), "unknown function"},
		{"arity", expr.Fn("lower"), "wrong number of arguments"},
		{"unknown field", expr.Ref("nope"), "unknown field"},
		{"negate string", &expr.Unary{Op: expr.OpNeg, Operand: lit(literal.String("a"))}, "cannot negate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalConst(t, tt.e)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrEvaluation) {
				t.Errorf("expected ErrEvaluation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestEvaluator_LinkMember(t *testing.T) {
	project := mustDoc(t, "projects/alpha.md", 0, map[string]literal.Literal{"owner": literal.String("ann")})
	task := mustDoc(t, "task.md", 0, map[string]literal.Literal{"project": literal.LinkTo("alpha")})
	snap := index.NewSnapshot(1, []document.Document{project, task})

	ev := &evaluator{corpus: snap}
	got, err := ev.eval(expr.Ref("project.owner"), scope{values: task.Literal(), known: knownFields([]document.Document{task})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if literal.Display(got) != "ann" {
		t.Errorf("got %q, want ann", literal.Display(got))
	}
}
