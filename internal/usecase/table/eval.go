package table

import (
	"math"
	"time"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/expr"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

// scope is the evaluation context of one candidate row.
type scope struct {
	values literal.Literal
	known  func(name string) bool
}

type evaluator struct {
	corpus Corpus
}

func (ev *evaluator) eval(e expr.Expression, sc scope) (literal.Literal, error) {
	switch n := e.(type) {
	case *expr.Const:
		return n.Value, nil
	case *expr.Field:
		return ev.field(n.Path, sc)
	case *expr.Unary:
		return ev.unary(n, sc)
	case *expr.Binary:
		return ev.binary(n, sc)
	case *expr.Index:
		return ev.index(n, sc)
	case *expr.Call:
		return ev.call(n, sc)
	case nil:
		return literal.Null(), domain.NewEvaluationError("missing expression")
	default:
		return literal.Null(), domain.NewEvaluationError("unsupported expression %T", e)
	}
}

func (ev *evaluator) field(path []string, sc scope) (literal.Literal, error) {
	if len(path) == 0 || path[0] == "" {
		return literal.Null(), domain.NewEvaluationError("empty field reference")
	}
	v, ok := sc.values.Get(path[0])
	if !ok {
		if !sc.known(path[0]) {
			return literal.Null(), domain.NewEvaluationError("unknown field %q", path[0])
		}
		v = literal.Null()
	}
	for _, part := range path[1:] {
		var err error
		if v, err = ev.member(v, part); err != nil {
			return literal.Null(), err
		}
	}
	return v, nil
}

// member reads key from a mapping, or from the document a link points to.
func (ev *evaluator) member(v literal.Literal, key string) (literal.Literal, error) {
	switch v.Kind() {
	case literal.KindNull:
		return literal.Null(), nil
	case literal.KindMapping:
		out, _ := v.Get(key)
		return out, nil
	case literal.KindLink:
		l, _ := v.AsLink()
		p, ok := ev.corpus.ResolveLink(l.Path)
		if !ok {
			return literal.Null(), nil
		}
		d, ok := ev.corpus.Document(p)
		if !ok {
			return literal.Null(), nil
		}
		out, _ := d.Literal().Get(key)
		return out, nil
	default:
		return literal.Null(), domain.NewEvaluationError("cannot read %q of a %s value", key, v.Kind())
	}
}

func (ev *evaluator) unary(n *expr.Unary, sc scope) (literal.Literal, error) {
	v, err := ev.eval(n.Operand, sc)
	if err != nil {
		return literal.Null(), err
	}
	switch n.Op {
	case expr.OpNot:
		return literal.Bool(!v.Truthy()), nil
	case expr.OpNeg:
		switch v.Kind() {
		case literal.KindNull:
			return v, nil
		case literal.KindNumber:
			f, _ := v.AsNumber()
			return literal.Number(-f), nil
		case literal.KindDuration:
			d, _ := v.AsDuration()
			return literal.Duration(-d), nil
		}
		return literal.Null(), domain.NewEvaluationError("cannot negate a %s value", v.Kind())
	}
	return literal.Null(), domain.NewEvaluationError("unknown operator %q", n.Op)
}

func (ev *evaluator) binary(n *expr.Binary, sc scope) (literal.Literal, error) {
	left, err := ev.eval(n.Left, sc)
	if err != nil {
		return literal.Null(), err
	}

	switch n.Op {
	case expr.OpAnd:
		if !left.Truthy() {
			return literal.Bool(false), nil
		}
		right, err := ev.eval(n.Right, sc)
		if err != nil {
			return literal.Null(), err
		}
		return literal.Bool(right.Truthy()), nil
	case expr.OpOr:
		if left.Truthy() {
			return literal.Bool(true), nil
		}
		right, err := ev.eval(n.Right, sc)
		if err != nil {
			return literal.Null(), err
		}
		return literal.Bool(right.Truthy()), nil
	}

	right, err := ev.eval(n.Right, sc)
	if err != nil {
		return literal.Null(), err
	}

	switch n.Op {
	case expr.OpEq:
		return literal.Bool(literal.Equal(left, right)), nil
	case expr.OpNe:
		return literal.Bool(!literal.Equal(left, right)), nil
	case expr.OpLt:
		return literal.Bool(literal.Compare(left, right) < 0), nil
	case expr.OpLte:
		return literal.Bool(literal.Compare(left, right) <= 0), nil
	case expr.OpGt:
		return literal.Bool(literal.Compare(left, right) > 0), nil
	case expr.OpGte:
		return literal.Bool(literal.Compare(left, right) >= 0), nil
	case expr.OpAdd, expr.OpSub, expr.OpMul, expr.OpDiv, expr.OpMod:
		return arithmetic(n.Op, left, right)
	}
	return literal.Null(), domain.NewEvaluationError("unknown operator %q", n.Op)
}

func (ev *evaluator) index(n *expr.Index, sc scope) (literal.Literal, error) {
	target, err := ev.eval(n.Target, sc)
	if err != nil {
		return literal.Null(), err
	}
	key, err := ev.eval(n.Key, sc)
	if err != nil {
		return literal.Null(), err
	}

	if target.IsNull() || key.IsNull() {
		return literal.Null(), nil
	}
	if target.Kind() == literal.KindList {
		f, ok := key.AsNumber()
		if !ok || f != math.Trunc(f) {
			return literal.Null(), domain.NewEvaluationError("list index must be an integer, got %s", key.Kind())
		}
		i := int(f)
		if i < 0 {
			i += target.Len()
		}
		return target.Item(i), nil
	}
	s, ok := key.AsString()
	if !ok {
		return literal.Null(), domain.NewEvaluationError("cannot index a %s value with a %s", target.Kind(), key.Kind())
	}
	return ev.member(target, s)
}

func arithmetic(op expr.BinaryOp, l, r literal.Literal) (literal.Literal, error) {
	if l.IsNull() || r.IsNull() {
		return literal.Null(), nil
	}

	ln, lNum := l.AsNumber()
	rn, rNum := r.AsNumber()
	if lNum && rNum {
		return numeric(op, ln, rn)
	}

	ls, lStr := l.AsString()
	rs, rStr := r.AsString()
	if op == expr.OpAdd && (lStr || rStr) {
		if !lStr {
			ls = literal.Display(l)
		}
		if !rStr {
			rs = literal.Display(r)
		}
		return literal.String(ls + rs), nil
	}

	lt, lTime, lDate := l.AsDate()
	rt, rTime, rDate := r.AsDate()
	ld, lDur := l.AsDuration()
	rd, rDur := r.AsDuration()

	switch {
	case lDate && rDur && (op == expr.OpAdd || op == expr.OpSub):
		if op == expr.OpSub {
			rd = -rd
		}
		return shiftDate(lt, lTime, rd), nil
	case lDur && rDate && op == expr.OpAdd:
		return shiftDate(rt, rTime, ld), nil
	case lDate && rDate && op == expr.OpSub:
		return literal.Duration(lt.Sub(rt)), nil
	case lDur && rDur:
		switch op {
		case expr.OpAdd:
			return literal.Duration(ld + rd), nil
		case expr.OpSub:
			return literal.Duration(ld - rd), nil
		case expr.OpDiv:
			if rd == 0 {
				return literal.Null(), domain.NewEvaluationError("division by zero")
			}
			return literal.Number(float64(ld) / float64(rd)), nil
		}
	case lDur && rNum && (op == expr.OpMul || op == expr.OpDiv):
		if op == expr.OpDiv {
			if rn == 0 {
				return literal.Null(), domain.NewEvaluationError("division by zero")
			}
			rn = 1 / rn
		}
		return literal.Duration(time.Duration(float64(ld) * rn)), nil
	case lNum && rDur && op == expr.OpMul:
		return literal.Duration(time.Duration(ln * float64(rd))), nil
	}

	return literal.Null(), domain.NewEvaluationError("cannot apply %s to %s and %s", op, l.Kind(), r.Kind())
}

func numeric(op expr.BinaryOp, a, b float64) (literal.Literal, error) {
	switch op {
	case expr.OpAdd:
		return literal.Number(a + b), nil
	case expr.OpSub:
		return literal.Number(a - b), nil
	case expr.OpMul:
		return literal.Number(a * b), nil
	case expr.OpDiv:
		if b == 0 {
			return literal.Null(), domain.NewEvaluationError("division by zero")
		}
		return literal.Number(a / b), nil
	case expr.OpMod:
		if b == 0 {
			return literal.Null(), domain.NewEvaluationError("division by zero")
		}
		return literal.Number(math.Mod(a, b)), nil
	}
	return literal.Null(), domain.NewEvaluationError("unknown operator %q", op)
}

// shiftDate keeps day precision unless either side carries a time of day.
func shiftDate(t time.Time, hasTime bool, d time.Duration) literal.Literal {
	shifted := t.Add(d)
	if hasTime || d%(24*time.Hour) != 0 {
		return literal.DateTime(shifted)
	}
	return literal.Date(shifted)
}
