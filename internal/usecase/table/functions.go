package table

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/expr"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

type function struct {
	minArgs, maxArgs int // maxArgs < 0 means variadic
	apply            func(args []literal.Literal) (literal.Literal, error)
}

var functions = map[string]function{
	"length":     {1, 1, fnLength},
	"contains":   {2, 2, fnContains},
	"lower":      {1, 1, fnCase(strings.ToLower)},
	"upper":      {1, 1, fnCase(strings.ToUpper)},
	"default":    {2, 2, fnDefault},
	"round":      {1, 2, fnRound},
	"sum":        {1, 1, fnSum},
	"min":        {1, -1, fnExtreme(-1)},
	"max":        {1, -1, fnExtreme(1)},
	"startswith": {2, 2, fnStartsWith},
	"join":       {1, 2, fnJoin},
}

func (ev *evaluator) call(n *expr.Call, sc scope) (literal.Literal, error) {
	fn, ok := functions[strings.ToLower(n.Func)]
	if !ok {
		return literal.Null(), domain.NewEvaluationError("unknown function %q", n.Func)
	}
	if len(n.Args) < fn.minArgs || (fn.maxArgs >= 0 && len(n.Args) > fn.maxArgs) {
		return literal.Null(), domain.NewEvaluationError("%s: wrong number of arguments (%d)", n.Func, len(n.Args))
	}

	args := make([]literal.Literal, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a, sc)
		if err != nil {
			return literal.Null(), err
		}
		args[i] = v
	}

	out, err := fn.apply(args)
	if err != nil {
		return literal.Null(), domain.NewEvaluationError("%s: %v", n.Func, err)
	}
	return out, nil
}

func argError(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func fnLength(args []literal.Literal) (literal.Literal, error) {
	switch args[0].Kind() {
	case literal.KindNull:
		return literal.Int(0), nil
	case literal.KindList, literal.KindMapping, literal.KindString:
		return literal.Int(int64(args[0].Len())), nil
	}
	return literal.Null(), argError("no length for %s", args[0].Kind())
}

func fnContains(args []literal.Literal) (literal.Literal, error) {
	hay, needle := args[0], args[1]
	switch hay.Kind() {
	case literal.KindNull:
		return literal.Bool(false), nil
	case literal.KindList:
		items, _ := hay.AsList()
		for _, it := range items {
			if literal.Equal(it, needle) {
				return literal.Bool(true), nil
			}
		}
		return literal.Bool(false), nil
	case literal.KindMapping:
		s, ok := needle.AsString()
		if !ok {
			return literal.Null(), argError("mapping keys are strings, got %s", needle.Kind())
		}
		_, found := hay.Get(s)
		return literal.Bool(found), nil
	case literal.KindString:
		h, _ := hay.AsString()
		s, ok := needle.AsString()
		if !ok {
			return literal.Null(), argError("cannot search a string for %s", needle.Kind())
		}
		return literal.Bool(strings.Contains(h, s)), nil
	}
	return literal.Null(), argError("cannot search a %s value", hay.Kind())
}

func fnCase(conv func(string) string) func([]literal.Literal) (literal.Literal, error) {
	return func(args []literal.Literal) (literal.Literal, error) {
		if args[0].IsNull() {
			return args[0], nil
		}
		s, ok := args[0].AsString()
		if !ok {
			return literal.Null(), argError("expected string, got %s", args[0].Kind())
		}
		return literal.String(conv(s)), nil
	}
}

func fnDefault(args []literal.Literal) (literal.Literal, error) {
	if args[0].IsNull() {
		return args[1], nil
	}
	return args[0], nil
}

func fnRound(args []literal.Literal) (literal.Literal, error) {
	if args[0].IsNull() {
		return args[0], nil
	}
	n, ok := args[0].AsNumber()
	if !ok {
		return literal.Null(), argError("expected number, got %s", args[0].Kind())
	}
	digits := 0.0
	if len(args) == 2 {
		if digits, ok = args[1].AsNumber(); !ok {
			return literal.Null(), argError("digits must be a number, got %s", args[1].Kind())
		}
	}
	scale := math.Pow(10, math.Trunc(digits))
	return literal.Number(math.Round(n*scale) / scale), nil
}

func fnSum(args []literal.Literal) (literal.Literal, error) {
	if args[0].IsNull() {
		return literal.Int(0), nil
	}
	items, ok := args[0].AsList()
	if !ok {
		return literal.Null(), argError("expected list, got %s", args[0].Kind())
	}
	total := 0.0
	for _, it := range items {
		if it.IsNull() {
			continue
		}
		n, ok := it.AsNumber()
		if !ok {
			return literal.Null(), argError("cannot add %s", it.Kind())
		}
		total += n
	}
	return literal.Number(total), nil
}

// fnExtreme picks the smallest (sign -1) or largest (sign 1) value by literal order.
// A single list argument is expanded into its elements.
func fnExtreme(sign int) func([]literal.Literal) (literal.Literal, error) {
	return func(args []literal.Literal) (literal.Literal, error) {
		values := args
		if len(args) == 1 {
			if items, ok := args[0].AsList(); ok {
				values = items
			}
		}
		if len(values) == 0 {
			return literal.Null(), nil
		}
		best := values[0]
		for _, v := range values[1:] {
			if literal.Compare(v, best)*sign > 0 {
				best = v
			}
		}
		return best, nil
	}
}

func fnStartsWith(args []literal.Literal) (literal.Literal, error) {
	if args[0].IsNull() {
		return literal.Bool(false), nil
	}
	s, ok1 := args[0].AsString()
	p, ok2 := args[1].AsString()
	if !ok1 || !ok2 {
		return literal.Null(), argError("expected strings, got %s and %s", args[0].Kind(), args[1].Kind())
	}
	return literal.Bool(strings.HasPrefix(s, p)), nil
}

func fnJoin(args []literal.Literal) (literal.Literal, error) {
	sep := ", "
	if len(args) == 2 {
		s, ok := args[1].AsString()
		if !ok {
			return literal.Null(), argError("separator must be a string, got %s", args[1].Kind())
		}
		sep = s
	}
	if args[0].IsNull() {
		return literal.String(""), nil
	}
	items, ok := args[0].AsList()
	if !ok {
		return literal.String(literal.Display(args[0])), nil
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = literal.Display(it)
	}
	return literal.String(strings.Join(parts, sep)), nil
}
