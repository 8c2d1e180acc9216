// Package expr defines the expression nodes used by query fields, filters, grouping and sorting.
package expr

import (
	"strings"

	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

// Expression is a node of a query expression tree. The set of nodes is closed.
type Expression interface {
	expressionNode()
	String() string
}

// BinaryOp is an infix operator.
type BinaryOp string

// Supported binary operators.
const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpEq  BinaryOp = "="
	OpNe  BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLte BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGte BinaryOp = ">="
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
)

// Valid reports whether op is a known binary operator.
func (op BinaryOp) Valid() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr:
		return true
	}
	return false
}

// UnaryOp is a prefix operator.
type UnaryOp string

// Supported unary operators.
const (
	OpNot UnaryOp = "!"
	OpNeg UnaryOp = "-"
)

// Valid reports whether op is a known unary operator.
func (op UnaryOp) Valid() bool { return op == OpNot || op == OpNeg }

// Field references a value by dotted path, e.g. file.name.
type Field struct {
	Path []string
}

// Const is a literal constant.
type Const struct {
	Value literal.Literal
}

// Binary applies an infix operator.
type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// Unary applies a prefix operator.
type Unary struct {
	Op      UnaryOp
	Operand Expression
}

// Index reads a list element or mapping entry.
type Index struct {
	Target Expression
	Key    Expression
}

// Call invokes a built-in function.
type Call struct {
	Func string
	Args []Expression
}

func (*Field) expressionNode()  {}
func (*Const) expressionNode()  {}
func (*Binary) expressionNode() {}
func (*Unary) expressionNode()  {}
func (*Index) expressionNode()  {}
func (*Call) expressionNode()   {}

// Ref builds a field reference from a dotted path.
func Ref(dotted string) *Field {
	return &Field{Path: strings.Split(dotted, ".")}
}

// Lit builds a constant.
func Lit(v literal.Literal) *Const { return &Const{Value: v} }

// Bin builds a binary node.
func Bin(op BinaryOp, left, right Expression) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// Not negates a boolean expression.
func Not(operand Expression) *Unary { return &Unary{Op: OpNot, Operand: operand} }

// Fn builds a function call.
func Fn(name string, args ...Expression) *Call { return &Call{Func: name, Args: args} }

func (f *Field) String() string { return strings.Join(f.Path, ".") }

func (c *Const) String() string {
	if s, ok := c.Value.AsString(); ok {
		return `"` + s + `"`
	}
	return literal.Display(c.Value)
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

func (u *Unary) String() string { return string(u.Op) + u.Operand.String() }

func (i *Index) String() string { return i.Target.String() + "[" + i.Key.String() + "]" }

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Func + "(" + strings.Join(args, ", ") + ")"
}
