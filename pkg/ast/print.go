package ast

import (
	"fmt"
	"strings"
)

// String renders e in roughly the surface syntax it was parsed from. It exists
// for the compiler's --tokens dump mode, not for compilation itself.
func (e *IntLiteral) String() string    { return fmt.Sprintf("%d", e.Value) }
func (e *StringLiteral) String() string { return fmt.Sprintf("%q", e.Value) }
func (e *Variable) String() string      { return e.Name }
func (e *Binary) String() string        { return fmt.Sprintf("(%s %s %s)", exprString(e.Left), e.Op, exprString(e.Right)) }
func (e *Unary) String() string         { return fmt.Sprintf("(%s%s)", e.Op, exprString(e.Operand)) }

func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = exprString(a)
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
}

func exprString(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch v := e.(type) {
	case *IntLiteral:
		return v.String()
	case *StringLiteral:
		return v.String()
	case *Variable:
		return v.String()
	case *Binary:
		return v.String()
	case *Unary:
		return v.String()
	case *Call:
		return v.String()
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

// StmtString renders s one level deep, without recursing into nested blocks —
// enough for --tokens dumps and diagnostic context lines.
func StmtString(s Stmt) string {
	switch v := s.(type) {
	case *Assign:
		return fmt.Sprintf("%s = %s;", v.Name, exprString(v.Expr))
	case *Print:
		return fmt.Sprintf("print %s;", exprString(v.Value))
	case *If:
		return fmt.Sprintf("if %s { ... }", exprString(v.Cond))
	case *While:
		return fmt.Sprintf("while %s { ... }", exprString(v.Cond))
	case *Break:
		return "break;"
	case *Continue:
		return "continue;"
	case *Return:
		if v.Expr == nil {
			return "return;"
		}
		return fmt.Sprintf("return %s;", exprString(v.Expr))
	case *SubDef:
		return fmt.Sprintf("sub %s(%s) { ... }", v.Name, strings.Join(v.Params, ", "))
	case *ExprStmt:
		return exprString(v.Call) + ";"
	default:
		return fmt.Sprintf("<%T>", s)
	}
}
