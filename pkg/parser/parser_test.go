package parser_test

import (
	"testing"

	"github.com/example/toycc/pkg/ast"
	"github.com/example/toycc/pkg/parser"
)

func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, err := parser.NewParser(source).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %s", source, err)
	}
	return prog
}

func TestParseHello(t *testing.T) {
	prog := mustParse(t, "x = 42; print x;")
	if len(prog.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Stmts))
	}

	assign, ok := prog.Stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("stmt 0: got %T, want *ast.Assign", prog.Stmts[0])
	}
	if assign.Name != "x" {
		t.Fatalf("got assign target %q, want %q", assign.Name, "x")
	}
	lit, ok := assign.Expr.(*ast.IntLiteral)
	if !ok || lit.Value != 42 {
		t.Fatalf("got assign value %#v, want IntLiteral(42)", assign.Expr)
	}

	print, ok := prog.Stmts[1].(*ast.Print)
	if !ok {
		t.Fatalf("stmt 1: got %T, want *ast.Print", prog.Stmts[1])
	}
	if v, ok := print.Value.(*ast.Variable); !ok || v.Name != "x" {
		t.Fatalf("got print value %#v, want Variable(x)", print.Value)
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	prog := mustParse(t, "print 2 + 3 * 4;")
	print := prog.Stmts[0].(*ast.Print)

	top, ok := print.Value.(*ast.Binary)
	if !ok || top.Op != ast.OpAdd {
		t.Fatalf("got top-level op %#v, want a '+' Binary", print.Value)
	}
	if _, ok := top.Left.(*ast.IntLiteral); !ok {
		t.Fatalf("got left %#v, want IntLiteral(2)", top.Left)
	}
	mul, ok := top.Right.(*ast.Binary)
	if !ok || mul.Op != ast.OpMul {
		t.Fatalf("got right %#v, want a '*' Binary (precedence)", top.Right)
	}
}

func TestParseParenthesizedPrecedence(t *testing.T) {
	prog := mustParse(t, "print (2 + 3) * 4;")
	print := prog.Stmts[0].(*ast.Print)

	top, ok := print.Value.(*ast.Binary)
	if !ok || top.Op != ast.OpMul {
		t.Fatalf("got top-level op %#v, want a '*' Binary", print.Value)
	}
	add, ok := top.Left.(*ast.Binary)
	if !ok || add.Op != ast.OpAdd {
		t.Fatalf("got left %#v, want a '+' Binary (parenthesized group)", top.Left)
	}
}

func TestParseConditional(t *testing.T) {
	prog := mustParse(t, `x = 10; if x > 5 { print 100; } else { print 200; }`)
	ifStmt, ok := prog.Stmts[1].(*ast.If)
	if !ok {
		t.Fatalf("stmt 1: got %T, want *ast.If", prog.Stmts[1])
	}
	cond, ok := ifStmt.Cond.(*ast.Binary)
	if !ok || cond.Op != ast.OpGt {
		t.Fatalf("got cond %#v, want a '>' Binary", ifStmt.Cond)
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("got then=%d else=%d statements, want 1 and 1", len(ifStmt.Then), len(ifStmt.Else))
	}
}

func TestParseWhileBreakContinue(t *testing.T) {
	prog := mustParse(t, `i = 0; while i < 5 { i = i + 1; if i == 3 { continue; } print i; }`)
	loop, ok := prog.Stmts[1].(*ast.While)
	if !ok {
		t.Fatalf("stmt 1: got %T, want *ast.While", prog.Stmts[1])
	}
	if len(loop.Body) != 3 {
		t.Fatalf("got %d body statements, want 3", len(loop.Body))
	}
	nested, ok := loop.Body[1].(*ast.If)
	if !ok {
		t.Fatalf("body 1: got %T, want *ast.If", loop.Body[1])
	}
	if _, ok := nested.Then[0].(*ast.Continue); !ok {
		t.Fatalf("got %T, want *ast.Continue", nested.Then[0])
	}
}

func TestParseSubroutineWithRecursion(t *testing.T) {
	prog := mustParse(t, `sub factorial(n) { if n <= 1 { return 1; } return n * factorial(n - 1); } print factorial(5);`)

	sub, ok := prog.Stmts[0].(*ast.SubDef)
	if !ok {
		t.Fatalf("stmt 0: got %T, want *ast.SubDef", prog.Stmts[0])
	}
	if sub.Name != "factorial" || len(sub.Params) != 1 || sub.Params[0] != "n" {
		t.Fatalf("got %+v, want factorial(n)", sub)
	}
	if len(sub.Body) != 2 {
		t.Fatalf("got %d body statements, want 2", len(sub.Body))
	}

	print := prog.Stmts[1].(*ast.Print)
	call, ok := print.Value.(*ast.Call)
	if !ok || call.Name != "factorial" || len(call.Args) != 1 {
		t.Fatalf("got %#v, want a call to factorial/1", print.Value)
	}
}

func TestParseShortCircuitObservable(t *testing.T) {
	prog := mustParse(t, `sub side() { print 999; return 1; } if 0 && side() { print 1; } print 7;`)
	ifStmt, ok := prog.Stmts[1].(*ast.If)
	if !ok {
		t.Fatalf("stmt 1: got %T, want *ast.If", prog.Stmts[1])
	}
	cond, ok := ifStmt.Cond.(*ast.Binary)
	if !ok || cond.Op != ast.OpAnd {
		t.Fatalf("got cond %#v, want a '&&' Binary", ifStmt.Cond)
	}
	if _, ok := cond.Right.(*ast.Call); !ok {
		t.Fatalf("got rhs %#v, want a Call to side()", cond.Right)
	}
}

func TestParseStringOnlyInPrint(t *testing.T) {
	prog := mustParse(t, `print "hello";`)
	print := prog.Stmts[0].(*ast.Print)
	str, ok := print.Value.(*ast.StringLiteral)
	if !ok || str.Value != "hello" {
		t.Fatalf("got %#v, want StringLiteral(hello)", print.Value)
	}
}

func TestParseCommentsAreStripped(t *testing.T) {
	prog := mustParse(t, "// a leading comment\nx = 1; // trailing\nprint x;")
	if len(prog.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2 (comments should not produce nodes)", len(prog.Stmts))
	}
}

func TestParseUnaryOperators(t *testing.T) {
	prog := mustParse(t, "x = -5; y = !0;")
	assignX := prog.Stmts[0].(*ast.Assign)
	neg, ok := assignX.Expr.(*ast.Unary)
	if !ok || neg.Op != ast.OpNeg {
		t.Fatalf("got %#v, want Unary(-)", assignX.Expr)
	}

	assignY := prog.Stmts[1].(*ast.Assign)
	not, ok := assignY.Expr.(*ast.Unary)
	if !ok || not.Op != ast.OpNot {
		t.Fatalf("got %#v, want Unary(!)", assignY.Expr)
	}
}
