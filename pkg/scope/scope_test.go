package scope_test

import (
	"testing"

	"github.com/example/toycc/pkg/ast"
	"github.com/example/toycc/pkg/diagnostic"
	"github.com/example/toycc/pkg/scope"
)

func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func TestAnalyzeGlobalOffsets(t *testing.T) {
	// x = 1; y = x + 2;
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.Assign{Name: "x", Expr: &ast.IntLiteral{Value: 1}},
		&ast.Assign{Name: "y", Expr: &ast.Binary{Op: ast.OpAdd, Left: v("x"), Right: &ast.IntLiteral{Value: 2}}},
	}}

	result, err := scope.Analyze(prog)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	offX, ok := result.Global.Lookup("x")
	if !ok || offX != -8 {
		t.Fatalf("x: got (%d, %v), want (-8, true)", offX, ok)
	}
	offY, ok := result.Global.Lookup("y")
	if !ok || offY != -16 {
		t.Fatalf("y: got (%d, %v), want (-16, true)", offY, ok)
	}
}

func TestAnalyzeSubroutineParamsAndLocals(t *testing.T) {
	// sub add(a, b) { c = a + b; return c; }
	sub := &ast.SubDef{
		Name:   "add",
		Params: []string{"a", "b"},
		Body: []ast.Stmt{
			&ast.Assign{Name: "c", Expr: &ast.Binary{Op: ast.OpAdd, Left: v("a"), Right: v("b")}},
			&ast.Return{Expr: v("c")},
		},
	}
	prog := &ast.Program{Stmts: []ast.Stmt{sub}}

	result, err := scope.Analyze(prog)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	addSub, ok := result.Subroutines["add"]
	if !ok {
		t.Fatal("expected subroutine 'add' to be registered")
	}
	if addSub.Arity != 2 {
		t.Fatalf("got arity %d, want 2", addSub.Arity)
	}

	if off, _ := addSub.Params.Lookup("a"); off != 16 {
		t.Fatalf("param 'a': got offset %d, want 16", off)
	}
	if off, _ := addSub.Params.Lookup("b"); off != 24 {
		t.Fatalf("param 'b': got offset %d, want 24", off)
	}
	if off, _ := addSub.Locals.Lookup("c"); off != -8 {
		t.Fatalf("local 'c': got offset %d, want -8", off)
	}
	// Parameters never leak into the enclosing (here: empty) global scope.
	if _, ok := result.Global.Lookup("a"); ok {
		t.Fatal("parameter 'a' should not appear in the global scope")
	}
}

func TestAnalyzeParameterShadowsGlobal(t *testing.T) {
	// x = 1; sub f(x) { return x; }
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.Assign{Name: "x", Expr: &ast.IntLiteral{Value: 1}},
		&ast.SubDef{Name: "f", Params: []string{"x"}, Body: []ast.Stmt{
			&ast.Return{Expr: v("x")},
		}},
	}}

	result, err := scope.Analyze(prog)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	f := result.Subroutines["f"]
	if _, ok := f.Locals.Lookup("x"); ok {
		t.Fatal("'x' should resolve through the parameter map, not be duplicated into locals")
	}
	if _, ok := f.Params.Lookup("x"); !ok {
		t.Fatal("expected 'x' to be registered as a parameter")
	}
}

func TestAnalyzeStringOutsidePrintIsError(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.Assign{Name: "x", Expr: &ast.StringLiteral{Value: "oops"}},
	}}

	_, err := scope.Analyze(prog)
	cerr, ok := err.(*diagnostic.CompileError)
	if !ok {
		t.Fatalf("expected *diagnostic.CompileError, got %T (%v)", err, err)
	}
	if cerr.Category != diagnostic.ErrStringOutsidePrint {
		t.Fatalf("got category %q, want %q", cerr.Category, diagnostic.ErrStringOutsidePrint)
	}
}

func TestAnalyzeStringInPrintIsInterned(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.Print{Value: &ast.StringLiteral{Value: "hi"}},
		&ast.Print{Value: &ast.StringLiteral{Value: "hi"}},
		&ast.Print{Value: &ast.StringLiteral{Value: "bye"}},
	}}

	result, err := scope.Analyze(prog)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	hiLabel, _ := result.Strings.Label("hi")
	byeLabel, _ := result.Strings.Label("bye")
	if hiLabel != "const.0" {
		t.Fatalf("got %q, want %q (dedup should keep first label)", hiLabel, "const.0")
	}
	if byeLabel != "const.1" {
		t.Fatalf("got %q, want %q", byeLabel, "const.1")
	}
	if len(result.Strings.Texts()) != 2 {
		t.Fatalf("got %d interned strings, want 2 (dedup)", len(result.Strings.Texts()))
	}
}

func TestAnalyzeUndefinedSubroutineIsError(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.ExprStmt{Call: &ast.Call{Name: "missing"}},
	}}

	_, err := scope.Analyze(prog)
	cerr, ok := err.(*diagnostic.CompileError)
	if !ok {
		t.Fatalf("expected *diagnostic.CompileError, got %T (%v)", err, err)
	}
	if cerr.Category != diagnostic.ErrUndefinedSub {
		t.Fatalf("got category %q, want %q", cerr.Category, diagnostic.ErrUndefinedSub)
	}
}

func TestAnalyzeArityMismatchIsError(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.SubDef{Name: "f", Params: []string{"a"}, Body: []ast.Stmt{&ast.Return{Expr: v("a")}}},
		&ast.ExprStmt{Call: &ast.Call{Name: "f", Args: []ast.Expr{&ast.IntLiteral{Value: 1}, &ast.IntLiteral{Value: 2}}}},
	}}

	_, err := scope.Analyze(prog)
	cerr, ok := err.(*diagnostic.CompileError)
	if !ok {
		t.Fatalf("expected *diagnostic.CompileError, got %T (%v)", err, err)
	}
	if cerr.Category != diagnostic.ErrArityMismatch {
		t.Fatalf("got category %q, want %q", cerr.Category, diagnostic.ErrArityMismatch)
	}
}

func TestAnalyzeFirstAppearanceOrdering(t *testing.T) {
	// Reading a name for the first time inside a nested if still counts as its
	// first appearance, even though flag is assigned after the if in source order.
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.If{
			Cond: v("flag"),
			Then: []ast.Stmt{&ast.Assign{Name: "z", Expr: &ast.IntLiteral{Value: 1}}},
		},
		&ast.Assign{Name: "flag", Expr: &ast.IntLiteral{Value: 0}},
	}}

	result, err := scope.Analyze(prog)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	offFlag, _ := result.Global.Lookup("flag")
	offZ, _ := result.Global.Lookup("z")
	if offFlag != -8 {
		t.Fatalf("'flag' (read first in the if condition): got offset %d, want -8", offFlag)
	}
	if offZ != -16 {
		t.Fatalf("'z': got offset %d, want -16", offZ)
	}
}
