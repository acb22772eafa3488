// Package codegen lowers a parsed, scope-analyzed Toy program to NASM x86-64
// assembly text. It is the heaviest package in the compiler: every AST node has
// exactly one fixed lowering (§4.5), so the structure below is one function per
// node kind, dispatched with an explicit type switch the way
// its-hmny-nand2tetris's pkg/hack.CodeGenerator dispatches on Instruction, rather
// than an open visitor interface — Toy's AST is a closed variant set and stays one.
package codegen

import (
	"fmt"
	"sort"

	"github.com/example/toycc/pkg/ast"
	"github.com/example/toycc/pkg/asmwriter"
	"github.com/example/toycc/pkg/diagnostic"
	"github.com/example/toycc/pkg/scope"
	"github.com/example/toycc/pkg/stack"
)

// loopLabels is what the loop-context stack holds: the start label (continue's
// target) and end label (break's target) of one enclosing While.
type loopLabels struct{ Start, End string }

// Generator walks one scope-analyzed program and emits its assembly. It is not
// reused across compilations: label counters and the loop stack are one-shot.
type Generator struct {
	w      *asmwriter.Writer
	scopes *scope.Program

	activeLocals *scope.Map
	activeParams *scope.Map // nil while emitting global/main code

	inSub bool
	loops stack.Stack[loopLabels]
}

// New returns a Generator ready to emit prog's program given its scope analysis.
func New(scopes *scope.Program) *Generator {
	return &Generator{w: asmwriter.New(), scopes: scopes}
}

// Generate lowers prog in full and returns the rendered assembly text.
func (g *Generator) Generate(prog *ast.Program) (string, error) {
	g.w.EmitLine(asmwriter.Text, "global _start")
	g.w.EmitLine(asmwriter.Text, "extern print_int, print_newline")

	g.emitStringConstants()

	var mainStmts []ast.Stmt
	for _, s := range prog.Stmts {
		if _, ok := s.(*ast.SubDef); !ok {
			mainStmts = append(mainStmts, s)
		}
	}

	g.activeLocals = g.scopes.Global
	g.activeParams = nil
	g.inSub = false

	g.w.EmitLabel(asmwriter.Text, "_start")
	g.w.EmitLine(asmwriter.Text, "push rbp")
	g.w.EmitLine(asmwriter.Text, "mov rbp, rsp")
	if n := len(g.scopes.Global.Order); n > 0 {
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("sub rsp, %d", 8*n))
	}
	g.zeroInit(g.scopes.Global)

	for _, s := range mainStmts {
		if err := g.genStmt(s); err != nil {
			return "", err
		}
	}

	g.emitExit()

	// Subroutines are emitted after the exit syscall, in name order, so the
	// instruction stream can never fall through into one and output stays
	// deterministic across runs over the same source.
	names := make([]string, 0, len(g.scopes.Subroutines))
	for name := range g.scopes.Subroutines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := g.genSubroutine(g.scopes.Subroutines[name]); err != nil {
			return "", err
		}
	}

	return g.w.Render(), nil
}

func (g *Generator) emitStringConstants() {
	for _, text := range g.scopes.Strings.Texts() {
		label, _ := g.scopes.Strings.Label(text)
		g.w.EmitLabel(asmwriter.Data, label)
		g.w.EmitLine(asmwriter.Data, fmt.Sprintf(`db "%s", 0`, text))
		g.w.EmitLine(asmwriter.Data, fmt.Sprintf("%s_len equ $ - %s - 1", label, label))
	}
}

func (g *Generator) zeroInit(m *scope.Map) {
	for _, name := range m.Order {
		off, _ := m.Lookup(name)
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("mov qword %s, 0", operand(off)))
	}
}

func (g *Generator) emitExit() {
	g.w.EmitLine(asmwriter.Text, "mov rsp, rbp")
	g.w.EmitLine(asmwriter.Text, "pop rbp")
	g.w.EmitLine(asmwriter.Text, "mov rax, 60")
	g.w.EmitLine(asmwriter.Text, "xor rdi, rdi")
	g.w.EmitLine(asmwriter.Text, "syscall")
}

func (g *Generator) genSubroutine(sub *scope.Subroutine) error {
	savedLocals, savedParams, savedInSub := g.activeLocals, g.activeParams, g.inSub
	g.activeLocals, g.activeParams, g.inSub = sub.Locals, sub.Params, true
	defer func() { g.activeLocals, g.activeParams, g.inSub = savedLocals, savedParams, savedInSub }()

	g.w.EmitLabel(asmwriter.Text, sub.Def.Name)
	g.w.EmitLine(asmwriter.Text, "push rbp")
	g.w.EmitLine(asmwriter.Text, "mov rbp, rsp")
	if n := len(sub.Locals.Order); n > 0 {
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("sub rsp, %d", 8*n))
	}
	g.zeroInit(sub.Locals)

	endsInReturn := false
	for _, s := range sub.Def.Body {
		if err := g.genStmt(s); err != nil {
			return err
		}
		_, endsInReturn = s.(*ast.Return)
	}
	if !endsInReturn {
		if err := g.emitReturn(nil); err != nil {
			return err
		}
	}
	return nil
}

// operand renders a frame-relative offset as a NASM memory operand.
func operand(offset int) string {
	if offset >= 0 {
		return fmt.Sprintf("[rbp+%d]", offset)
	}
	return fmt.Sprintf("[rbp%d]", offset)
}

// resolveVar finds name's frame offset, preferring the active subroutine's
// parameters (which shadow same-named globals) over its locals.
func (g *Generator) resolveVar(name string) (int, bool) {
	if g.activeParams != nil {
		if off, ok := g.activeParams.Lookup(name); ok {
			return off, true
		}
	}
	return g.activeLocals.Lookup(name)
}

func (g *Generator) genStmt(s ast.Stmt) error {
	switch v := s.(type) {
	case *ast.Assign:
		return g.genAssign(v)
	case *ast.Print:
		return g.genPrint(v)
	case *ast.If:
		return g.genIf(v)
	case *ast.While:
		return g.genWhile(v)
	case *ast.Break:
		return g.genBreak(v)
	case *ast.Continue:
		return g.genContinue(v)
	case *ast.Return:
		if !g.inSub {
			return &diagnostic.CompileError{
				Category: diagnostic.ErrReturnOutsideSub,
				Line:     v.Line, Col: v.Col,
				Message: "return outside subroutine",
			}
		}
		return g.emitReturn(v.Expr)
	case *ast.ExprStmt:
		if err := g.genExpr(v.Call); err != nil {
			return err
		}
		return nil
	case *ast.SubDef:
		return fmt.Errorf("codegen: nested sub definitions are not supported")
	default:
		return fmt.Errorf("codegen: unhandled statement %T", s)
	}
}

func (g *Generator) genAssign(a *ast.Assign) error {
	if err := g.genExpr(a.Expr); err != nil {
		return err
	}
	off, ok := g.resolveVar(a.Name)
	if !ok {
		return fmt.Errorf("codegen: internal error: unresolved variable %q", a.Name)
	}
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("mov %s, rax", operand(off)))
	return nil
}

func (g *Generator) genPrint(p *ast.Print) error {
	if str, ok := p.Value.(*ast.StringLiteral); ok {
		label, ok := g.scopes.Strings.Label(str.Value)
		if !ok {
			return fmt.Errorf("codegen: internal error: string literal %q was never interned", str.Value)
		}
		g.w.EmitLine(asmwriter.Text, "mov rax, 1")
		g.w.EmitLine(asmwriter.Text, "mov rdi, 1")
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("lea rsi, [rel %s]", label))
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("mov rdx, %s_len", label))
		g.w.EmitLine(asmwriter.Text, "syscall")
		g.w.EmitLine(asmwriter.Text, "call print_newline")
		return nil
	}

	if err := g.genExpr(p.Value); err != nil {
		return err
	}
	g.w.EmitLine(asmwriter.Text, "mov rdi, rax")
	g.w.EmitLine(asmwriter.Text, "call print_int")
	g.w.EmitLine(asmwriter.Text, "call print_newline")
	return nil
}

func (g *Generator) genIf(stmt *ast.If) error {
	if err := g.genExpr(stmt.Cond); err != nil {
		return err
	}
	g.w.EmitLine(asmwriter.Text, "test rax, rax")

	endif := g.w.NewLabel("endif")
	if len(stmt.Else) == 0 {
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jz %s", endif))
		if err := g.genBlock(stmt.Then); err != nil {
			return err
		}
		g.w.EmitLabel(asmwriter.Text, endif)
		return nil
	}

	elseLabel := g.w.NewLabel("else")
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jz %s", elseLabel))
	if err := g.genBlock(stmt.Then); err != nil {
		return err
	}
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jmp %s", endif))
	g.w.EmitLabel(asmwriter.Text, elseLabel)
	if err := g.genBlock(stmt.Else); err != nil {
		return err
	}
	g.w.EmitLabel(asmwriter.Text, endif)
	return nil
}

func (g *Generator) genWhile(stmt *ast.While) error {
	start := g.w.NewLabel("while")
	end := g.w.NewLabel("endwhile")

	g.w.EmitLabel(asmwriter.Text, start)
	if err := g.genExpr(stmt.Cond); err != nil {
		return err
	}
	g.w.EmitLine(asmwriter.Text, "test rax, rax")
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jz %s", end))

	g.loops.Push(loopLabels{Start: start, End: end})
	err := g.genBlock(stmt.Body)
	g.loops.Pop() // pop unconditionally; err is handled right after

	if err != nil {
		return err
	}

	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jmp %s", start))
	g.w.EmitLabel(asmwriter.Text, end)
	return nil
}

func (g *Generator) genBreak(b *ast.Break) error {
	top, err := g.loops.Top()
	if err != nil {
		return &diagnostic.CompileError{
			Category: diagnostic.ErrBreakOutsideLoop,
			Line:     b.Line, Col: b.Col,
			Message: "break outside loop",
		}
	}
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jmp %s", top.End))
	return nil
}

func (g *Generator) genContinue(c *ast.Continue) error {
	top, err := g.loops.Top()
	if err != nil {
		return &diagnostic.CompileError{
			Category: diagnostic.ErrContinueOutsideLoop,
			Line:     c.Line, Col: c.Col,
			Message: "continue outside loop",
		}
	}
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jmp %s", top.Start))
	return nil
}

func (g *Generator) genBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) emitReturn(e ast.Expr) error {
	if e != nil {
		if err := g.genExpr(e); err != nil {
			return err
		}
	} else {
		g.w.EmitLine(asmwriter.Text, "xor rax, rax")
	}
	g.w.EmitLine(asmwriter.Text, "mov rsp, rbp")
	g.w.EmitLine(asmwriter.Text, "pop rbp")
	g.w.EmitLine(asmwriter.Text, "ret")
	return nil
}
