package codegen

import (
	"fmt"

	"github.com/example/toycc/pkg/ast"
	"github.com/example/toycc/pkg/asmwriter"
)

// genExpr lowers e post-order, per §4.5's table, leaving the result in rax.
func (g *Generator) genExpr(e ast.Expr) error {
	switch v := e.(type) {
	case *ast.IntLiteral:
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("mov rax, %d", v.Value))
		return nil

	case *ast.Variable:
		off, ok := g.resolveVar(v.Name)
		if !ok {
			return fmt.Errorf("codegen: internal error: unresolved variable %q", v.Name)
		}
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("mov rax, %s", operand(off)))
		return nil

	case *ast.StringLiteral:
		return fmt.Errorf("codegen: internal error: string literal reached general expression lowering")

	case *ast.Unary:
		return g.genUnary(v)

	case *ast.Binary:
		return g.genBinary(v)

	case *ast.Call:
		return g.genCall(v)

	default:
		return fmt.Errorf("codegen: unhandled expression %T", e)
	}
}

func (g *Generator) genUnary(u *ast.Unary) error {
	if err := g.genExpr(u.Operand); err != nil {
		return err
	}
	switch u.Op {
	case ast.OpNeg:
		g.w.EmitLine(asmwriter.Text, "neg rax")
	case ast.OpNot:
		g.w.EmitLine(asmwriter.Text, "test rax, rax")
		g.w.EmitLine(asmwriter.Text, "sete al")
		g.w.EmitLine(asmwriter.Text, "movzx rax, al")
	default:
		return fmt.Errorf("codegen: unhandled unary operator %q", u.Op)
	}
	return nil
}

var setccByOp = map[ast.BinaryOp]string{
	ast.OpEq: "sete", ast.OpNe: "setne",
	ast.OpLt: "setl", ast.OpLe: "setle",
	ast.OpGt: "setg", ast.OpGe: "setge",
}

func (g *Generator) genBinary(b *ast.Binary) error {
	switch b.Op {
	case ast.OpAnd:
		return g.genShortCircuit(b, true)
	case ast.OpOr:
		return g.genShortCircuit(b, false)
	}

	if err := g.genExpr(b.Left); err != nil {
		return err
	}
	g.w.EmitLine(asmwriter.Text, "push rax")
	if err := g.genExpr(b.Right); err != nil {
		return err
	}
	// lhs is now on the stack, rhs in rax.
	g.w.EmitLine(asmwriter.Text, "pop rcx") // rcx = lhs, rax = rhs

	switch b.Op {
	case ast.OpAdd:
		g.w.EmitLine(asmwriter.Text, "add rax, rcx")
	case ast.OpSub:
		g.w.EmitLine(asmwriter.Text, "sub rcx, rax")
		g.w.EmitLine(asmwriter.Text, "mov rax, rcx")
	case ast.OpMul:
		g.w.EmitLine(asmwriter.Text, "imul rax, rcx")
	case ast.OpDiv:
		// Dividend must be in rax, divisor elsewhere: swap so lhs ends up in
		// rax before sign-extending into rdx:rax for idiv.
		g.w.EmitLine(asmwriter.Text, "xchg rax, rcx")
		g.w.EmitLine(asmwriter.Text, "cqo")
		g.w.EmitLine(asmwriter.Text, "idiv rcx")
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		g.w.EmitLine(asmwriter.Text, "cmp rcx, rax")
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("%s al", setccByOp[b.Op]))
		g.w.EmitLine(asmwriter.Text, "movzx rax, al")
	default:
		return fmt.Errorf("codegen: unhandled binary operator %q", b.Op)
	}
	return nil
}

// genShortCircuit lowers && (isAnd) or || per §4.5: the right operand is only
// evaluated when the left one doesn't already decide the result.
func (g *Generator) genShortCircuit(b *ast.Binary, isAnd bool) error {
	if err := g.genExpr(b.Left); err != nil {
		return err
	}
	g.w.EmitLine(asmwriter.Text, "test rax, rax")

	n := g.w.NewLabel("sc")
	end := n + "_end"

	if isAnd {
		falseLabel := n + "_false"
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jz %s", falseLabel))
		if err := g.genExpr(b.Right); err != nil {
			return err
		}
		g.w.EmitLine(asmwriter.Text, "test rax, rax")
		g.w.EmitLine(asmwriter.Text, "setne al")
		g.w.EmitLine(asmwriter.Text, "movzx rax, al")
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jmp %s", end))
		g.w.EmitLabel(asmwriter.Text, falseLabel)
		g.w.EmitLine(asmwriter.Text, "xor rax, rax")
		g.w.EmitLabel(asmwriter.Text, end)
		return nil
	}

	trueLabel := n + "_true"
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jnz %s", trueLabel))
	if err := g.genExpr(b.Right); err != nil {
		return err
	}
	g.w.EmitLine(asmwriter.Text, "test rax, rax")
	g.w.EmitLine(asmwriter.Text, "setne al")
	g.w.EmitLine(asmwriter.Text, "movzx rax, al")
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("jmp %s", end))
	g.w.EmitLabel(asmwriter.Text, trueLabel)
	g.w.EmitLine(asmwriter.Text, "mov rax, 1")
	g.w.EmitLabel(asmwriter.Text, end)
	return nil
}

// genCall evaluates arguments left to right (so any observable side effects run
// in program order) but lands each one directly in its final call-frame slot,
// which produces the identical stack layout that evaluating right-to-left and
// pushing immediately would: a0 ends up at [rbp+16] in the callee, a1 at
// [rbp+24], and so on.
func (g *Generator) genCall(c *ast.Call) error {
	k := len(c.Args)
	if k > 0 {
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("sub rsp, %d", 8*k))
		for i, arg := range c.Args {
			if err := g.genExpr(arg); err != nil {
				return err
			}
			g.w.EmitLine(asmwriter.Text, fmt.Sprintf("mov [rsp+%d], rax", 8*i))
		}
	}
	g.w.EmitLine(asmwriter.Text, fmt.Sprintf("call %s", c.Name))
	if k > 0 {
		g.w.EmitLine(asmwriter.Text, fmt.Sprintf("add rsp, %d", 8*k))
	}
	return nil
}
