package parser

import (
	"fmt"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"

	"github.com/example/toycc/pkg/ast"
)

// This section mirrors its-hmny-nand2tetris's pkg/asm.Parser.FromAST: a DFS over the
// pc.Queryable tree that goparsec hands back, converting each subtree into the
// package's own in-memory AST so the rest of the compiler never touches the parsing
// library's types. Every node is matched positionally, exactly the way
// pkg/asm/parsing.go pulls inst.GetChildren()[1] out of an "a-inst" node: our
// grammar.go productions are And()s with a fixed, known shape, so child index is a
// reliable as a field name.
//
// goparsec's OrdChoice and Maybe are transparent: on success the node you get back
// is whatever the matched alternative actually produced, not a wrapper named after
// the choice/maybe itself. So "did this Maybe match" is tested the same way
// HandleCInst tests it: by checking the child's GetName() against the wrapped
// production's own name.

// posTracker assigns source positions to AST nodes built from a Queryable tree,
// which carries no position info of its own. Parsing consumes the source strictly
// left to right, so a forward-only cursor plus a search for each token's text is
// enough to recover line/column for every node without the grammar needing to
// carry positions through every combinator.
type posTracker struct {
	source     string
	offset     int
	line, col  int
}

func newPosTracker(source string) *posTracker {
	return &posTracker{source: source, line: 1, col: 1}
}

// consume locates text at or after the cursor, returns the position it starts at,
// and advances the cursor past it.
func (t *posTracker) consume(text string) ast.Position {
	idx := strings.Index(t.source[t.offset:], text)
	if idx < 0 {
		// Shouldn't happen: every value we're asked to locate came from this same
		// source. Fall back to the current cursor rather than panicking.
		return ast.Position{Line: t.line, Col: t.col}
	}
	t.advance(idx)
	pos := ast.Position{Line: t.line, Col: t.col}
	t.advance(len(text))
	return pos
}

func (t *posTracker) advance(n int) {
	for i := 0; i < n; i++ {
		if t.source[t.offset+i] == '\n' {
			t.line++
			t.col = 1
		} else {
			t.col++
		}
	}
	t.offset += n
}

// builder threads the posTracker through the whole conversion the way Parser
// threads no state at all in the teacher's asm package — ours needs the tracker,
// so it's a small receiver struct instead of a bag of free functions.
type builder struct{ pos *posTracker }

func (b *builder) fromProgram(root pc.Queryable) (*ast.Program, error) {
	if root == nil {
		return nil, fmt.Errorf("empty parse result")
	}
	prog := &ast.Program{}
	for _, child := range root.GetChildren() {
		stmt, err := b.fromStmt(child)
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

func (b *builder) fromStmt(node pc.Queryable) (ast.Stmt, error) {
	switch node.GetName() {
	case "sub_def":
		return b.fromSubDef(node)
	case "if_stmt":
		return b.fromIf(node)
	case "while_stmt":
		return b.fromWhile(node)
	case "break_stmt":
		pos := b.pos.consume(node.GetChildren()[0].GetValue())
		b.pos.consume(node.GetChildren()[1].GetValue())
		return &ast.Break{Position: pos}, nil
	case "continue_stmt":
		pos := b.pos.consume(node.GetChildren()[0].GetValue())
		b.pos.consume(node.GetChildren()[1].GetValue())
		return &ast.Continue{Position: pos}, nil
	case "return_stmt":
		return b.fromReturn(node)
	case "print_stmt":
		return b.fromPrint(node)
	case "assign_stmt":
		return b.fromAssign(node)
	case "expr_stmt":
		return b.fromExprStmt(node)
	default:
		return nil, fmt.Errorf("unrecognized statement node %q", node.GetName())
	}
}

func (b *builder) fromBlock(kleeneNode pc.Queryable) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for _, child := range kleeneNode.GetChildren() {
		stmt, err := b.fromStmt(child)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (b *builder) fromSubDef(node pc.Queryable) (ast.Stmt, error) {
	children := node.GetChildren()
	pos := b.pos.consume(children[0].GetValue()) // "sub"
	name := children[1].GetValue()
	b.pos.consume(name)
	b.pos.consume("(")

	var params []string
	for _, p := range children[3].GetChildren() {
		params = append(params, p.GetValue())
		b.pos.consume(p.GetValue())
	}
	b.pos.consume(")")
	b.pos.consume("{")

	body, err := b.fromBlock(children[6])
	if err != nil {
		return nil, err
	}
	b.pos.consume("}")

	return &ast.SubDef{Position: pos, Name: name, Params: params, Body: body}, nil
}

func (b *builder) fromIf(node pc.Queryable) (ast.Stmt, error) {
	children := node.GetChildren()
	pos := b.pos.consume(children[0].GetValue()) // "if"

	cond, err := b.fromExpr(children[1])
	if err != nil {
		return nil, err
	}
	b.pos.consume("{")
	then, err := b.fromBlock(children[3])
	if err != nil {
		return nil, err
	}
	b.pos.consume("}")

	var elseStmts []ast.Stmt
	elseNode := children[5]
	if elseNode.GetName() == "else_block" {
		elseChildren := elseNode.GetChildren()
		b.pos.consume(elseChildren[0].GetValue()) // "else"
		b.pos.consume("{")
		elseStmts, err = b.fromBlock(elseChildren[2])
		if err != nil {
			return nil, err
		}
		b.pos.consume("}")
	}

	return &ast.If{Position: pos, Cond: cond, Then: then, Else: elseStmts}, nil
}

func (b *builder) fromWhile(node pc.Queryable) (ast.Stmt, error) {
	children := node.GetChildren()
	pos := b.pos.consume(children[0].GetValue()) // "while"

	cond, err := b.fromExpr(children[1])
	if err != nil {
		return nil, err
	}
	b.pos.consume("{")
	body, err := b.fromBlock(children[3])
	if err != nil {
		return nil, err
	}
	b.pos.consume("}")

	return &ast.While{Position: pos, Cond: cond, Body: body}, nil
}

func (b *builder) fromReturn(node pc.Queryable) (ast.Stmt, error) {
	children := node.GetChildren()
	pos := b.pos.consume(children[0].GetValue()) // "return"

	var value ast.Expr
	if valNode := children[1]; isExprNode(valNode) {
		v, err := b.fromExpr(valNode)
		if err != nil {
			return nil, err
		}
		value = v
	}
	b.pos.consume(";")

	return &ast.Return{Position: pos, Expr: value}, nil
}

func (b *builder) fromPrint(node pc.Queryable) (ast.Stmt, error) {
	children := node.GetChildren()
	pos := b.pos.consume(children[0].GetValue()) // "print"

	arg := children[1]
	var value ast.Expr
	if arg.GetName() == "STRING" {
		raw := arg.GetValue()
		strPos := b.pos.consume(raw)
		value = &ast.StringLiteral{Position: strPos, Value: strings.Trim(raw, `"`)}
	} else {
		v, err := b.fromExpr(arg)
		if err != nil {
			return nil, err
		}
		value = v
	}
	b.pos.consume(";")

	return &ast.Print{Position: pos, Value: value}, nil
}

func (b *builder) fromAssign(node pc.Queryable) (ast.Stmt, error) {
	children := node.GetChildren()
	name := children[0].GetValue()
	pos := b.pos.consume(name)
	b.pos.consume("=")

	value, err := b.fromExpr(children[2])
	if err != nil {
		return nil, err
	}
	b.pos.consume(";")

	return &ast.Assign{Position: pos, Name: name, Expr: value}, nil
}

func (b *builder) fromExprStmt(node pc.Queryable) (ast.Stmt, error) {
	call, err := b.fromCall(node.GetChildren()[0])
	if err != nil {
		return nil, err
	}
	b.pos.consume(";")
	return &ast.ExprStmt{Position: call.Position, Call: call}, nil
}

// isExprNode reports whether a Maybe("value", expr) slot actually matched. The
// same test HandleCInst uses on "assign"/"goto": a matched expression is the
// "or_expr" node pExpr produces, so any other name means the Maybe didn't match.
func isExprNode(n pc.Queryable) bool {
	switch n.GetName() {
	case "or_expr":
		return true
	default:
		return false
	}
}

// ----------------------------------------------------------------------------
// Expressions

func (b *builder) fromExpr(node pc.Queryable) (ast.Expr, error) {
	return b.fromOrExpr(node)
}

func (b *builder) fromOrExpr(node pc.Queryable) (ast.Expr, error) {
	children := node.GetChildren()
	left, err := b.fromAndExpr(children[0])
	if err != nil {
		return nil, err
	}
	for _, tail := range children[1].GetChildren() {
		tc := tail.GetChildren()
		pos := b.pos.consume(tc[0].GetValue())
		right, err := b.fromAndExpr(tc[1])
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: pos, Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (b *builder) fromAndExpr(node pc.Queryable) (ast.Expr, error) {
	children := node.GetChildren()
	left, err := b.fromCmpExpr(children[0])
	if err != nil {
		return nil, err
	}
	for _, tail := range children[1].GetChildren() {
		tc := tail.GetChildren()
		pos := b.pos.consume(tc[0].GetValue())
		right, err := b.fromCmpExpr(tc[1])
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: pos, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var cmpOps = map[string]ast.BinaryOp{
	"==": ast.OpEq, "!=": ast.OpNe,
	"<=": ast.OpLe, ">=": ast.OpGe,
	"<": ast.OpLt, ">": ast.OpGt,
}

func (b *builder) fromCmpExpr(node pc.Queryable) (ast.Expr, error) {
	children := node.GetChildren()
	left, err := b.fromAddExpr(children[0])
	if err != nil {
		return nil, err
	}
	tail := children[1]
	if tail.GetName() != "cmp_rhs" {
		return left, nil
	}
	tc := tail.GetChildren()
	opText := tc[0].GetValue()
	pos := b.pos.consume(opText)
	right, err := b.fromAddExpr(tc[1])
	if err != nil {
		return nil, err
	}
	op, ok := cmpOps[opText]
	if !ok {
		return nil, fmt.Errorf("unrecognized comparison operator %q", opText)
	}
	return &ast.Binary{Position: pos, Op: op, Left: left, Right: right}, nil
}

func (b *builder) fromAddExpr(node pc.Queryable) (ast.Expr, error) {
	children := node.GetChildren()
	left, err := b.fromMulExpr(children[0])
	if err != nil {
		return nil, err
	}
	for _, tail := range children[1].GetChildren() {
		tc := tail.GetChildren()
		opText := tc[0].GetValue()
		pos := b.pos.consume(opText)
		right, err := b.fromMulExpr(tc[1])
		if err != nil {
			return nil, err
		}
		op := ast.OpAdd
		if opText == "-" {
			op = ast.OpSub
		}
		left = &ast.Binary{Position: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (b *builder) fromMulExpr(node pc.Queryable) (ast.Expr, error) {
	children := node.GetChildren()
	left, err := b.fromUnary(children[0])
	if err != nil {
		return nil, err
	}
	for _, tail := range children[1].GetChildren() {
		tc := tail.GetChildren()
		opText := tc[0].GetValue()
		pos := b.pos.consume(opText)
		right, err := b.fromUnary(tc[1])
		if err != nil {
			return nil, err
		}
		op := ast.OpMul
		if opText == "/" {
			op = ast.OpDiv
		}
		left = &ast.Binary{Position: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (b *builder) fromUnary(node pc.Queryable) (ast.Expr, error) {
	if node.GetName() != "unary_expr" {
		return b.fromPrimary(node)
	}
	children := node.GetChildren()
	opText := children[0].GetValue()
	pos := b.pos.consume(opText)
	operand, err := b.fromUnary(children[1])
	if err != nil {
		return nil, err
	}
	op := ast.OpNeg
	if opText == "!" {
		op = ast.OpNot
	}
	return &ast.Unary{Position: pos, Op: op, Operand: operand}, nil
}

func (b *builder) fromPrimary(node pc.Queryable) (ast.Expr, error) {
	switch node.GetName() {
	case "INT":
		value, err := strconv.ParseInt(node.GetValue(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q: %w", node.GetValue(), err)
		}
		pos := b.pos.consume(node.GetValue())
		return &ast.IntLiteral{Position: pos, Value: value}, nil

	case "call":
		return b.fromCall(node)

	case "IDENT":
		name := node.GetValue()
		pos := b.pos.consume(name)
		return &ast.Variable{Position: pos, Name: name}, nil

	case "paren_expr":
		children := node.GetChildren()
		b.pos.consume("(")
		inner, err := b.fromExpr(children[1])
		if err != nil {
			return nil, err
		}
		b.pos.consume(")")
		return inner, nil

	default:
		return nil, fmt.Errorf("unrecognized expression node %q", node.GetName())
	}
}

func (b *builder) fromCall(node pc.Queryable) (*ast.Call, error) {
	children := node.GetChildren()
	name := children[0].GetValue()
	pos := b.pos.consume(name)
	b.pos.consume("(")

	var args []ast.Expr
	for _, a := range children[2].GetChildren() {
		arg, err := b.fromExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	b.pos.consume(")")

	return &ast.Call{Position: pos, Name: name, Args: args}, nil
}
