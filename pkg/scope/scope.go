// Package scope walks a parsed program and works out everything the code
// generator needs to know before it can emit a single instruction: which names
// live in which of the two scopes, what stack offset each gets, which string
// literals need interning, and which subroutines exist and with what arity.
//
// The shape mirrors its-hmny-nand2tetris's pkg/jack.ScopeTable (one map built per
// activation record, resolved by name), simplified to the two flat scopes Toy
// actually has: there is no nested-block scoping to chase.
package scope

import (
	"fmt"

	"github.com/example/toycc/pkg/ast"
	"github.com/example/toycc/pkg/diagnostic"
)

// Map assigns every variable name in one scope (global or one subroutine body)
// its frame-relative byte offset.
type Map struct {
	Offsets map[string]int
	Order   []string // first-appearance order, used to size the frame
}

func newMap() *Map { return &Map{Offsets: map[string]int{}} }

func (m *Map) declareLocal(name string) {
	if _, ok := m.Offsets[name]; ok {
		return
	}
	idx := len(m.Order)
	m.Offsets[name] = -(8 * (idx + 1))
	m.Order = append(m.Order, name)
}

// Lookup returns the frame offset for name and whether it was found.
func (m *Map) Lookup(name string) (int, bool) {
	off, ok := m.Offsets[name]
	return off, ok
}

// Subroutine is the frame layout and signature for one SubDef.
type Subroutine struct {
	Def     *ast.SubDef
	Params  *Map // parameter offsets, rbp+16+8*j
	Locals  *Map // local variable offsets, -(8*(i+1))
	Arity   int
}

// Program is the full result of analyzing a parsed program: the global frame,
// one Subroutine per SubDef, and the string intern table.
type Program struct {
	Global      *Map
	Subroutines map[string]*Subroutine
	Strings     *Interner
}

// Interner assigns each distinct string literal text a const.N label in
// first-appearance order. Grounded on its-hmny-nand2tetris's jack.Lowerer
// sorting approach to determinism: insertion order is the only order, so two
// runs over the same source always produce the same labels.
type Interner struct {
	labels map[string]string
	order  []string
}

func newInterner() *Interner { return &Interner{labels: map[string]string{}} }

func (in *Interner) intern(text string) string {
	if label, ok := in.labels[text]; ok {
		return label
	}
	label := fmt.Sprintf("const.%d", len(in.order))
	in.labels[text] = label
	in.order = append(in.order, text)
	return label
}

// Label returns the const.N label for text, and whether it was interned at all.
func (in *Interner) Label(text string) (string, bool) {
	label, ok := in.labels[text]
	return label, ok
}

// Texts returns every interned string in insertion order, matching the order
// their const.N labels were minted.
func (in *Interner) Texts() []string { return in.order }

// Analyze walks prog in two passes, producing the global scope map, one Subroutine per
// top-level SubDef (with its own parameter and local maps), and the program-wide
// string intern table. It returns a *diagnostic.CompileError for any
// string-literal-outside-print, undefined-subroutine-call, or arity-mismatch
// violation; Return-outside-subroutine and break/continue-outside-loop are
// checked later by the code generator, which already tracks that context as it
// emits.
func Analyze(prog *ast.Program) (*Program, error) {
	result := &Program{
		Global:      newMap(),
		Subroutines: map[string]*Subroutine{},
		Strings:     newInterner(),
	}

	// Pass 1: register every subroutine's signature before checking any call,
	// since calls may textually precede the definitions they invoke.
	for _, stmt := range prog.Stmts {
		sub, ok := stmt.(*ast.SubDef)
		if !ok {
			continue
		}
		params := newMap()
		for j, p := range sub.Params {
			params.Offsets[p] = 16 + 8*j
			params.Order = append(params.Order, p)
		}
		result.Subroutines[sub.Name] = &Subroutine{
			Def:    sub,
			Params: params,
			Locals: newMap(),
			Arity:  len(sub.Params),
		}
	}

	// Pass 2: walk the program in source order, top-level statements against
	// the global scope and each SubDef's body against its own scope, right
	// where the SubDef appears. This keeps both the global/local frame offsets
	// and the const.N string labels in true textual first-appearance order,
	// and makes the walk's outcome independent of Go's randomized map
	// iteration order over result.Subroutines.
	a := &analyzer{result: result}
	for _, stmt := range prog.Stmts {
		if sub, ok := stmt.(*ast.SubDef); ok {
			subroutine := result.Subroutines[sub.Name]
			for _, bodyStmt := range subroutine.Def.Body {
				if err := a.walkStmt(bodyStmt, subroutine.Locals, subroutine.Params); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := a.walkStmt(stmt, result.Global, nil); err != nil {
			return nil, err
		}
	}

	return result, nil
}

type analyzer struct{ result *Program }

// walkStmt records every name assigned-or-read in locals (skipping names
// already owned by params, which shadow the scope's own declarations), and
// recurses into nested blocks and expressions.
func (a *analyzer) walkStmt(stmt ast.Stmt, locals, params *Map) error {
	switch s := stmt.(type) {
	case *ast.Assign:
		if params == nil || !hasParam(params, s.Name) {
			locals.declareLocal(s.Name)
		}
		return a.walkExpr(s.Expr, locals, params, false)

	case *ast.Print:
		return a.walkExpr(s.Value, locals, params, true)

	case *ast.If:
		if err := a.walkExpr(s.Cond, locals, params, false); err != nil {
			return err
		}
		for _, st := range s.Then {
			if err := a.walkStmt(st, locals, params); err != nil {
				return err
			}
		}
		for _, st := range s.Else {
			if err := a.walkStmt(st, locals, params); err != nil {
				return err
			}
		}
		return nil

	case *ast.While:
		if err := a.walkExpr(s.Cond, locals, params, false); err != nil {
			return err
		}
		for _, st := range s.Body {
			if err := a.walkStmt(st, locals, params); err != nil {
				return err
			}
		}
		return nil

	case *ast.Break, *ast.Continue:
		return nil

	case *ast.Return:
		if s.Expr != nil {
			return a.walkExpr(s.Expr, locals, params, false)
		}
		return nil

	case *ast.SubDef:
		// Nested sub defs aren't legal per spec (only-at-top-level), but if one
		// reaches here it contributes nothing to the enclosing scope.
		return nil

	case *ast.ExprStmt:
		return a.walkExpr(s.Call, locals, params, false)

	default:
		return fmt.Errorf("scope: unhandled statement %T", stmt)
	}
}

// walkExpr records variable reads, validates calls, and interns/validates
// string literals. allowString is true only directly under a Print.
func (a *analyzer) walkExpr(e ast.Expr, locals, params *Map, allowString bool) error {
	switch v := e.(type) {
	case *ast.IntLiteral:
		return nil

	case *ast.StringLiteral:
		if !allowString {
			return &diagnostic.CompileError{
				Category: diagnostic.ErrStringOutsidePrint,
				Line:     v.Line, Col: v.Col,
				Message: fmt.Sprintf("string literal %q used outside print", v.Value),
			}
		}
		a.result.Strings.intern(v.Value)
		return nil

	case *ast.Variable:
		if params == nil || !hasParam(params, v.Name) {
			locals.declareLocal(v.Name)
		}
		return nil

	case *ast.Binary:
		if err := a.walkExpr(v.Left, locals, params, false); err != nil {
			return err
		}
		return a.walkExpr(v.Right, locals, params, false)

	case *ast.Unary:
		return a.walkExpr(v.Operand, locals, params, false)

	case *ast.Call:
		sub, ok := a.result.Subroutines[v.Name]
		if !ok {
			return &diagnostic.CompileError{
				Category: diagnostic.ErrUndefinedSub,
				Line:     v.Line, Col: v.Col,
				Message: fmt.Sprintf("call to undefined subroutine %q", v.Name),
			}
		}
		if len(v.Args) != sub.Arity {
			return &diagnostic.CompileError{
				Category: diagnostic.ErrArityMismatch,
				Line:     v.Line, Col: v.Col,
				Message: fmt.Sprintf("%q expects %d argument(s), got %d", v.Name, sub.Arity, len(v.Args)),
			}
		}
		for _, arg := range v.Args {
			if err := a.walkExpr(arg, locals, params, false); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("scope: unhandled expression %T", e)
	}
}

func hasParam(params *Map, name string) bool {
	_, ok := params.Offsets[name]
	return ok
}
