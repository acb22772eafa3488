package parser

import (
	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar
//
// This section defines the Parser Combinators for the whole Toy grammar (spec §4.1),
// following the same shape as its-hmny-nand2tetris's pkg/asm and pkg/vm grammars:
// one pXxx var per production, composed with ast.And/OrdChoice/Kleene/Maybe.
//
// Three productions are genuinely recursive (expr through its precedence chain down
// to primary, unary through its own operand, and stmt through if/while/sub bodies
// back to stmt itself) which Go's var-initialization order can't express directly.
// All three are broken with a
// forward-declared var plus a deferred wrapper (see deferred below), resolved once
// in init() after every other production has been built.

var toyAST = pc.NewAST("toy_program", 0)

var (
	pExpr  pc.Parser // assigned in init(), see grammar below
	pStmt  pc.Parser // assigned in init(), see grammar below
	pUnary pc.Parser // assigned in init(), see grammar below: unary refers to itself
)

// deferred lets a production reference a not-yet-initialized package-level parser
// var. The closure only dereferences p at parse time, by which point init() has
// already assigned it — this is the same indirection a recursive-descent parser
// gets for free from ordinary function calls, expressed in combinator terms.
func deferred(p *pc.Parser) pc.Parser {
	return func(s pc.Scanner) (pc.Queryable, pc.Scanner) { return (*p)(s) }
}

// ----------------------------------------------------------------------------
// Lexical atoms

var (
	pIdent = pc.Token(`[A-Za-z_][A-Za-z0-9_]*`, "IDENT")
	pInt   = pc.Int()
	// No escape processing beyond the closing quote, per spec §6.
	pStringLit = pc.Token(`"[^"\n]*"`, "STRING")

	pKwIf       = pc.Token(`if\b`, "IF")
	pKwElse     = pc.Token(`else\b`, "ELSE")
	pKwWhile    = pc.Token(`while\b`, "WHILE")
	pKwPrint    = pc.Token(`print\b`, "PRINT")
	pKwSub      = pc.Token(`sub\b`, "SUB")
	pKwReturn   = pc.Token(`return\b`, "RETURN")
	pKwBreak    = pc.Token(`break\b`, "BREAK")
	pKwContinue = pc.Token(`continue\b`, "CONTINUE")

	pSemi   = pc.Atom(";", "SEMI")
	pComma  = pc.Atom(",", "COMMA")
	pLBrace = pc.Atom("{", "LBRACE")
	pRBrace = pc.Atom("}", "RBRACE")
	pLParen = pc.Atom("(", "LPAREN")
	pRParen = pc.Atom(")", "RPAREN")
	pAssign = pc.Atom("=", "ASSIGN")

	// Longer lexemes are listed before their prefixes, same rationale as the
	// teacher's pComp/pDest ordering in pkg/asm/parsing.go.
	pCmpOp = toyAST.OrdChoice("cmp_op", nil,
		pc.Atom("==", "EQ"), pc.Atom("!=", "NE"),
		pc.Atom("<=", "LE"), pc.Atom(">=", "GE"),
		pc.Atom("<", "LT"), pc.Atom(">", "GT"),
	)
	pAddOp = toyAST.OrdChoice("add_op", nil, pc.Atom("+", "PLUS"), pc.Atom("-", "MINUS"))
	pMulOp = toyAST.OrdChoice("mul_op", nil, pc.Atom("*", "STAR"), pc.Atom("/", "SLASH"))
	pAndOp = pc.Atom("&&", "ANDAND")
	pOrOp  = pc.Atom("||", "OROR")
	pUOp   = toyAST.OrdChoice("unary_op", nil, pc.Atom("-", "NEG"), pc.Atom("!", "NOT"))
)

// ----------------------------------------------------------------------------
// Expressions, low precedence to high: || < && < comparison < +- < */ < unary < primary

var (
	pCall = toyAST.And("call", nil,
		pIdent, pLParen, toyAST.Kleene("args", nil, deferred(&pExpr), pComma), pRParen,
	)

	pPrimary = toyAST.OrdChoice("primary", nil,
		pInt,
		pCall, // tried before a bare identifier so "f(x)" isn't swallowed as just "f"
		pIdent,
		toyAST.And("paren_expr", nil, pLParen, deferred(&pExpr), pRParen),
	)

	pMulExpr = toyAST.And("mul_expr", nil,
		deferred(&pUnary), toyAST.Kleene("mul_rest", nil, toyAST.And("mul_tail", nil, pMulOp, deferred(&pUnary))),
	)
	pAddExpr = toyAST.And("add_expr", nil,
		pMulExpr, toyAST.Kleene("add_rest", nil, toyAST.And("add_tail", nil, pAddOp, pMulExpr)),
	)
	// Comparison does not chain: at most one CMPOP is consumed.
	pCmpExpr = toyAST.And("cmp_expr", nil,
		pAddExpr, toyAST.Maybe("cmp_tail", nil, toyAST.And("cmp_rhs", nil, pCmpOp, pAddExpr)),
	)
	pAndExpr = toyAST.And("and_expr", nil,
		pCmpExpr, toyAST.Kleene("and_rest", nil, toyAST.And("and_tail", nil, pAndOp, pCmpExpr)),
	)
	pOrExpr = toyAST.And("or_expr", nil,
		pAndExpr, toyAST.Kleene("or_rest", nil, toyAST.And("or_tail", nil, pOrOp, pAndExpr)),
	)
)

// ----------------------------------------------------------------------------
// Statements

var (
	pAssignStmt = toyAST.And("assign_stmt", nil, pIdent, pAssign, deferred(&pExpr), pSemi)

	pPrintStmt = toyAST.And("print_stmt", nil,
		pKwPrint, toyAST.OrdChoice("print_arg", nil, pStringLit, deferred(&pExpr)), pSemi,
	)

	pIfStmt = toyAST.And("if_stmt", nil,
		pKwIf, deferred(&pExpr), pLBrace, toyAST.Kleene("then_block", nil, deferred(&pStmt)), pRBrace,
		toyAST.Maybe("else_clause", nil,
			toyAST.And("else_block", nil, pKwElse, pLBrace, toyAST.Kleene("stmts", nil, deferred(&pStmt)), pRBrace),
		),
	)

	pWhileStmt = toyAST.And("while_stmt", nil,
		pKwWhile, deferred(&pExpr), pLBrace, toyAST.Kleene("body", nil, deferred(&pStmt)), pRBrace,
	)

	pBreakStmt    = toyAST.And("break_stmt", nil, pKwBreak, pSemi)
	pContinueStmt = toyAST.And("continue_stmt", nil, pKwContinue, pSemi)

	pReturnStmt = toyAST.And("return_stmt", nil,
		pKwReturn, toyAST.Maybe("value", nil, deferred(&pExpr)), pSemi,
	)

	pSubDef = toyAST.And("sub_def", nil,
		pKwSub, pIdent, pLParen, toyAST.Kleene("params", nil, pIdent, pComma), pRParen,
		pLBrace, toyAST.Kleene("body", nil, deferred(&pStmt)), pRBrace,
	)

	pExprStmt = toyAST.And("expr_stmt", nil, pCall, pSemi)
)

var pProgram = toyAST.ManyUntil("program", nil,
	toyAST.OrdChoice("stmt", nil,
		pSubDef, pIfStmt, pWhileStmt, pBreakStmt, pContinueStmt, pReturnStmt, pPrintStmt, pAssignStmt, pExprStmt,
	),
	pc.End(),
)

func init() {
	pExpr = pOrExpr
	pUnary = toyAST.OrdChoice("unary", nil,
		toyAST.And("unary_expr", nil, pUOp, deferred(&pUnary)),
		pPrimary,
	)
	pStmt = toyAST.OrdChoice("stmt", nil,
		pSubDef, pIfStmt, pWhileStmt, pBreakStmt, pContinueStmt, pReturnStmt, pPrintStmt, pAssignStmt, pExprStmt,
	)
}
