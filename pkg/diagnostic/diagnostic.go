// Package diagnostic defines the two error kinds the Toy compiler can raise,
// modeled on the categorized, line/column-carrying diagnostics of
// j-alexander3375-Lotus's diagnostics.go, narrowed to the two kinds spec'd
// for this compiler: ParseError and CompileError. There are no warnings —
// Toy's core has nothing worth warning about that isn't a hard error.
package diagnostic

import "fmt"

// ParseError is raised by the lexer or parser on the first malformed
// construct encountered; there is no error recovery, so a run ever produces
// at most one.
type ParseError struct {
	Line, Col int
	Message   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// Category enumerates the CompileError kinds named in spec.md §7.
type Category string

const (
	ErrReturnOutsideSub    Category = "return-outside-subroutine"
	ErrBreakOutsideLoop    Category = "break-outside-loop"
	ErrContinueOutsideLoop Category = "continue-outside-loop"
	ErrUndefinedSub        Category = "undefined-subroutine"
	ErrStringOutsidePrint  Category = "string-outside-print"
	ErrArityMismatch       Category = "arity-mismatch"
)

// CompileError is raised by the scope analyzer or the code generator once the
// program has parsed but violates one of the semantic invariants in spec.md §3/§4.
type CompileError struct {
	Category  Category
	Line, Col int
	Message   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Col, e.Category, e.Message)
}
