// Package parser turns Toy source text into pkg/ast's in-memory syntax tree.
// It follows the two-phase shape of its-hmny-nand2tetris's pkg/asm.Parser:
// fromSource drives a goparsec grammar to build a generic, traversable AST, and
// the builder in fromast.go walks that tree into the package's own typed nodes.
package parser

import (
	"fmt"
	"os"
	"strings"

	pc "github.com/prataprc/goparsec"

	"github.com/example/toycc/pkg/ast"
	"github.com/example/toycc/pkg/diagnostic"
	"github.com/example/toycc/pkg/lexer"
)

// Parser parses a single Toy source string.
type Parser struct {
	source string
}

// NewParser returns a Parser over the given Toy source text.
func NewParser(source string) *Parser {
	return &Parser{source: source}
}

// Parse runs the full text-to-AST pipeline, returning a *diagnostic.ParseError on
// the first malformed construct. There is no error recovery.
func (p *Parser) Parse() (*ast.Program, error) {
	stripped := lexer.StripComments(p.source)

	root, ok := p.fromSource(stripped)
	if !ok || root == nil {
		return nil, p.unparsedError(stripped)
	}

	b := &builder{pos: newPosTracker(stripped)}
	prog, err := b.fromProgram(root)
	if err != nil {
		return nil, p.wrapError(stripped, b.pos.offset, err)
	}

	return prog, nil
}

// fromSource drives the grammar in grammar.go over source, mirroring
// pkg/asm.Parser.FromSource.
func (p *Parser) fromSource(source string) (pc.Queryable, bool) {
	if os.Getenv("TOYCC_PARSEC_DEBUG") != "" {
		toyAST.SetDebug()
	}

	root, _ := toyAST.Parsewith(pProgram, pc.NewScanner([]byte(source)))

	if os.Getenv("TOYCC_PRINT_AST") != "" && root != nil {
		toyAST.Prettyprint()
	}

	return root, root != nil
}

// unparsedError is raised when the grammar can't even produce a root node -
// typically a completely empty or garbage input.
func (p *Parser) unparsedError(source string) error {
	line, col := 1, 1
	if len(strings.TrimSpace(source)) == 0 {
		return &diagnostic.ParseError{Line: line, Col: col, Message: "empty program"}
	}
	return &diagnostic.ParseError{Line: line, Col: col, Message: "could not parse program"}
}

// wrapError attaches a best-effort position (the parser's cursor at the point of
// failure) to a conversion error surfaced out of the FromAST walk.
func (p *Parser) wrapError(source string, offset int, err error) error {
	line, col := 1, 1
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &diagnostic.ParseError{Line: line, Col: col, Message: fmt.Sprintf("%s", err)}
}
