package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"github.com/example/toycc/pkg/ast"
	"github.com/example/toycc/pkg/codegen"
	"github.com/example/toycc/pkg/diagnostic"
	"github.com/example/toycc/pkg/parser"
	"github.com/example/toycc/pkg/scope"
)

var Description = strings.ReplaceAll(`
toycc compiles a single Toy source file into freestanding x86-64 Linux
assembly in NASM syntax. The output must be assembled and linked against an
object exposing print_int and print_newline before it can run.
`, "\n", " ")

var Toycc = cli.New(Description).
	WithArg(cli.NewArg("source", "The Toy source (.toy) file to compile")).
	WithArg(cli.NewArg("output", "Where to write the generated NASM (.asm) file")).
	WithOption(cli.NewOption("tokens", "Print the parsed AST instead of compiling it").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "ERROR: expected exactly two arguments: <source.toy> <output.asm>")
		return 1
	}
	source, output := args[0], args[1]

	content, err := os.ReadFile(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to open input file: %s\n", err)
		return 1
	}

	program, err := parser.NewParser(string(content)).Parse()
	if err != nil {
		reportDiagnostic(err)
		return 1
	}

	if _, enabled := options["tokens"]; enabled {
		dumpAST(program)
		return 0
	}

	scopes, err := scope.Analyze(program)
	if err != nil {
		reportDiagnostic(err)
		return 1
	}

	assembly, err := codegen.New(scopes).Generate(program)
	if err != nil {
		reportDiagnostic(err)
		return 1
	}

	if err := os.WriteFile(output, []byte(assembly), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to write output file: %s\n", err)
		return 1
	}

	return 0
}

// reportDiagnostic prints err tagged by its diagnostic kind, matching §6's
// parse-error-vs-compile-error distinction in the driver's output.
func reportDiagnostic(err error) {
	switch e := err.(type) {
	case *diagnostic.ParseError:
		fmt.Fprintf(os.Stderr, "parse error: %s\n", e)
	case *diagnostic.CompileError:
		fmt.Fprintf(os.Stderr, "compile error: %s\n", e)
	default:
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	}
}

func dumpAST(program *ast.Program) {
	for _, stmt := range program.Stmts {
		fmt.Println(ast.StmtString(stmt))
	}
}

func main() { os.Exit(Toycc.Run(os.Args, os.Stdout)) }
