// Package asmwriter is the buffered, multi-section NASM emitter the code
// generator writes through. It owns nothing about Toy semantics — only the
// mechanics of accumulating lines per section, indentation, and label minting —
// mirroring the separation its-hmny-nand2tetris draws between pkg/hack's
// CodeGenerator (semantics) and the string building it does line by line.
package asmwriter

import (
	"fmt"
	"strings"
)

// Section names the three NASM sections this compiler ever emits into.
type Section string

const (
	Data Section = "data"
	BSS  Section = "bss"
	Text Section = "text"
)

// Writer accumulates instructions across the three sections and mints unique
// labels on request.
type Writer struct {
	lines    map[Section][]string
	counters map[string]int
}

// New returns an empty Writer.
func New() *Writer {
	return &Writer{
		lines:    map[Section][]string{Data: {}, BSS: {}, Text: {}},
		counters: map[string]int{},
	}
}

// EmitLine appends one indented instruction line to section.
func (w *Writer) EmitLine(section Section, text string) {
	w.lines[section] = append(w.lines[section], "  "+text)
}

// EmitLabel appends an unindented label definition to section.
func (w *Writer) EmitLabel(section Section, name string) {
	w.lines[section] = append(w.lines[section], name+":")
}

// EmitComment appends an indented comment line to section.
func (w *Writer) EmitComment(section Section, text string) {
	w.lines[section] = append(w.lines[section], "  ; "+text)
}

// NewLabel returns a fresh "prefix.N" label, N starting at 0 and monotonically
// increasing per distinct prefix for the lifetime of this Writer.
func (w *Writer) NewLabel(prefix string) string {
	n := w.counters[prefix]
	w.counters[prefix] = n + 1
	return fmt.Sprintf("%s.%d", prefix, n)
}

// Render concatenates the three sections, in order, each preceded by its
// "section .name" header, producing the final assembly text.
func (w *Writer) Render() string {
	var b strings.Builder
	for _, sec := range []Section{Data, BSS, Text} {
		fmt.Fprintf(&b, "section .%s\n", sec)
		for _, line := range w.lines[sec] {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
