package template

import "strings"

// Script returns the generated Starlark program.
func (g *GeneratedSource) Script() string {
	var b strings.Builder
	for _, l := range g.Lines {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Lookup maps a 1-based generated line to its template line.
// It returns false if the generated line is out of range.
// A template line of 0 means the generated line has no template origin.
func (g *GeneratedSource) Lookup(generated int) (int, bool) {
	if generated < 1 || generated > len(g.Lines) {
		return 0, false
	}
	return g.Lines[generated-1].SourceLine, true
}

// SourceText returns the text of a 1-based template line, or "".
func (g *GeneratedSource) SourceText(line int) string {
	if line < 1 || line > len(g.Source) {
		return ""
	}
	return g.Source[line-1].Raw
}

// Position maps a 1-based generated line to a template position.
// ok is false when the line has no template origin.
func (g *GeneratedSource) Position(generated int) (pos Position, ok bool) {
	src, found := g.Lookup(generated)
	if !found || src == 0 {
		return Position{File: g.Filename}, false
	}
	return Position{File: g.Filename, Line: src}, true
}
