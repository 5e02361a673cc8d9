package template

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// indentUnit is one level of generated Starlark indentation.
const indentUnit = "    "

// Transpile converts template source into Starlark source plus its line map.
func Transpile(file, src string) (*GeneratedSource, error) {
	lines, err := NewClassifier(file).Classify(src)
	if err != nil {
		return nil, err
	}
	return NewGenerator(file).Generate(lines)
}

// Generator emits Starlark for classified template lines.
type Generator struct {
	file    string
	tracker *BlockTracker
	out     []GeneratedLine
}

// NewGenerator creates a generator for the named template.
func NewGenerator(file string) *Generator {
	return &Generator{file: file, tracker: NewBlockTracker(file)}
}

// Generate emits the prologue, one or more statements per line, and the epilogue.
func (g *Generator) Generate(lines []Line) (*GeneratedSource, error) {
	g.emit(0, 0, fmt.Sprintf("# Code generated by starp from %s. DO NOT EDIT.", g.file))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch line.Kind {
		case KindText:
			if err := g.text(line); err != nil {
				return nil, err
			}
		case KindStatement, KindBlockTag:
			if err := g.statement(line); err != nil {
				return nil, err
			}
		case KindBlockOpen:
			j := i + 1
			for j < len(lines) && lines[j].Kind == KindRegion {
				j++
			}
			g.region(lines[i+1 : j])
			i = j // skip the closing delimiter
		case KindComment, KindBlockClose, KindRegion:
		}
	}

	if err := g.tracker.Finish(); err != nil {
		return nil, err
	}
	g.emit(0, 0, "_flush()")

	source := make([]SourceLine, len(lines))
	for i, l := range lines {
		source[i] = l.SourceLine
	}
	return &GeneratedSource{Filename: g.file, Lines: g.out, Source: source}, nil
}

// text emits a single output call for all fragments of a text line.
func (g *Generator) text(line Line) error {
	frags, err := ScanSubstitutions(g.file, line)
	if err != nil {
		return err
	}
	if line.Newline {
		if n := len(frags); n > 0 && !frags[n-1].IsExpr {
			frags[n-1].Literal += "\n"
		} else {
			frags = append(frags, Fragment{Literal: "\n", Line: line.Index})
		}
	}

	args := make([]string, len(frags))
	for i, f := range frags {
		if f.IsExpr {
			args[i] = "(" + f.Expr + ")"
		} else {
			args[i] = syntax.Quote(f.Literal, false)
		}
	}

	call := "_emit(" + strings.Join(args, ", ") + ")"
	if g.tracker.InMacro() {
		call = "_out.append(_fmt(" + strings.Join(args, ", ") + "))"
	}
	g.emit(g.tracker.Depth(), line.Index, call)
	g.tracker.Mark()
	return nil
}

// statement places a % line or a one-line <% %> tag.
func (g *Generator) statement(line Line) error {
	p, err := g.tracker.Statement(line, line.Code)
	if err != nil {
		return err
	}
	if p.NeedsPass {
		g.emit(p.Depth+1, 0, "pass")
	}
	if p.Closed != nil && p.Closed.Keyword == "macro" {
		g.emit(p.Depth+1, line.Index, "return _join(_out)")
	}
	if !p.Emit {
		return nil
	}

	code := strings.TrimSpace(line.Code)
	if p.Opened != nil && p.Opened.Keyword == "macro" {
		code = "def" + strings.TrimPrefix(code, "macro")
		g.emit(p.Depth, line.Index, code)
		g.emit(p.Depth+1, line.Index, "_out = []")
		g.tracker.Mark()
		return nil
	}
	g.emit(p.Depth, line.Index, code)
	return nil
}

// region copies the raw lines of a multi-line <% %> block. The block is
// dedented by its smallest code indentation and re-indented to the current
// depth; lines inside triple-quoted strings are copied untouched.
func (g *Generator) region(lines []Line) {
	verbatim := make([]bool, len(lines))
	inTriple := false
	for i, l := range lines {
		verbatim[i] = inTriple
		if (strings.Count(l.Code, `"""`)+strings.Count(l.Code, `'''`))%2 == 1 {
			inTriple = !inTriple
		}
	}

	dedent := -1
	for i, l := range lines {
		stmt := strings.TrimSpace(l.Code)
		if verbatim[i] || stmt == "" || strings.HasPrefix(stmt, "#") {
			continue
		}
		if dedent < 0 || l.Indent < dedent {
			dedent = l.Indent
		}
	}
	if dedent < 0 {
		return
	}

	depth := g.tracker.Depth()
	for i, l := range lines {
		switch {
		case verbatim[i]:
			g.out = append(g.out, GeneratedLine{Text: l.Code, SourceLine: l.Index})
		case strings.TrimSpace(l.Code) == "":
			g.out = append(g.out, GeneratedLine{Text: "", SourceLine: l.Index})
		case l.Indent >= dedent:
			g.emit(depth, l.Index, l.Code[dedent:])
		default:
			g.emit(depth, l.Index, strings.TrimLeft(l.Code, " \t"))
		}
	}
	g.tracker.Mark()
}

func (g *Generator) emit(depth, source int, code string) {
	g.out = append(g.out, GeneratedLine{
		Text:       strings.Repeat(indentUnit, depth) + code,
		SourceLine: source,
	})
}
