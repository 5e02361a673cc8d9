// Package template transpiles starp templates into Starlark source.
// Text lines become output calls, % lines and <% %> regions become Starlark
// statements, and ${ expr } spans become evaluated substitutions.
package template

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// SourceLine is one physical line of the template.
type SourceLine struct {
	Index  int    // 1-based line number
	Raw    string // line text without the trailing newline
	Indent int    // count of leading whitespace characters
}

// LineKind classifies a template line.
type LineKind int

// LineKind constants.
const (
	KindText       LineKind = iota // literal text, may contain ${ }
	KindStatement                  // % stmt
	KindBlockOpen                  // <% alone on a line
	KindBlockClose                 // %> alone on a line
	KindBlockTag                   // <% stmt %> on one line
	KindRegion                     // raw line inside a <% %> region
	KindComment                    // %# comment
)

func (k LineKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindStatement:
		return "statement"
	case KindBlockOpen:
		return "block-open"
	case KindBlockClose:
		return "block-close"
	case KindBlockTag:
		return "block-tag"
	case KindRegion:
		return "region"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Line is a classified SourceLine.
// Code holds the statement text for statements and block tags, and the
// unescaped text for text lines.
type Line struct {
	SourceLine
	Kind LineKind
	Code string
	// Newline reports whether the line was terminated by a newline in the source.
	Newline bool
}

// BlockFrame is an open control-flow block.
type BlockFrame struct {
	Keyword  string
	OpenedAt int
	Indent   int
}

// Fragment is a literal span or a ${ } expression span of a text line.
type Fragment struct {
	Literal string
	Expr    string
	IsExpr  bool
	Line    int
	Col     int
}

// GeneratedLine is one line of generated Starlark.
// SourceLine is 0 for lines that have no template origin.
type GeneratedLine struct {
	Text       string
	SourceLine int
}

// GeneratedSource is the generated script together with its line map.
// Lines[i] is generated line i+1.
type GeneratedSource struct {
	Filename string
	Lines    []GeneratedLine
	Source   []SourceLine
}
