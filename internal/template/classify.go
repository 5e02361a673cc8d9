package template

import (
	"strings"
)

// Classifier splits template source into classified lines.
type Classifier struct {
	file string
}

// NewClassifier creates a classifier for the named template.
func NewClassifier(file string) *Classifier {
	return &Classifier{file: file}
}

// SplitLines splits src into 1-based SourceLines.
// A trailing newline does not produce an extra empty line.
func SplitLines(src string) []SourceLine {
	if src == "" {
		return nil
	}
	parts := strings.Split(src, "\n")
	if strings.HasSuffix(src, "\n") {
		parts = parts[:len(parts)-1]
	}
	lines := make([]SourceLine, len(parts))
	for i, raw := range parts {
		lines[i] = SourceLine{
			Index:  i + 1,
			Raw:    raw,
			Indent: len(raw) - len(strings.TrimLeft(raw, " \t")),
		}
	}
	return lines
}

// Classify tags every line of src.
func (c *Classifier) Classify(src string) ([]Line, error) {
	source := SplitLines(src)
	out := make([]Line, 0, len(source))
	endsWithNewline := strings.HasSuffix(src, "\n")

	var region *Line
	var opened Line
	for i, sl := range source {
		line := Line{SourceLine: sl, Newline: i < len(source)-1 || endsWithNewline}

		if region != nil {
			if strings.TrimSpace(sl.Raw) == "%>" {
				line.Kind = KindBlockClose
				region = nil
			} else {
				line.Kind = KindRegion
				line.Code = strings.TrimRight(sl.Raw, "\r")
			}
			out = append(out, line)
			continue
		}

		if err := c.classifyLine(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
		if line.Kind == KindBlockOpen {
			opened = line
			region = &opened
		}
	}

	if region != nil {
		return nil, NewStructuralError(c.pos(region.Index, region.Indent+1), region.Raw,
			"unterminated '<%' block (missing '%>')")
	}
	return out, nil
}

// classifyLine assigns Kind and Code to a line outside a <% %> region.
func (c *Classifier) classifyLine(line *Line) error {
	raw := line.Raw
	lead := raw[:line.Indent]
	trimmed := raw[line.Indent:]

	switch {
	case strings.HasPrefix(trimmed, "<%%"):
		line.Kind = KindText
		line.Code = lead + "<" + trimmed[2:]

	case strings.HasPrefix(trimmed, "<%"):
		body := strings.TrimRight(trimmed[2:], "\r")
		if end := strings.Index(body, "%>"); end >= 0 {
			if rest := strings.TrimSpace(body[end+2:]); rest != "" {
				return NewStructuralErrorf(c.pos(line.Index, line.Indent+3+end+2), raw,
					"unexpected text after '%%>': %q", rest)
			}
			code := strings.TrimSpace(body[:end])
			if code == "" || strings.HasPrefix(code, "#") {
				line.Kind = KindComment
				return nil
			}
			line.Kind = KindBlockTag
			line.Code = code
			return nil
		}
		if strings.TrimSpace(body) != "" {
			return NewStructuralError(c.pos(line.Index, line.Indent+3), raw,
				"code after '<%' must start on the next line")
		}
		line.Kind = KindBlockOpen

	case strings.HasPrefix(trimmed, "%%"):
		line.Kind = KindText
		line.Code = lead + trimmed[1:]

	case strings.HasPrefix(trimmed, "%") && !strings.HasPrefix(trimmed, "%>"):
		code := strings.TrimRight(trimmed[1:], "\r")
		if strings.HasPrefix(code, " ") || strings.HasPrefix(code, "\t") {
			code = code[1:]
		}
		if stmt := strings.TrimSpace(code); stmt == "" || strings.HasPrefix(stmt, "#") {
			line.Kind = KindComment
			return nil
		}
		line.Kind = KindStatement
		line.Code = code

	default:
		line.Kind = KindText
		line.Code = raw
	}
	return nil
}

func (c *Classifier) pos(line, col int) Position {
	return Position{File: c.file, Line: line, Column: col}
}
