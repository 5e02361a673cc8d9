package template

import (
	"strings"
)

// ScanSubstitutions splits a text line into literal and ${ expr } fragments.
// Braces and quotes inside an expression are tracked so that a '}' inside a
// nested dict or a string literal does not end the span. "$${" is an escape
// for a literal "${".
func ScanSubstitutions(file string, line Line) ([]Fragment, error) {
	s := line.Code
	var frags []Fragment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			frags = append(frags, Fragment{Literal: lit.String(), Line: line.Index})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "$${") {
			lit.WriteString("${")
			i += 3
			continue
		}
		if !strings.HasPrefix(s[i:], "${") {
			lit.WriteByte(s[i])
			i++
			continue
		}

		end := matchBrace(s, i+2)
		pos := Position{File: file, Line: line.Index, Column: i + 1}
		if end < 0 {
			return nil, NewStructuralError(pos, line.Raw, "unterminated substitution '${' (missing '}')")
		}
		expr := strings.TrimSpace(s[i+2 : end])
		if expr == "" {
			return nil, NewStructuralError(pos, line.Raw, "empty substitution '${}'")
		}

		flush()
		frags = append(frags, Fragment{Expr: expr, IsExpr: true, Line: line.Index, Col: i + 1})
		i = end + 1
	}
	flush()

	return frags, nil
}

// matchBrace returns the index of the '}' closing a span that starts at
// start (just after the opening brace), or -1 if the line ends first.
func matchBrace(s string, start int) int {
	depth := 1
	var quote byte
	for j := start; j < len(s); j++ {
		ch := s[j]
		if quote != 0 {
			switch ch {
			case '\\':
				j++
			case quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
