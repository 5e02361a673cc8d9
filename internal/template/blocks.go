package template

import (
	"slices"
	"strings"
)

// openKeywords start a block that must be closed by end<keyword>.
var openKeywords = map[string]bool{
	"if":    true,
	"for":   true,
	"while": true,
	"def":   true,
	"class": true,
	"try":   true,
	"with":  true,
	"macro": true,
}

// continuations maps a middle keyword to the block keywords it may continue.
var continuations = map[string][]string{
	"elif":    {"if"},
	"else":    {"if", "try"},
	"except":  {"try"},
	"finally": {"try"},
}

// Placement tells the generator where and whether to emit a statement.
type Placement struct {
	// Depth is the indentation level of the statement itself.
	Depth int
	// Emit is false for end tags, which produce no code of their own.
	Emit bool
	// NeedsPass is set when the block body being left produced no statements.
	NeedsPass bool
	// Opened is the frame pushed by this statement.
	Opened *BlockFrame
	// Closed is the frame popped by this statement.
	Closed *BlockFrame
}

// BlockTracker maintains the stack of open blocks. Depth is derived only
// from explicit tags; the cosmetic indentation of % lines is ignored.
type BlockTracker struct {
	file   string
	stack  []BlockFrame
	texts  []string
	filled []bool
}

// NewBlockTracker creates an empty tracker.
func NewBlockTracker(file string) *BlockTracker {
	return &BlockTracker{file: file}
}

// Depth returns the current number of open blocks.
func (t *BlockTracker) Depth() int { return len(t.stack) }

// Top returns the innermost open block, or nil.
func (t *BlockTracker) Top() *BlockFrame {
	if len(t.stack) == 0 {
		return nil
	}
	top := t.stack[len(t.stack)-1]
	return &top
}

// Mark records that the innermost block body has produced a statement.
func (t *BlockTracker) Mark() {
	if n := len(t.filled); n > 0 {
		t.filled[n-1] = true
	}
}

// InMacro reports whether the innermost enclosing function is a macro.
func (t *BlockTracker) InMacro() bool {
	for i := len(t.stack) - 1; i >= 0; i-- {
		switch t.stack[i].Keyword {
		case "macro":
			return true
		case "def":
			return false
		}
	}
	return false
}

// Statement places one statement line.
func (t *BlockTracker) Statement(line Line, code string) (Placement, error) {
	code = stripComment(strings.TrimSpace(code))
	kw := leadingWord(code)
	pos := Position{File: t.file, Line: line.Index, Column: line.Indent + 1}

	if strings.HasPrefix(kw, "end") && openKeywords[kw[3:]] && code == kw {
		top := t.Top()
		if top == nil || top.Keyword != kw[3:] {
			return Placement{}, NewStrayTagError(pos, line.Raw, kw, top)
		}
		needsPass := !t.filled[len(t.filled)-1]
		t.pop()
		return Placement{Depth: len(t.stack), NeedsPass: needsPass, Closed: top}, nil
	}

	if !strings.HasSuffix(code, ":") {
		t.Mark()
		return Placement{Depth: len(t.stack), Emit: true}, nil
	}

	if openKeywords[kw] {
		depth := len(t.stack)
		t.Mark()
		frame := BlockFrame{Keyword: kw, OpenedAt: line.Index, Indent: line.Indent}
		t.stack = append(t.stack, frame)
		t.texts = append(t.texts, line.Raw)
		t.filled = append(t.filled, false)
		return Placement{Depth: depth, Emit: true, Opened: &frame}, nil
	}

	if parents, ok := continuations[kw]; ok {
		top := t.Top()
		if top == nil || !slices.Contains(parents, top.Keyword) {
			return Placement{}, NewStrayTagError(pos, line.Raw, kw, top)
		}
		needsPass := !t.filled[len(t.filled)-1]
		t.filled[len(t.filled)-1] = false
		return Placement{Depth: len(t.stack) - 1, Emit: true, NeedsPass: needsPass}, nil
	}

	t.Mark()
	return Placement{Depth: len(t.stack), Emit: true}, nil
}

// Finish checks that every block was closed. The error points at the line
// that opened the innermost unclosed block.
func (t *BlockTracker) Finish() error {
	if len(t.stack) == 0 {
		return nil
	}
	top := t.stack[len(t.stack)-1]
	pos := Position{File: t.file, Line: top.OpenedAt, Column: top.Indent + 1}
	return NewUnclosedBlockError(pos, t.texts[len(t.texts)-1], top)
}

func (t *BlockTracker) pop() {
	n := len(t.stack) - 1
	t.stack = t.stack[:n]
	t.texts = t.texts[:n]
	t.filled = t.filled[:n]
}

// stripComment drops a trailing # comment that is outside string quotes.
func stripComment(s string) string {
	var quote byte
	for j := 0; j < len(s); j++ {
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
		case '#':
			return strings.TrimSpace(s[:j])
		}
	}
	return s
}

// leadingWord returns the identifier at the start of s.
func leadingWord(s string) string {
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return s[:i]
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
