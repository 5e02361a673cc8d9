package template

import "fmt"

// Error is the base interface for all template errors.
type Error interface {
	error
	Position() Position
}

// baseError provides common error functionality.
type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string {
	if e.pos.Column > 0 {
		if e.pos.File != "" {
			return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
		}
		return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
	}
	if e.pos.File != "" {
		return fmt.Sprintf("%s:%d: %s", e.pos.File, e.pos.Line, e.msg)
	}
	return fmt.Sprintf("%d: %s", e.pos.Line, e.msg)
}

// Message returns the error text without position.
func (e *baseError) Message() string { return e.msg }

// StructuralError is a transpile-time defect in the template layout:
// unterminated substitutions or regions, and unbalanced block tags.
type StructuralError struct {
	baseError
	Text     string // template line where the defect starts
	Keyword  string // block keyword involved, if any
	OpenedAt int    // line of the open block involved, 0 if none
}

// NewStructuralError creates a new structural error.
func NewStructuralError(pos Position, text, msg string) *StructuralError {
	return &StructuralError{baseError: baseError{pos: pos, msg: msg}, Text: text}
}

// NewStructuralErrorf creates a new structural error with formatting.
func NewStructuralErrorf(pos Position, text, format string, args ...any) *StructuralError {
	return NewStructuralError(pos, text, fmt.Sprintf(format, args...))
}

// NewUnclosedBlockError reports a block still open at end of input.
// pos points at the line that opened the block.
func NewUnclosedBlockError(pos Position, text string, frame BlockFrame) *StructuralError {
	err := NewStructuralErrorf(pos, text, "unclosed '%s' block (missing 'end%s')", frame.Keyword, frame.Keyword)
	err.Keyword = frame.Keyword
	err.OpenedAt = frame.OpenedAt
	return err
}

// NewStrayTagError reports an end or continuation tag that has no matching open block.
func NewStrayTagError(pos Position, text, tag string, top *BlockFrame) *StructuralError {
	if top == nil {
		err := NewStructuralErrorf(pos, text, "'%s' without an open block", tag)
		err.Keyword = tag
		return err
	}
	err := NewStructuralErrorf(pos, text, "'%s' does not match open '%s' block (line %d)", tag, top.Keyword, top.OpenedAt)
	err.Keyword = tag
	err.OpenedAt = top.OpenedAt
	return err
}
