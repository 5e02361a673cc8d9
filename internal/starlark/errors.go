package starlark

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/starp/internal/template"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// builtinFile is the file name Starlark gives frames of Go builtins.
const builtinFile = "<builtin>"

// HostSyntaxError is a Starlark scan, parse or resolve failure in the
// generated script, reported against the template line that produced it.
type HostSyntaxError struct {
	Pos  template.Position
	Msg  string
	Text string // template line text

	GeneratedLine int
}

func (e *HostSyntaxError) Error() string { return report(e.Pos, e.Msg) }

// Position returns the template position of the failure.
func (e *HostSyntaxError) Position() template.Position { return e.Pos }

// Frame is one entry of a mapped traceback.
type Frame struct {
	Function string
	File     string
	Line     int
	Text     string // template line text, template frames only
	Mapped   bool   // File and Line refer to the template
}

func (f Frame) String() string {
	if f.Line == 0 {
		return fmt.Sprintf("%s: in %s", f.File, f.Function)
	}
	return fmt.Sprintf("%s:%d: in %s", f.File, f.Line, f.Function)
}

// HostRuntimeError is a failure while running the generated script. Pos is
// the innermost template frame; Traceback keeps every frame, outermost first.
type HostRuntimeError struct {
	Pos       template.Position
	Msg       string
	Text      string
	Traceback []Frame

	err *starlark.EvalError
}

func (e *HostRuntimeError) Error() string { return report(e.Pos, e.Msg) }

// Position returns the innermost template position of the failure.
func (e *HostRuntimeError) Position() template.Position { return e.Pos }

func (e *HostRuntimeError) Unwrap() error { return e.err }

// Backtrace formats the mapped traceback followed by the message.
func (e *HostRuntimeError) Backtrace() string {
	var b strings.Builder
	b.WriteString("Traceback (most recent call last):\n")
	for _, f := range e.Traceback {
		fmt.Fprintf(&b, "  %s\n", f)
		if f.Text != "" {
			fmt.Fprintf(&b, "    %s\n", strings.TrimSpace(f.Text))
		}
	}
	fmt.Fprintf(&b, "Error: %s", e.Msg)
	return b.String()
}

// InternalError is a failure on a generated line with no template origin.
// It points at a defect in code generation rather than in the template.
type InternalError struct {
	File          string
	GeneratedLine int
	Msg           string
	Err           error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: internal transpiler error at generated line %d: %s", e.File, e.GeneratedLine, e.Msg)
}

func (e *InternalError) Position() template.Position { return template.Position{File: e.File} }

func (e *InternalError) Unwrap() error { return e.Err }

func report(pos template.Position, msg string) string {
	return fmt.Sprintf("%s:%d: %s", pos.File, pos.Line, msg)
}

// mapCompileError translates a compile failure of gen into a template error.
func mapCompileError(gen *template.GeneratedSource, err error) error {
	var (
		pos syntax.Position
		msg string
	)
	var serr syntax.Error
	var rerr resolve.ErrorList
	switch {
	case errors.As(err, &serr):
		pos, msg = serr.Pos, serr.Msg
	case errors.As(err, &rerr):
		pos, msg = rerr[0].Pos, rerr[0].Msg
	default:
		return err
	}

	line := int(pos.Line)
	src, _ := gen.Lookup(line)
	if src == 0 {
		return &InternalError{File: gen.Filename, GeneratedLine: line, Msg: msg, Err: err}
	}
	return &HostSyntaxError{
		Pos:           template.Position{File: gen.Filename, Line: src},
		Msg:           msg,
		Text:          gen.SourceText(src),
		GeneratedLine: line,
	}
}

// mapEvalError translates a Starlark runtime failure into a template error.
// Frames in lib files keep their own positions.
func mapEvalError(gen *template.GeneratedSource, err *starlark.EvalError) error {
	frames := make([]Frame, 0, len(err.CallStack))
	innermost := -1
	for _, cf := range err.CallStack {
		f := Frame{
			Function: cf.Name,
			File:     cf.Pos.Filename(),
			Line:     int(cf.Pos.Line),
		}
		if f.File == gen.Filename && f.File != builtinFile {
			innermost = len(frames)
			if src, _ := gen.Lookup(f.Line); src != 0 {
				f.Line = src
				f.Text = gen.SourceText(src)
				f.Mapped = true
			}
		}
		frames = append(frames, f)
	}
	if innermost < 0 {
		return &InternalError{File: gen.Filename, Msg: err.Msg, Err: err}
	}

	top := frames[innermost]
	if !top.Mapped {
		return &InternalError{File: gen.Filename, GeneratedLine: top.Line, Msg: err.Msg, Err: err}
	}
	return &HostRuntimeError{
		Pos:       template.Position{File: gen.Filename, Line: top.Line},
		Msg:       err.Msg,
		Text:      top.Text,
		Traceback: frames,
		err:       err,
	}
}
