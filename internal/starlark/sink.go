package starlark

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.starlark.net/starlark"
)

// Sink is the output destination of one template run.
// Write errors are sticky: after the first failure every write is dropped
// and Err reports the cause.
type Sink struct {
	w   *bufio.Writer
	n   int64
	err error
}

// NewSink wraps w in a buffered sink.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w)}
}

// WriteString writes s to the sink.
func (s *Sink) WriteString(str string) error {
	if s.err != nil {
		return s.err
	}
	n, err := s.w.WriteString(str)
	s.n += int64(n)
	s.err = err
	return err
}

// Flush flushes buffered output to the underlying writer.
func (s *Sink) Flush() error {
	if s.err != nil {
		return s.err
	}
	s.err = s.w.Flush()
	return s.err
}

// Written returns the number of bytes accepted so far.
func (s *Sink) Written() int64 { return s.n }

// Err returns the first write error, if any.
func (s *Sink) Err() error { return s.err }

// sinkBuiltinNames are the predeclared names the code generator relies on.
var sinkBuiltinNames = []string{"_emit", "_fmt", "_join", "_flush"}

// builtins returns the output plumbing called by generated code.
func (s *Sink) builtins() starlark.StringDict {
	return starlark.StringDict{
		"_emit":  starlark.NewBuiltin("_emit", s.emit),
		"_fmt":   starlark.NewBuiltin("_fmt", format),
		"_join":  starlark.NewBuiltin("_join", join),
		"_flush": starlark.NewBuiltin("_flush", s.flush),
	}
}

// emit writes its arguments, converted like substitutions, to the sink.
func (s *Sink) emit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if err := s.WriteString(concat(args)); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (s *Sink) flush(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// format returns its arguments concatenated as a string. Macro bodies use
// it in place of _emit.
func format(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	return starlark.String(concat(args)), nil
}

// join concatenates captured macro output and drops one trailing newline,
// so that a macro returns its lines newline-joined.
func join(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var parts *starlark.List
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &parts); err != nil {
		return nil, err
	}
	var sb strings.Builder
	for i := 0; i < parts.Len(); i++ {
		sb.WriteString(valueString(parts.Index(i)))
	}
	return starlark.String(strings.TrimSuffix(sb.String(), "\n")), nil
}

func concat(args starlark.Tuple) string {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(valueString(a))
	}
	return sb.String()
}
