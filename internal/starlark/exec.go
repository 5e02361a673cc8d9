package starlark

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leapstack-labs/starp/internal/lib"
	"github.com/leapstack-labs/starp/internal/template"
	"go.starlark.net/starlark"
)

// Program is a compiled template.
type Program struct {
	gen  *template.GeneratedSource
	prog *starlark.Program
	env  *Environment
}

// Compile compiles the generated script against the names env predeclares.
// Scan, parse and resolve failures come back as *HostSyntaxError.
func Compile(gen *template.GeneratedSource, env *Environment) (*Program, error) {
	names, err := env.Names()
	if err != nil {
		return nil, err
	}

	_, prog, err := starlark.SourceProgramOptions(lib.FileOptions, gen.Filename, gen.Script(), func(name string) bool {
		return names[name]
	})
	if err != nil {
		return nil, mapCompileError(gen, err)
	}
	return &Program{gen: gen, prog: prog, env: env}, nil
}

// Run executes the program once, writing its output to w. The output is
// flushed on every exit path. Cancelling ctx stops the interpreter.
func (p *Program) Run(ctx context.Context, w io.Writer) (err error) {
	sess, err := newSession(p.env)
	if err != nil {
		return err
	}

	sink := NewSink(w)
	defer func() {
		if ferr := sink.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("write output: %w", ferr)
		}
	}()

	thread := sess.newThread(p.gen.Filename)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	predeclared := p.env.predeclared(sess.base, sess.libs, sink)
	_, err = p.prog.Init(thread, predeclared)
	if err == nil {
		p.env.Logger.Debug("template executed", "template", p.gen.Filename, "bytes", sink.Written(), "steps", thread.ExecutionSteps())
		return nil
	}

	if serr := sink.Err(); serr != nil {
		return fmt.Errorf("write output: %w", serr)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("render %s: %w", p.gen.Filename, context.Cause(ctx))
	}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return mapEvalError(p.gen, evalErr)
	}
	return err
}

// Execute compiles and runs gen in one step.
func Execute(ctx context.Context, gen *template.GeneratedSource, env *Environment, w io.Writer) error {
	prog, err := Compile(gen, env)
	if err != nil {
		return err
	}
	return prog.Run(ctx, w)
}
