package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	starctx "github.com/leapstack-labs/starp/internal/starlark"
	"github.com/leapstack-labs/starp/internal/template"
)

// RenderOptions describes one template run.
type RenderOptions struct {
	// Template is the template path
	Template string
	// Args follow the template path in argv
	Args []string
	// Vars are the data variables
	Vars map[string]any
	// Output is the output file; empty or "-" writes to Stdout
	Output string
	// Script, when set, receives the generated script
	Script string
	// Stdout receives output when no file is given
	Stdout io.Writer
}

// RenderResult describes a finished or failed run.
type RenderResult struct {
	Template  string
	Output    string
	Bytes     int64
	Duration  time.Duration
	Generated *template.GeneratedSource // nil if transpiling failed
}

// Render transpiles and runs a template. A file output is written to a
// temporary file next to it and renamed into place only on success.
// The result is non-nil whenever the template was transpiled, so callers
// can inspect the generated script after a failure.
func (e *Engine) Render(ctx context.Context, opts RenderOptions) (*RenderResult, error) {
	start := time.Now()
	res := &RenderResult{Template: opts.Template, Output: opts.Output}

	gen, err := e.Transpile(opts.Template)
	if err != nil {
		return nil, err
	}
	res.Generated = gen

	if opts.Script != "" {
		if err := os.WriteFile(opts.Script, []byte(gen.Script()), 0o644); err != nil { //nolint:gosec // G306: generated scripts are not secret
			return res, fmt.Errorf("write script: %w", err)
		}
		e.logger.Debug("script written", "path", opts.Script)
	}

	env, err := e.Environment(opts.Template, opts.Args, opts.Vars)
	if err != nil {
		return res, err
	}
	prog, err := starctx.Compile(gen, env)
	if err != nil {
		return res, err
	}

	if opts.Output == "" || opts.Output == "-" {
		stdout := opts.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		cw := &countingWriter{w: stdout}
		err = prog.Run(ctx, cw)
		res.Bytes = cw.n
	} else {
		res.Bytes, err = e.renderFile(ctx, prog, opts.Output)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	e.logger.Debug("template rendered",
		"template", opts.Template,
		"output", opts.Output,
		"bytes", res.Bytes,
		"duration", res.Duration)
	return res, nil
}

func (e *Engine) renderFile(ctx context.Context, prog *starctx.Program, path string) (int64, error) {
	out, err := createAtomic(path)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: out.f}
	if err := prog.Run(ctx, cw); err != nil {
		if aerr := out.Abort(); aerr != nil {
			e.logger.Warn("failed to remove partial output", "path", out.tmp, "error", aerr)
		}
		return cw.n, err
	}
	return cw.n, out.Commit()
}

// atomicFile is an output file written through path + ".tmp".
type atomicFile struct {
	f    *os.File
	path string
	tmp  string
}

func createAtomic(path string) (*atomicFile, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // G304: output path is user input by design
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &atomicFile{f: f, path: path, tmp: tmp}, nil
}

// Commit closes the temporary file and renames it over the target.
func (a *atomicFile) Commit() error {
	if err := a.f.Close(); err != nil {
		_ = os.Remove(a.tmp)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(a.tmp, a.path); err != nil {
		_ = os.Remove(a.tmp)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Abort closes and removes the temporary file.
func (a *atomicFile) Abort() error {
	cerr := a.f.Close()
	rerr := os.Remove(a.tmp)
	if errors.Is(rerr, os.ErrNotExist) {
		rerr = nil
	}
	return errors.Join(cerr, rerr)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
