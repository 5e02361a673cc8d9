// Package lib loads the Starlark helper library available to templates.
// Each .star file in the lib directory becomes a namespace named after the
// file; its public top-level names are the namespace members.
package lib

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// FileOptions are the Starlark dialect options shared by templates and lib files.
var FileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// LoadFunc resolves a load() statement issued while executing a lib file.
type LoadFunc func(thread *starlark.Thread, module string) (starlark.StringDict, error)

// ExecFunc executes the lib file at path and returns its globals.
type ExecFunc func(path string) (starlark.StringDict, error)

// Loader scans a directory for .star files and executes them as modules.
type Loader struct {
	dir         string
	predeclared starlark.StringDict
	load        LoadFunc
	exec        ExecFunc
	logger      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPredeclared sets the names visible to lib files.
func WithPredeclared(predeclared starlark.StringDict) LoaderOption {
	return func(l *Loader) { l.predeclared = predeclared }
}

// WithLoadFunc sets the handler for load() statements inside lib files.
func WithLoadFunc(fn LoadFunc) LoaderOption {
	return func(l *Loader) { l.load = fn }
}

// WithExecFunc replaces how each lib file is executed. A caller that also
// serves load() passes its cached loader here so a file loaded both ways
// runs once.
func WithExecFunc(fn ExecFunc) LoaderOption {
	return func(l *Loader) { l.exec = fn }
}

// WithLogger sets the logger that receives print() output from lib files.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader for the specified directory.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{dir: dir}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if l.exec == nil {
		l.exec = l.execFile
	}
	return l
}

// LoadedModule is an executed lib file.
type LoadedModule struct {
	// Namespace is derived from filename (e.g., "text" from "text.star")
	Namespace string

	// Path is the path to the .star file
	Path string

	// Exports contains the public names (not starting with _)
	Exports starlark.StringDict
}

// Dir returns the directory the loader scans.
func (l *Loader) Dir() string { return l.dir }

// Load executes every .star file in the lib directory.
// A missing directory is not an error and yields no modules.
func (l *Loader) Load() ([]*LoadedModule, error) {
	files, err := Files(l.dir)
	if err != nil {
		return nil, err
	}

	var modules []*LoadedModule
	for _, file := range files {
		module, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// LoadFile executes a single .star file and extracts its exports.
func (l *Loader) LoadFile(path string) (*LoadedModule, error) {
	namespace := namespaceOf(path)
	if err := validateNamespace(namespace); err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	globals, err := l.exec(path)
	if err != nil {
		return nil, err
	}

	return &LoadedModule{
		Namespace: namespace,
		Path:      path,
		Exports:   Exports(globals),
	}, nil
}

func (l *Loader) execFile(path string) (starlark.StringDict, error) {
	logger := l.logger
	thread := &starlark.Thread{
		Name: "lib:" + namespaceOf(path),
		Print: func(thread *starlark.Thread, msg string) {
			logger.Info(msg, "source", "print", "lib", thread.Name)
		},
		Load: l.load,
	}
	return ExecFile(thread, path, l.predeclared)
}

// Files lists the .star files of dir in lexical order.
// A missing directory yields no files.
func Files(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access lib directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("lib path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan lib directory: %w", err)
	}
	return files, nil
}

// ExecFile reads and executes one Starlark file on thread.
func ExecFile(thread *starlark.Thread, path string, predeclared starlark.StringDict) (starlark.StringDict, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is inside the lib directory
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Err: err}
	}

	globals, err := starlark.ExecFileOptions(FileOptions, thread, path, content, predeclared)
	if err != nil {
		return nil, &LoadError{File: path, Message: "Starlark execution error", Err: err}
	}
	return globals, nil
}

// IsPublic reports whether a top-level name is visible to templates.
func IsPublic(name string) bool { return !strings.HasPrefix(name, "_") }

// Exports filters globals down to public names.
func Exports(globals starlark.StringDict) starlark.StringDict {
	exports := make(starlark.StringDict, len(globals))
	for name, value := range globals {
		if IsPublic(name) {
			exports[name] = value
		}
	}
	return exports
}

// namespaceOf derives the namespace from a lib file name: text.star is text.
func namespaceOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".star")
}

// validateNamespace checks that a namespace is a valid identifier.
func validateNamespace(name string) error {
	if name == "" {
		return fmt.Errorf("namespace cannot be empty")
	}

	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return fmt.Errorf("namespace must start with letter or underscore: %s", name)
			}
		} else if !isLetter(r) && !isDigit(r) && r != '_' {
			return fmt.Errorf("namespace contains invalid character: %s", name)
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LoadError represents an error loading a lib file.
type LoadError struct {
	File    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lib/%s: %s: %v", filepath.Base(e.File), e.Message, e.Err)
	}
	return fmt.Sprintf("lib/%s: %s", filepath.Base(e.File), e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }
