package starlark

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/starp/internal/lib"
	"go.starlark.net/starlark"
)

// session is the state of a single template run: a fresh random source,
// fresh predeclared values and the load() cache. Nothing outlives it.
type session struct {
	env   *Environment
	rnd   *randomSource
	base  starlark.StringDict
	libs  *lib.Registry
	cache map[string]*loadEntry
}

type loadEntry struct {
	globals starlark.StringDict
	err     error
}

func newSession(env *Environment) (*session, error) {
	s := &session{
		env:   env,
		rnd:   newRandomSource(env.Seed, env.Seeded),
		cache: make(map[string]*loadEntry),
	}
	base, err := env.base(s.rnd)
	if err != nil {
		return nil, err
	}
	s.base = base

	libs, err := lib.LoadAndRegister(env.LibDir, lib.WithExecFunc(s.exec))
	if err != nil {
		return nil, err
	}
	s.libs = libs
	env.Logger.Debug("lib loaded", "dir", env.LibDir, "namespaces", libs.Namespaces())
	return s, nil
}

// newThread creates the thread a template runs on. print() goes to the
// logger and load() resolves against the lib directory.
func (s *session) newThread(name string) *starlark.Thread {
	logger := s.env.Logger
	return &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			logger.Info(msg, "source", "print", "template", thread.Name)
		},
		Load: s.load,
	}
}

// load resolves a load() statement. Module names are paths relative to the
// lib directory and may not escape it.
func (s *session) load(_ *starlark.Thread, module string) (starlark.StringDict, error) {
	path, err := s.resolve(module)
	if err != nil {
		return nil, err
	}
	return s.exec(path)
}

// exec runs a lib file at most once per run. Namespaces and load() share
// the result, keyed by path.
func (s *session) exec(path string) (starlark.StringDict, error) {
	e, ok := s.cache[path]
	if e == nil {
		if ok {
			return nil, fmt.Errorf("cycle in load graph")
		}
		s.cache[path] = nil

		name := filepath.Base(path)
		if rel, err := filepath.Rel(s.env.LibDir, path); err == nil {
			name = filepath.ToSlash(rel)
		}
		globals, err := lib.ExecFile(s.newThread("load:"+name), path, s.base)
		e = &loadEntry{globals: globals, err: err}
		s.cache[path] = e
	}
	return e.globals, e.err
}

func (s *session) resolve(module string) (string, error) {
	if s.env.LibDir == "" {
		return "", errors.New("no lib directory configured")
	}
	if filepath.IsAbs(module) {
		return "", fmt.Errorf("load path must be relative to the lib directory: %s", module)
	}
	clean := filepath.Clean(filepath.FromSlash(module))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("load path escapes the lib directory: %s", module)
	}
	return filepath.Join(s.env.LibDir, clean), nil
}
