package starlark

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/starp/internal/lib"
	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Environment holds everything a template run can see besides its own code:
// template arguments, data variables, the lib directory and the random seed.
// It is immutable once built and may be shared by several runs; every run
// gets fresh Starlark values.
type Environment struct {
	// Argv is exposed as the argv list; argv[0] is the template path.
	Argv []string

	// Vars is exposed as the vars dict. Keys that are identifiers and do not
	// shadow another predeclared name are also plain globals.
	Vars map[string]any

	// LibDir holds .star files exposed as namespaces and resolved by load().
	LibDir string

	// Seed makes random and uuid() reproducible when Seeded is set.
	Seed   int64
	Seeded bool

	Logger *slog.Logger
}

// Option configures an Environment.
type Option func(*Environment)

// WithArgv sets the template arguments.
func WithArgv(argv ...string) Option {
	return func(e *Environment) { e.Argv = argv }
}

// WithVars sets the data variables.
func WithVars(vars map[string]any) Option {
	return func(e *Environment) { e.Vars = vars }
}

// WithLibDir sets the lib directory.
func WithLibDir(dir string) Option {
	return func(e *Environment) { e.LibDir = dir }
}

// WithSeed seeds the random module and uuid().
func WithSeed(seed int64) Option {
	return func(e *Environment) {
		e.Seed = seed
		e.Seeded = true
	}
}

// WithLogger sets the logger that receives print() output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Environment) { e.Logger = logger }
}

// NewEnvironment builds an environment and checks that every variable
// converts to a Starlark value.
func NewEnvironment(opts ...Option) (*Environment, error) {
	env := &Environment{}
	for _, opt := range opts {
		opt(env)
	}
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}
	if _, err := GoToStarlark(env.Vars); err != nil {
		return nil, fmt.Errorf("template vars: %w", err)
	}
	return env, nil
}

// builtinNames are the names predeclared by the environment itself.
func builtinNames() []string {
	return append(slices.Clone(sinkBuiltinNames),
		"argv", "vars", "struct", "json", "math", "time", "random", "uuid")
}

// Names returns every predeclared name a template compiled against env may use.
// Lib namespaces are derived from file names so no lib code runs.
func (e *Environment) Names() (map[string]bool, error) {
	names := make(map[string]bool)
	for _, n := range builtinNames() {
		names[n] = true
	}
	files, err := lib.Files(e.LibDir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		names[strings.TrimSuffix(filepath.Base(f), ".star")] = true
	}
	for _, k := range e.varGlobals(names) {
		names[k] = true
	}
	return names, nil
}

// varGlobals returns the Vars keys promoted to globals, given the names
// already taken.
func (e *Environment) varGlobals(taken map[string]bool) []string {
	var keys []string
	for k := range e.Vars {
		if !syntaxIdent(k) || taken[k] {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// base returns the predeclared names shared by templates and lib files.
func (e *Environment) base(rnd *randomSource) (starlark.StringDict, error) {
	argv := make([]string, len(e.Argv))
	copy(argv, e.Argv)
	argvList, err := GoToStarlark(argv)
	if err != nil {
		return nil, err
	}

	vars := e.Vars
	if vars == nil {
		vars = map[string]any{}
	}
	varsDict, err := GoToStarlark(vars)
	if err != nil {
		return nil, fmt.Errorf("template vars: %w", err)
	}

	return starlark.StringDict{
		"argv":   argvList,
		"vars":   varsDict,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"json":   json.Module,
		"math":   math.Module,
		"time":   time.Module,
		"random": rnd.module(),
		"uuid":   starlark.NewBuiltin("uuid", rnd.uuid),
	}, nil
}

// predeclared merges the base names, lib namespaces, promoted vars and the
// sink builtins into the globals of one template run.
func (e *Environment) predeclared(base starlark.StringDict, libs *lib.Registry, sink *Sink) starlark.StringDict {
	globals := make(starlark.StringDict, len(base)+libs.Len()+len(e.Vars)+len(sinkBuiltinNames))
	for k, v := range base {
		globals[k] = v
	}
	for k, v := range libs.ToStarlarkDict() {
		globals[k] = v
	}
	for k, v := range sink.builtins() {
		globals[k] = v
	}

	taken := make(map[string]bool, len(globals))
	for k := range globals {
		taken[k] = true
	}
	varsDict := base["vars"].(*starlark.Dict)
	for _, k := range e.varGlobals(taken) {
		v, _, _ := varsDict.Get(starlark.String(k))
		globals[k] = v
	}
	return globals
}

func syntaxIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return !slices.Contains(keywords, s) && !starlark.Universe.Has(s)
}

// keywords are Starlark keywords and reserved words.
var keywords = []string{
	"and", "as", "assert", "async", "await", "break", "class", "continue",
	"def", "del", "elif", "else", "except", "finally", "for", "from",
	"global", "if", "import", "in", "is", "lambda", "load", "nonlocal",
	"not", "or", "pass", "raise", "return", "try", "while", "with", "yield",
}
