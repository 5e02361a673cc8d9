// Package engine drives template rendering: it reads template sources,
// transpiles them, builds the execution environment and routes output.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	starctx "github.com/leapstack-labs/starp/internal/starlark"
	"github.com/leapstack-labs/starp/internal/template"
)

// Engine renders and checks templates.
type Engine struct {
	logger *slog.Logger
	libDir string
	seed   int64
	seeded bool
	jobs   int

	debounce time.Duration
}

// Config holds engine configuration.
type Config struct {
	// LibDir is the directory of .star helper files (optional)
	LibDir string
	// Seed makes random output reproducible when non-nil
	Seed *int64
	// Jobs bounds concurrent checks; 0 means one per CPU
	Jobs int
	// Debounce is the quiet period before Watch re-renders; 0 means 100ms
	Debounce time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = watchDebounce
	}

	e := &Engine{logger: logger, libDir: cfg.LibDir, jobs: jobs, debounce: debounce}
	if cfg.Seed != nil {
		e.seed, e.seeded = *cfg.Seed, true
	}

	logger.Debug("initializing engine", "lib_dir", cfg.LibDir, "seeded", e.seeded, "jobs", jobs)
	return e
}

// LibDir returns the configured lib directory.
func (e *Engine) LibDir() string { return e.libDir }

// ReadSource reads a template file.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: template path is user input by design
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}

// Transpile reads and transpiles the template at path.
func (e *Engine) Transpile(path string) (*template.GeneratedSource, error) {
	src, err := ReadSource(path)
	if err != nil {
		return nil, err
	}
	gen, err := template.Transpile(path, src)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("template transpiled", "template", path, "generated_lines", len(gen.Lines))
	return gen, nil
}

// Environment builds the execution environment for one template.
// argv[0] is the template path, followed by args.
func (e *Engine) Environment(path string, args []string, vars map[string]any) (*starctx.Environment, error) {
	opts := []starctx.Option{
		starctx.WithArgv(append([]string{path}, args...)...),
		starctx.WithVars(vars),
		starctx.WithLibDir(e.libDir),
		starctx.WithLogger(e.logger),
	}
	if e.seeded {
		opts = append(opts, starctx.WithSeed(e.seed))
	}
	return starctx.NewEnvironment(opts...)
}
