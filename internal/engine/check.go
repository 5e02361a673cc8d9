package engine

import (
	"context"

	starctx "github.com/leapstack-labs/starp/internal/starlark"
	"golang.org/x/sync/errgroup"
)

// CheckResult is the outcome of checking one template.
type CheckResult struct {
	Template string
	Err      error
}

// Check transpiles and compiles each template without running it.
// Templates are checked concurrently, at most Config.Jobs at a time, and
// every failure is reported. Results follow the order of paths.
func (e *Engine) Check(ctx context.Context, paths []string, vars map[string]any) ([]CheckResult, error) {
	results := make([]CheckResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = CheckResult{Template: path, Err: e.check(path, vars)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Debug("templates checked", "count", len(paths), "failed", failed)
	return results, nil
}

func (e *Engine) check(path string, vars map[string]any) error {
	gen, err := e.Transpile(path)
	if err != nil {
		return err
	}
	env, err := e.Environment(path, nil, vars)
	if err != nil {
		return err
	}
	_, err = starctx.Compile(gen, env)
	return err
}
