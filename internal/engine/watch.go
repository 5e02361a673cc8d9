package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the default quiet period that coalesces bursts of file
// events from editors.
const watchDebounce = 100 * time.Millisecond

// Watch renders the template once and again after every change to the
// template or to a lib file, until ctx is done. Render failures are passed
// to onRender and do not stop watching.
func (e *Engine) Watch(ctx context.Context, opts RenderOptions, onRender func(*RenderResult, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	tpl, err := filepath.Abs(opts.Template)
	if err != nil {
		return err
	}
	// Editors often replace files by rename, so watch directories.
	dirs := []string{filepath.Dir(tpl)}
	if e.libDir != "" {
		lib, err := filepath.Abs(e.libDir)
		if err != nil {
			return err
		}
		dirs = append(dirs, lib)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	e.logger.Info("watching for changes", "template", opts.Template, "dirs", dirs)
	onRender(e.Render(ctx, opts))

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !e.relevant(event, tpl) {
				continue
			}
			e.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(e.debounce)
			} else {
				timer.Reset(e.debounce)
			}
			trigger = timer.C

		case <-trigger:
			trigger = nil
			onRender(e.Render(ctx, opts))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watcher error", "error", err)
		}
	}
}

func (e *Engine) relevant(event fsnotify.Event, tpl string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == tpl || filepath.Ext(name) == ".star"
}
