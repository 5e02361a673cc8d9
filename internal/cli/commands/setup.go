// Package commands implements the starp subcommands.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/starp/internal/cli/config"
	"github.com/leapstack-labs/starp/internal/cli/output"
	"github.com/leapstack-labs/starp/internal/engine"
	"github.com/leapstack-labs/starp/internal/template"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the config and logger
// the root command stored in cmd's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	eng := engine.New(engine.Config{
		LibDir:   cfg.LibDir,
		Seed:     cfg.Seed,
		Jobs:     cfg.Jobs,
		Debounce: cfg.Debounce,
		Logger:   logger,
	})
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Format), output.ColorMode(cfg.Color))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}
}

// Vars merges config vars, the data file and --var pairs.
func (c *CommandContext) Vars(cmd *cobra.Command) (map[string]any, error) {
	var pairs []string
	if cmd.Flags().Lookup("var") != nil {
		var err error
		if pairs, err = cmd.Flags().GetStringArray("var"); err != nil {
			return nil, err
		}
	}
	return engine.LoadVars(c.Cfg.Vars, c.Cfg.Data, pairs)
}

// addVarFlags registers the flags that feed template variables.
func addVarFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("var", nil, "Template variable as key=value (repeatable)")
	cmd.Flags().String("data", "", "YAML or JSON file of template variables")
	cmd.Flags().String("lib", "", "Directory of .star helper files")
}

// writeNumberedScript prints the generated script with generated and
// template line numbers side by side.
func writeNumberedScript(w io.Writer, gen *template.GeneratedSource) {
	for i, line := range gen.Lines {
		src := "-"
		if line.SourceLine > 0 {
			src = fmt.Sprint(line.SourceLine)
		}
		_, _ = fmt.Fprintf(w, "%4d %4s | %s\n", i+1, src, line.Text)
	}
}
