package commands

import (
	"github.com/leapstack-labs/starp/internal/engine"
	"github.com/spf13/cobra"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [flags] <template> [args...]",
		Short: "Transpile and run a template",
		Long: `Transpile a template into a Starlark script and run it.

Text lines are written to the output with ${ expr } substitutions evaluated.
Lines starting with % and <% %> regions are Starlark code. Arguments after
the template path are available to the template as argv[1:].

Flags go before the template path. Everything after it, including words
that look like flags, is passed to the template.`,
		Example: `  # Render to stdout
  starp render report.tpl

  # Pass arguments and variables
  starp render --var title=Quarterly --data data.yaml report.tpl 2024 Q3

  # Write the output atomically and keep the generated script
  starp render -o report.md -p report.star report.tpl

  # Show the generated script and full traceback on failure
  starp render --debug report.tpl

  # Pass flag-like arguments to the template
  starp render report.tpl --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], args[1:])
		},
	}
	// Everything after the template path belongs to the template.
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringP("script", "p", "", "Write the generated script to this file")
	cmd.Flags().Int64("seed", 0, "Seed for the random module")
	cmd.Flags().Bool("debug", false, "Print the generated script and mapped traceback on failure")
	addVarFlags(cmd)

	return cmd
}

func runRender(cmd *cobra.Command, tpl string, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	vars, err := cmdCtx.Vars(cmd)
	if err != nil {
		return err
	}

	res, err := cmdCtx.Engine.Render(cmd.Context(), engine.RenderOptions{
		Template: tpl,
		Args:     args,
		Vars:     vars,
		Output:   cmdCtx.Cfg.Output,
		Script:   cmdCtx.Cfg.Script,
		Stdout:   cmd.OutOrStdout(),
	})
	if err != nil {
		if cmdCtx.Cfg.Debug && res != nil && res.Generated != nil {
			writeNumberedScript(cmd.ErrOrStderr(), res.Generated)
		}
		return err
	}

	cmdCtx.Logger.Debug("template rendered",
		"template", res.Template,
		"output", res.Output,
		"bytes", res.Bytes,
		"duration", res.Duration)
	return nil
}
