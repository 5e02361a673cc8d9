package commands

import (
	"github.com/leapstack-labs/starp/internal/engine"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [flags] <template> [args...]",
		Short: "Re-render a template whenever it or a lib file changes",
		Long: `Render a template, then render it again each time the template or a
.star file in the lib directory changes. Failures are reported and watching
continues. Stop with Ctrl-C.

Flags go before the template path; the rest of the line is the template's
argv.`,
		Example: `  # Keep report.md up to date while editing
  starp watch -o report.md report.tpl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], args[1:])
		},
	}
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringP("script", "p", "", "Write the generated script to this file")
	cmd.Flags().Int64("seed", 0, "Seed for the random module")
	cmd.Flags().Duration("debounce", 0, "Quiet period before re-rendering (default 100ms)")
	addVarFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, tpl string, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	vars, err := cmdCtx.Vars(cmd)
	if err != nil {
		return err
	}

	opts := engine.RenderOptions{
		Template: tpl,
		Args:     args,
		Vars:     vars,
		Output:   cmdCtx.Cfg.Output,
		Script:   cmdCtx.Cfg.Script,
		Stdout:   cmd.OutOrStdout(),
	}
	return cmdCtx.Engine.Watch(cmd.Context(), opts, func(res *engine.RenderResult, err error) {
		if err != nil {
			cmdCtx.Renderer.ReportError(err, cmdCtx.Cfg.Debug)
			return
		}
		cmdCtx.Logger.Info("rendered", "template", res.Template, "output", res.Output, "bytes", res.Bytes, "duration", res.Duration)
	})
}
