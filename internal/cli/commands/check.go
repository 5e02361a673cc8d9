package commands

import (
	"fmt"

	"github.com/leapstack-labs/starp/internal/cli/output"
	"github.com/leapstack-labs/starp/internal/engine"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <template>...",
		Short: "Transpile and compile templates without running them",
		Long: `Check that templates transpile and that the generated scripts compile.
Templates are checked concurrently and every failure is reported against
its template line.`,
		Example: `  # Check every template in a directory
  starp check templates/*.tpl

  # Limit concurrency
  starp check a.tpl b.tpl --jobs 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}

	cmd.Flags().Int("jobs", 0, "Templates to check concurrently (default: one per CPU)")
	addVarFlags(cmd)
	return cmd
}

// CheckOutput is the JSON form of a check run.
type CheckOutput struct {
	Templates []CheckEntry `json:"templates"`
	Failed    int          `json:"failed"`
}

// CheckEntry is one checked template.
type CheckEntry struct {
	Template string              `json:"template"`
	OK       bool                `json:"ok"`
	Error    *output.ErrorReport `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, paths []string) error {
	cmdCtx := NewCommandContext(cmd)
	vars, err := cmdCtx.Vars(cmd)
	if err != nil {
		return err
	}

	results, err := cmdCtx.Engine.Check(cmd.Context(), paths, vars)
	if err != nil {
		return err
	}

	failed := renderCheckResults(cmdCtx.Renderer, results)
	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed", failed, len(results))
	}
	return nil
}

func renderCheckResults(r *output.Renderer, results []engine.CheckResult) int {
	out := CheckOutput{Templates: make([]CheckEntry, 0, len(results))}
	for _, res := range results {
		entry := CheckEntry{Template: res.Template, OK: res.Err == nil}
		if res.Err != nil {
			rep := output.NewErrorReport(res.Err)
			entry.Error = &rep
			out.Failed++
		}
		out.Templates = append(out.Templates, entry)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		_ = r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Check Results"))
		r.Println()
		for _, e := range out.Templates {
			if e.OK {
				r.Println(output.FormatKeyValue(e.Template, "ok"))
				continue
			}
			r.Println(output.FormatKeyValue(e.Template, "`"+e.Error.Summary()+"`"))
		}
		r.Println()
		r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d of %d", out.Failed, len(out.Templates))))
	default:
		s := r.Styles()
		for _, e := range out.Templates {
			if e.OK {
				r.Printf("%s %s\n", s.Success.Render("ok")+"  ", e.Template)
				continue
			}
			r.Printf("%s %s\n", s.Error.Render("FAIL"), e.Error.Summary())
			if e.Error.Text != "" {
				r.Printf("     %s %s\n", s.LineNo.Render(fmt.Sprintf("%5d |", e.Error.Line)), e.Error.Text)
			}
		}
	}
	return out.Failed
}
