package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/starp/internal/cli/output"
	"github.com/leapstack-labs/starp/internal/lib"
	"github.com/spf13/cobra"
)

// NewLibsCommand creates the libs command.
func NewLibsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libs",
		Short: "List functions exported by the lib directory",
		Long: `List the namespaces and functions defined by the .star files in the lib
directory. Each file is a namespace named after the file, callable from
templates as name.function(...).`,
		Example: `  starp libs
  starp libs --lib helpers --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			namespaces, err := lib.Describe(cmdCtx.Cfg.LibDir)
			if err != nil {
				return err
			}
			return renderLibs(cmdCtx.Renderer, cmdCtx.Cfg.LibDir, namespaces)
		},
	}
	cmd.Flags().String("lib", "", "Directory of .star helper files")
	return cmd
}

// LibFunction is the JSON form of one lib function.
type LibFunction struct {
	Namespace string `json:"namespace"`
	*lib.FuncDoc
	File string `json:"file"`
}

func renderLibs(r *output.Renderer, dir string, namespaces []*lib.NamespaceDoc) error {
	var funcs []LibFunction
	for _, ns := range namespaces {
		for _, f := range ns.Funcs {
			funcs = append(funcs, LibFunction{Namespace: ns.Namespace, FuncDoc: f, File: ns.Path})
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if funcs == nil {
			funcs = []LibFunction{}
		}
		return r.JSON(map[string]any{"lib_dir": dir, "functions": funcs})
	}

	if len(funcs) == 0 {
		r.Println(r.Styles().Muted.Render(fmt.Sprintf("no lib functions found in %s", dir)))
		return nil
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Lib functions"))
		r.Println()
	}
	rows := make([]table.Row, len(funcs))
	for i, f := range funcs {
		rows[i] = table.Row{
			f.Namespace + "." + f.Signature(),
			f.Summary(),
			fmt.Sprintf("%s:%d", f.File, f.Line),
		}
	}
	r.Table(table.Row{"Function", "Description", "Defined"}, rows)
	return nil
}
