package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/starp/internal/cli/output"
	"github.com/leapstack-labs/starp/internal/template"
	"github.com/spf13/cobra"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var showMap bool

	cmd := &cobra.Command{
		Use:   "compile <template>",
		Short: "Print the Starlark script generated for a template",
		Long: `Transpile a template and print the generated Starlark script without
running it. With --map, print the line map from generated lines back to
template lines instead.`,
		Example: `  # Show the generated script
  starp compile report.tpl

  # Show the line map as a table
  starp compile report.tpl --map

  # Line map as JSON
  starp compile report.tpl --map --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			gen, err := cmdCtx.Engine.Transpile(args[0])
			if err != nil {
				return err
			}
			if showMap {
				return renderLineMap(cmdCtx.Renderer, gen)
			}
			renderScript(cmdCtx.Renderer, gen)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMap, "map", false, "Print the generated-to-template line map")
	return cmd
}

// LineMapEntry is one row of the line map.
type LineMapEntry struct {
	Generated int    `json:"generated"`
	Template  int    `json:"template"`
	Code      string `json:"code"`
}

func renderScript(r *output.Renderer, gen *template.GeneratedSource) {
	switch r.EffectiveMode() {
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Generated script: "+gen.Filename))
		r.Println()
		r.Println(output.FormatCodeBlock("python", gen.Script()))
	default:
		r.Printf("%s", gen.Script())
	}
}

func renderLineMap(r *output.Renderer, gen *template.GeneratedSource) error {
	entries := make([]LineMapEntry, len(gen.Lines))
	for i, line := range gen.Lines {
		entries[i] = LineMapEntry{Generated: i + 1, Template: line.SourceLine, Code: line.Text}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"template": gen.Filename, "lines": entries})
	}

	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		var tpl any = "-"
		if e.Template > 0 {
			tpl = e.Template
		}
		rows[i] = table.Row{e.Generated, tpl, e.Code, gen.SourceText(e.Template)}
	}
	r.Table(table.Row{"Generated", "Template", "Code", "Source"}, rows)
	return nil
}
