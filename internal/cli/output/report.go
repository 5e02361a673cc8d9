package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	starctx "github.com/leapstack-labs/starp/internal/starlark"
	"github.com/leapstack-labs/starp/internal/template"
)

// Error kinds.
const (
	KindStructural = "structural"
	KindSyntax     = "syntax"
	KindRuntime    = "runtime"
	KindInternal   = "internal"
	KindError      = "error"
)

// ErrorReport is the printable form of a failure.
type ErrorReport struct {
	Kind      string   `json:"kind"`
	File      string   `json:"file,omitempty"`
	Line      int      `json:"line,omitempty"`
	Column    int      `json:"column,omitempty"`
	Message   string   `json:"message"`
	Text      string   `json:"text,omitempty"`
	Traceback []string `json:"traceback,omitempty"`

	backtrace string
}

// NewErrorReport classifies err. Template-positioned errors keep their
// location and offending line; anything else becomes a plain message.
func NewErrorReport(err error) ErrorReport {
	var (
		structural *template.StructuralError
		syntaxErr  *starctx.HostSyntaxError
		runtimeErr *starctx.HostRuntimeError
		internal   *starctx.InternalError
	)
	switch {
	case errors.As(err, &structural):
		pos := structural.Position()
		return ErrorReport{
			Kind:    KindStructural,
			File:    pos.File,
			Line:    pos.Line,
			Column:  pos.Column,
			Message: structural.Message(),
			Text:    structural.Text,
		}
	case errors.As(err, &syntaxErr):
		return ErrorReport{
			Kind:    KindSyntax,
			File:    syntaxErr.Pos.File,
			Line:    syntaxErr.Pos.Line,
			Message: syntaxErr.Msg,
			Text:    syntaxErr.Text,
		}
	case errors.As(err, &runtimeErr):
		rep := ErrorReport{
			Kind:      KindRuntime,
			File:      runtimeErr.Pos.File,
			Line:      runtimeErr.Pos.Line,
			Message:   runtimeErr.Msg,
			Text:      runtimeErr.Text,
			backtrace: runtimeErr.Backtrace(),
		}
		for _, f := range runtimeErr.Traceback {
			rep.Traceback = append(rep.Traceback, f.String())
		}
		return rep
	case errors.As(err, &internal):
		return ErrorReport{Kind: KindInternal, File: internal.File, Message: internal.Error()}
	default:
		return ErrorReport{Kind: KindError, Message: err.Error()}
	}
}

// Location returns "file:line", or "" for errors without a template line.
func (e ErrorReport) Location() string {
	if e.File == "" || e.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", e.File, e.Line)
}

// Summary returns the one-line "file:line: message" form.
func (e ErrorReport) Summary() string {
	if loc := e.Location(); loc != "" {
		return loc + ": " + e.Message
	}
	return e.Message
}

// ReportError writes err to the diagnostics writer in the renderer's mode.
// With debug set, runtime errors include the mapped traceback.
func (r *Renderer) ReportError(err error, debug bool) {
	rep := NewErrorReport(err)
	switch r.EffectiveMode() {
	case ModeJSON:
		if !debug {
			rep.Traceback = nil
		}
		enc := jsonEncoder(r.errOut)
		_ = enc.Encode(map[string]ErrorReport{"error": rep})
	case ModeMarkdown:
		r.reportMarkdown(rep, debug)
	default:
		r.reportText(rep, debug)
	}
}

func (r *Renderer) reportText(rep ErrorReport, debug bool) {
	s := r.styles
	if rep.Location() == "" {
		_, _ = fmt.Fprintln(r.errOut, s.Error.Render("Error:")+" "+rep.Message)
	} else {
		_, _ = fmt.Fprintln(r.errOut, s.Bold.Render(rep.Location()+":")+" "+s.Error.Render(rep.Message))
	}
	if rep.Text != "" {
		_, _ = fmt.Fprintln(r.errOut, s.LineNo.Render(fmt.Sprintf("%5d |", rep.Line))+" "+rep.Text)
	}
	if rep.Kind == KindInternal {
		_, _ = fmt.Fprintln(r.errOut, s.Muted.Render("rerun with --debug to inspect the generated script"))
	}
	if debug && rep.backtrace != "" {
		_, _ = fmt.Fprintln(r.errOut)
		_, _ = fmt.Fprintln(r.errOut, s.Muted.Render(rep.backtrace))
	}
}

func (r *Renderer) reportMarkdown(rep ErrorReport, debug bool) {
	var b strings.Builder
	b.WriteString(FormatHeader(2, "Error"))
	b.WriteString("\n\n")
	if loc := rep.Location(); loc != "" {
		b.WriteString(FormatKeyValue("Location", "`"+loc+"`"))
		b.WriteByte('\n')
	}
	b.WriteString(FormatKeyValue("Kind", rep.Kind))
	b.WriteByte('\n')
	b.WriteString(FormatKeyValue("Message", rep.Message))
	b.WriteByte('\n')
	if rep.Text != "" {
		b.WriteByte('\n')
		b.WriteString(FormatCodeBlock("", fmt.Sprintf("%5d | %s", rep.Line, rep.Text)))
		b.WriteByte('\n')
	}
	if debug && rep.backtrace != "" {
		b.WriteByte('\n')
		b.WriteString(FormatCodeBlock("", rep.backtrace))
		b.WriteByte('\n')
	}
	_, _ = io.WriteString(r.errOut, b.String())
}
