package yallarender

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// RenderError writes a single labelled error line, the shape spec.md
// §4.5's "Error handling" subsection requires for every error kind
// (parse, runtime, unknown command).
func (r *Renderer) RenderError(out io.Writer, label, message string) {
	fmt.Fprintln(out, r.style(errorStyle, label+": "+message))
}

// RenderSourceContext writes the three-line window of source centered
// on line (1-based) with the offending line marked, per spec.md §4.5's
// syntax-error contract.
func (r *Renderer) RenderSourceContext(out io.Writer, lines []string, line int) {
	start := line - 1
	if start < 1 {
		start = 1
	}
	end := line + 1
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i <= end; i++ {
		marker := "  "
		if i == line {
			marker = r.style(errorStyle, "> ")
		}
		fmt.Fprintf(out, "%s%d | %s\n", marker, i, lines[i-1])
	}
}

// RenderStackTrace writes trace, one frame per line, dimmed.
func (r *Renderer) RenderStackTrace(out io.Writer, trace string) {
	fmt.Fprintln(out, r.style(dimStyle, trace))
}

// RenderSuggestion writes the "did you mean" line spec.md §4.5 step 5
// requires for an unknown REPL command.
func (r *Renderer) RenderSuggestion(out io.Writer, name string) {
	fmt.Fprintln(out, r.style(dimStyle, "did you mean: :"+name+"?"))
}

// RenderPerformanceLine writes the auxiliary elapsed/memory line
// spec.md §4.5 step 7 requires when display.performance is set,
// color-graded by PerformanceColor. memDeltaBytes may be negative
// (memory freed between reads).
func (r *Renderer) RenderPerformanceLine(out io.Writer, elapsedMS int64, memDeltaBytes int64) {
	style := PerformanceColor(elapsedMS)
	sign := ""
	abs := memDeltaBytes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	mem := sign + humanize.Bytes(uint64(abs))
	fmt.Fprintln(out, r.style(style, fmt.Sprintf("(%dms, %s)", elapsedMS, mem)))
}
