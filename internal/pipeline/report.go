package pipeline

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Result is one plugin execution against one target. Instance is empty for
// run-wide plugins.
type Result struct {
	Plugin   string
	Order    float64
	Instance string
	Err      error
	Skipped  bool
	Reason   string
}

// Report is the operator-facing outcome of a run.
type Report struct {
	RunID   string
	Results []Result
}

func (r *Report) add(result Result) {
	r.Results = append(r.Results, result)
}

// Failed reports whether any plugin errored.
func (r *Report) Failed() bool {
	for _, result := range r.Results {
		if result.Err != nil {
			return true
		}
	}
	return false
}

// Failures returns the failed results only.
func (r *Report) Failures() []Result {
	var out []Result
	for _, result := range r.Results {
		if result.Err != nil {
			out = append(out, result)
		}
	}
	return out
}

// Render writes the plain-text run report, wrapped to width where long.
func (r *Report) Render(width int) string {
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunID)
	for _, result := range r.Results {
		status := "ok"
		detail := ""
		switch {
		case result.Err != nil:
			status = "failed"
			detail = result.Err.Error()
		case result.Skipped:
			status = "skipped"
			detail = result.Reason
		}

		target := result.Instance
		if target == "" {
			target = "-"
		}
		line := fmt.Sprintf("%-7s %-30s %s", status, result.Plugin, target)
		if detail != "" {
			line = fmt.Sprintf("%s: %s", line, detail)
		}
		b.WriteString(text.Snip(line, width, "…"))
		b.WriteByte('\n')
	}
	return b.String()
}
