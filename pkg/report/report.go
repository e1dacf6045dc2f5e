// Package report renders analysis results for the console and as JSON.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/logflow/logvar/pkg/diff"
	"github.com/logflow/logvar/pkg/driver"
	"github.com/logflow/logvar/pkg/variability"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// styles are bound to the output's renderer so that color is only emitted
// on terminals.
type styles struct {
	title   lipgloss.Style
	accent  lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	label   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(white),
		accent:  r.NewStyle().Foreground(accent).Bold(true),
		muted:   r.NewStyle().Foreground(muted),
		success: r.NewStyle().Foreground(success).Bold(true),
		label:   r.NewStyle().Foreground(muted).Width(labelWidth),
	}
}

const labelWidth = 28

// Render prints one block per log: its three metrics, or why it failed.
func Render(w io.Writer, r *driver.Report) {
	st := newStyles(w)

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.title.Render("  LOGVAR")+st.muted.Render("  run "+shortID(r.RunID)))

	for i := range r.Outcomes {
		out := &r.Outcomes[i]
		fmt.Fprintln(w)
		if !out.OK() {
			fmt.Fprintf(w, "  %s %s\n", st.accent.Render("✗"), st.title.Render(out.Spec.Name))
			fmt.Fprintf(w, "    %s %s\n", st.muted.Render(failureLabel(out.Stage)+":"), errorSummary(out.Err))
			continue
		}

		fmt.Fprintf(w, "  %s %s %s\n",
			st.success.Render("▸"),
			st.title.Render(out.Spec.Name),
			st.muted.Render(fmt.Sprintf("%s traces · %s variants · %s",
				formatNumber(int64(out.Traces)), formatNumber(int64(out.Variants)), formatDuration(out.Duration))))
		for _, m := range out.Result.Metrics() {
			fmt.Fprintf(w, "    %s %s\n", st.label.Render(m.Name), formatMetric(m))
		}
	}

	fmt.Fprintln(w)
	ok := len(r.Outcomes) - r.Failed()
	summary := fmt.Sprintf("  %d of %d logs analyzed", ok, len(r.Outcomes))
	if r.Failed() == 0 {
		fmt.Fprintln(w, st.success.Render(summary))
	} else {
		fmt.Fprintln(w, st.accent.Render(summary))
	}
	fmt.Fprintln(w)
}

// RenderComparison prints the metric deltas and activity drift of two logs.
func RenderComparison(w io.Writer, d *diff.Report) {
	st := newStyles(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s → %s\n", st.title.Render("COMPARE"), d.Left, d.Right)
	fmt.Fprintln(w, st.muted.Render("  ─────────────────────────────────────"))
	fmt.Fprintf(w, "  %s %d → %d (%+d)\n", st.label.Render("Cases"), d.LeftCaseCount, d.RightCaseCount, d.RightCaseCount-d.LeftCaseCount)
	fmt.Fprintf(w, "  %s %d → %d (%+d)\n", st.label.Render("Events"), d.LeftEventCount, d.RightEventCount, d.RightEventCount-d.LeftEventCount)
	if d.AvgCaseDurationLeft > 0 || d.AvgCaseDurationRight > 0 {
		fmt.Fprintf(w, "  %s %s → %s (%+.1f%%)\n", st.label.Render("Avg case duration"),
			d.AvgCaseDurationLeft.Round(time.Minute), d.AvgCaseDurationRight.Round(time.Minute), d.CaseDurationDelta)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.accent.Render("  ▸ VARIABILITY"))
	for _, m := range d.Metrics {
		delta := formatSigned(m.Name, m.Delta)
		if m.Delta != 0 {
			delta = st.title.Render(delta)
		} else {
			delta = st.muted.Render(delta)
		}
		fmt.Fprintf(w, "    %s %s → %s  %s\n", st.label.Render(m.Name),
			formatValue(m.Name, m.Before), formatValue(m.Name, m.After), delta)
	}

	if len(d.NewActivities) > 0 || len(d.RemovedActivities) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.accent.Render("  ▸ DRIFT"))
		if len(d.NewActivities) > 0 {
			fmt.Fprintf(w, "    %s %s\n", st.label.Render("New activities"), strings.Join(d.NewActivities, ", "))
		}
		if len(d.RemovedActivities) > 0 {
			fmt.Fprintf(w, "    %s %s\n", st.label.Render("Removed activities"), strings.Join(d.RemovedActivities, ", "))
		}
	}

	if len(d.ActivityChanges) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.accent.Render("  ▸ ACTIVITY CHANGES")+st.muted.Render(" (top 10)"))
		for i, ch := range d.ActivityChanges {
			if i == 10 {
				break
			}
			fmt.Fprintf(w, "    %s %6d → %-6d %+7.1f%%  %s\n", st.label.Render(truncate(ch.Activity)),
				ch.LeftCount, ch.RightCount, ch.PercentDelta, st.muted.Render(string(ch.Significance)))
		}
	}
	fmt.Fprintln(w)
}

func failureLabel(stage driver.Stage) string {
	switch stage {
	case driver.StageLoad:
		return "skipped"
	case driver.StageCompute:
		return "error processing log"
	default:
		return "failed"
	}
}

func errorSummary(err error) string {
	if err == nil {
		return "no result"
	}
	return err.Error()
}

func formatMetric(m variability.Metric) string {
	return formatValue(m.Name, m.Value)
}

// formatValue prints the variant count as an integer and ratios with four
// decimals.
func formatValue(name string, v float64) string {
	if name == variability.MetricVariantVariability {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatSigned(name string, v float64) string {
	s := formatValue(name, v)
	if v >= 0 {
		return "+" + s
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}
