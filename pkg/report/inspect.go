package report

import (
	"fmt"
	"io"
	"time"

	"github.com/logflow/logvar/pkg/inspect"
)

// RenderInspection prints the quality profile of one log.
func RenderInspection(w io.Writer, r *inspect.Report) {
	st := newStyles(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", st.title.Render("INSPECT"), r.Name)
	fmt.Fprintln(w, st.muted.Render("  ─────────────────────────────────────"))
	fmt.Fprintf(w, "  %s %s\n", st.label.Render("Traces"), formatNumber(int64(r.Cases)))
	fmt.Fprintf(w, "  %s %s\n", st.label.Render("Events"), formatNumber(int64(r.Events)))
	fmt.Fprintf(w, "  %s %d\n", st.label.Render("Activities"), r.DistinctActivities)
	if r.DistinctResources > 0 {
		fmt.Fprintf(w, "  %s %d\n", st.label.Render("Resources"), r.DistinctResources)
	}
	if !r.MinTimestamp.IsZero() {
		fmt.Fprintf(w, "  %s %s → %s\n", st.label.Render("Time range"),
			r.MinTimestamp.Format(time.RFC3339), r.MaxTimestamp.Format(time.RFC3339))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.accent.Render("  ▸ COMPLETENESS"))
	c := r.Completeness
	fmt.Fprintf(w, "    %s %5.1f%%  %s\n", st.label.Render("Activity"), c.ActivityPct, st.muted.Render(fmt.Sprintf("%d missing", c.MissingActivities)))
	fmt.Fprintf(w, "    %s %5.1f%%  %s\n", st.label.Render("Timestamp"), c.TimestampPct, st.muted.Render(fmt.Sprintf("%d missing", c.MissingTimestamps)))
	fmt.Fprintf(w, "    %s %5.1f%%  %s\n", st.label.Render("Resource"), c.ResourcePct, st.muted.Render(fmt.Sprintf("%d missing", c.MissingResources)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.accent.Render("  ▸ TRACE LENGTHS"))
	l := r.Lengths
	fmt.Fprintf(w, "    min %d · median %d · mean %.1f · max %d\n", l.Min, l.Median, l.Mean, l.Max)

	if len(r.TopActivities) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.accent.Render("  ▸ TOP ACTIVITIES"))
		for _, a := range r.TopActivities {
			fmt.Fprintf(w, "    %s %d\n", st.label.Render(truncate(a.Label)), a.Count)
		}
	}

	fmt.Fprintln(w)
	if len(r.Issues) == 0 {
		fmt.Fprintln(w, st.success.Render("  ✓ no issues found"))
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, st.accent.Render("  ▸ ISSUES"))
	for _, is := range r.Issues {
		mark := st.muted.Render("!")
		if is.Severity == inspect.SeverityError {
			mark = st.accent.Render("✗")
		}
		fmt.Fprintf(w, "    %s %s %s\n", mark, is.Description, st.muted.Render(fmt.Sprintf("(%d)", is.Affected)))
	}
	fmt.Fprintln(w)
}

// WriteInspectionJSON writes a quality profile as indented JSON.
func WriteInspectionJSON(w io.Writer, r *inspect.Report) error {
	return encode(w, r)
}

func truncate(s string) string {
	if len(s) > labelWidth-2 {
		return s[:labelWidth-5] + "..."
	}
	return s
}
