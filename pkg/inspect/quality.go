// Package inspect reports data quality problems of an event log that affect
// its variability metrics.
package inspect

import (
	"fmt"
	"sort"
	"time"

	"github.com/logflow/logvar/internal/model"
)

// Severity grades a quality issue.
type Severity string

const (
	SeverityError   Severity = "error"   // variability cannot be computed
	SeverityWarning Severity = "warning" // metrics are computed but may mislead
)

// Report contains the quality profile of one event log.
type Report struct {
	Name   string `json:"name"`
	Events int    `json:"events"`
	Cases  int    `json:"cases"`

	MinTimestamp time.Time     `json:"min_timestamp,omitzero"`
	MaxTimestamp time.Time     `json:"max_timestamp,omitzero"`
	TimeSpan     time.Duration `json:"time_span_ns"`

	Completeness Completeness `json:"completeness"`
	Lengths      Lengths      `json:"trace_lengths"`

	DistinctActivities int `json:"distinct_activities"`
	DistinctResources  int `json:"distinct_resources"`
	DuplicateEvents    int `json:"duplicate_events"`
	OutOfOrderEvents   int `json:"out_of_order_events"`
	DuplicateCaseIDs   int `json:"duplicate_case_ids"`

	TopActivities []Count `json:"top_activities"`
	TopResources  []Count `json:"top_resources,omitempty"`

	Issues []Issue `json:"issues,omitempty"`
}

// Completeness counts events lacking a standard attribute.
type Completeness struct {
	MissingActivities int     `json:"missing_activities"`
	MissingTimestamps int     `json:"missing_timestamps"`
	MissingResources  int     `json:"missing_resources"`
	ActivityPct       float64 `json:"activity_complete_pct"`
	TimestampPct      float64 `json:"timestamp_complete_pct"`
	ResourcePct       float64 `json:"resource_complete_pct"`
}

// Lengths summarizes the number of events per trace.
type Lengths struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Median int     `json:"median"`
	Mean   float64 `json:"mean"`
	Empty  int     `json:"empty"`
	Single int     `json:"single"`
}

// Count is a label and its number of occurrences.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Issue describes one quality problem.
type Issue struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Affected    int      `json:"affected"`
}

// topN is the number of activities and resources listed.
const topN = 10

type eventKey struct {
	activity  string
	timestamp int64
}

// Inspect profiles log. It never fails; a nil log yields an empty report.
func Inspect(log *model.EventLog) *Report {
	r := &Report{}
	if log == nil {
		return r
	}
	r.Name = log.Name
	r.Cases = log.Len()

	activities := make(map[string]int)
	resources := make(map[string]int)
	caseIDs := make(map[string]int, log.Len())
	lengths := make([]int, 0, log.Len())
	var minTS, maxTS int64

	for i := range log.Traces {
		t := &log.Traces[i]
		lengths = append(lengths, t.Len())
		caseIDs[t.CaseID]++

		seen := make(map[eventKey]struct{}, t.Len())
		var last int64
		for j := range t.Events {
			e := &t.Events[j]
			r.Events++

			if e.HasActivity() {
				activities[e.Activity]++
			} else {
				r.Completeness.MissingActivities++
			}
			if e.Resource != "" {
				resources[e.Resource]++
			} else {
				r.Completeness.MissingResources++
			}

			if e.Timestamp == 0 {
				r.Completeness.MissingTimestamps++
			} else {
				if minTS == 0 || e.Timestamp < minTS {
					minTS = e.Timestamp
				}
				if e.Timestamp > maxTS {
					maxTS = e.Timestamp
				}
				if e.Timestamp < last {
					r.OutOfOrderEvents++
				}
				last = e.Timestamp

				k := eventKey{e.Activity, e.Timestamp}
				if _, dup := seen[k]; dup {
					r.DuplicateEvents++
				}
				seen[k] = struct{}{}
			}
		}
	}

	if minTS != 0 {
		r.MinTimestamp = time.Unix(0, minTS).UTC()
		r.MaxTimestamp = time.Unix(0, maxTS).UTC()
		r.TimeSpan = time.Duration(maxTS - minTS)
	}
	for _, n := range caseIDs {
		if n > 1 {
			r.DuplicateCaseIDs += n - 1
		}
	}

	r.Completeness.ActivityPct = completePct(r.Events, r.Completeness.MissingActivities)
	r.Completeness.TimestampPct = completePct(r.Events, r.Completeness.MissingTimestamps)
	r.Completeness.ResourcePct = completePct(r.Events, r.Completeness.MissingResources)

	r.Lengths = summarizeLengths(lengths)
	r.DistinctActivities = len(activities)
	r.DistinctResources = len(resources)
	r.TopActivities = top(activities, topN)
	r.TopResources = top(resources, topN)
	r.Issues = detectIssues(r)
	return r
}

// OK reports whether the log has no error-level issue.
func (r *Report) OK() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return false
		}
	}
	return true
}

func completePct(total, missing int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(total-missing) / float64(total)
}

func summarizeLengths(lengths []int) Lengths {
	var l Lengths
	if len(lengths) == 0 {
		return l
	}
	sorted := append([]int(nil), lengths...)
	sort.Ints(sorted)

	total := 0
	for _, n := range sorted {
		total += n
		switch n {
		case 0:
			l.Empty++
		case 1:
			l.Single++
		}
	}
	l.Min = sorted[0]
	l.Max = sorted[len(sorted)-1]
	l.Median = sorted[len(sorted)/2]
	l.Mean = float64(total) / float64(len(sorted))
	return l
}

// top returns the n most frequent labels, ties broken by label.
func top(m map[string]int, n int) []Count {
	counts := make([]Count, 0, len(m))
	for k, v := range m {
		counts = append(counts, Count{Label: k, Count: v})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func detectIssues(r *Report) []Issue {
	var issues []Issue
	add := func(sev Severity, affected int, format string, args ...any) {
		if affected > 0 {
			issues = append(issues, Issue{Severity: sev, Description: fmt.Sprintf(format, args...), Affected: affected})
		}
	}

	add(SeverityError, r.Completeness.MissingActivities, "events without an activity label")
	add(SeverityWarning, r.Completeness.MissingTimestamps, "events without a timestamp")
	add(SeverityWarning, r.OutOfOrderEvents, "events earlier than their predecessor in the trace")
	add(SeverityWarning, r.DuplicateEvents, "duplicate events (same case, activity and timestamp)")
	add(SeverityWarning, r.DuplicateCaseIDs, "traces sharing a case ID with an earlier trace")
	add(SeverityWarning, r.Lengths.Empty, "traces without events")

	if r.Cases < 2 {
		add(SeverityWarning, 1, "fewer than two traces: edit distance variability is 0")
	}
	if r.Cases > 0 && float64(r.Lengths.Single)/float64(r.Cases) > 0.3 {
		add(SeverityWarning, r.Lengths.Single,
			"%.1f%% of traces have one event, check the case ID column", 100*float64(r.Lengths.Single)/float64(r.Cases))
	}
	return issues
}
