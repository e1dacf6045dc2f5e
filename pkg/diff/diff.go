// Package diff compares two event logs, typically the same process before
// and after a change, to surface concept drift.
package diff

import (
	"math"
	"sort"
	"time"

	"github.com/logflow/logvar/internal/model"
	"github.com/logflow/logvar/pkg/variability"
)

// Report contains the differences between two logs.
type Report struct {
	Left  string `json:"left"`
	Right string `json:"right"`

	// Summary statistics
	LeftEventCount  int `json:"left_events"`
	RightEventCount int `json:"right_events"`
	LeftCaseCount   int `json:"left_cases"`
	RightCaseCount  int `json:"right_cases"`

	// Metrics holds the variability metrics of both logs in report order.
	Metrics []MetricDelta `json:"metrics"`

	// Case duration changes
	AvgCaseDurationLeft  time.Duration `json:"avg_case_duration_left_ns"`
	AvgCaseDurationRight time.Duration `json:"avg_case_duration_right_ns"`
	CaseDurationDelta    float64       `json:"case_duration_delta_pct"` // Percentage change

	ActivityChanges []ActivityChange `json:"activity_changes"`

	// Process drift indicators
	NewActivities     []string `json:"new_activities,omitempty"`
	RemovedActivities []string `json:"removed_activities,omitempty"`
}

// MetricDelta is one metric measured on both logs.
type MetricDelta struct {
	Name   string  `json:"name"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Delta  float64 `json:"delta"`
}

// Significance classifies an activity frequency change.
type Significance string

const (
	New       Significance = "new"
	Removed   Significance = "removed"
	Stable    Significance = "stable"
	Increased Significance = "increased"
	Decreased Significance = "decreased"
)

// ActivityChange represents a change in activity frequency.
type ActivityChange struct {
	Activity     string       `json:"activity"`
	LeftCount    int          `json:"left_count"`
	RightCount   int          `json:"right_count"`
	LeftPercent  float64      `json:"left_percent"`
	RightPercent float64      `json:"right_percent"`
	PercentDelta float64      `json:"percent_delta"` // Positive means increased in right
	Significance Significance `json:"significance"`
}

// stableThreshold is the share change, in percentage points, below which an
// activity counts as stable.
const stableThreshold = 1.0

// Compare computes the metrics of both logs and their differences. It
// fails when either log cannot be measured.
func Compare(c *variability.Engine, left, right *model.EventLog) (*Report, error) {
	if c == nil {
		c = variability.NewEngine()
	}
	lres, err := c.Compute(left)
	if err != nil {
		return nil, err
	}
	rres, err := c.Compute(right)
	if err != nil {
		return nil, err
	}
	return Analyze(left, right, lres, rres), nil
}

// Analyze builds a report from two logs and their precomputed metrics.
func Analyze(left, right *model.EventLog, lres, rres *variability.Result) *Report {
	ls, rs := summarize(left), summarize(right)
	report := &Report{
		Left:                 left.Name,
		Right:                right.Name,
		LeftEventCount:       ls.events,
		RightEventCount:      rs.events,
		LeftCaseCount:        left.Len(),
		RightCaseCount:       right.Len(),
		AvgCaseDurationLeft:  ls.avgDuration(),
		AvgCaseDurationRight: rs.avgDuration(),
	}

	lm, rm := lres.Metrics(), rres.Metrics()
	for i := range lm {
		report.Metrics = append(report.Metrics, MetricDelta{
			Name:   lm[i].Name,
			Before: lm[i].Value,
			After:  rm[i].Value,
			Delta:  rm[i].Value - lm[i].Value,
		})
	}

	if report.AvgCaseDurationLeft > 0 {
		report.CaseDurationDelta = float64(report.AvgCaseDurationRight-report.AvgCaseDurationLeft) /
			float64(report.AvgCaseDurationLeft) * 100
	}

	report.ActivityChanges = activityChanges(ls, rs)
	for _, ch := range report.ActivityChanges {
		switch ch.Significance {
		case New:
			report.NewActivities = append(report.NewActivities, ch.Activity)
		case Removed:
			report.RemovedActivities = append(report.RemovedActivities, ch.Activity)
		}
	}
	sort.Strings(report.NewActivities)
	sort.Strings(report.RemovedActivities)

	return report
}

// logStats holds per-log activity counts and case timings.
type logStats struct {
	events     int
	activities map[string]int
	durations  []int64
}

func summarize(log *model.EventLog) *logStats {
	s := &logStats{activities: make(map[string]int)}
	for _, tr := range log.Traces {
		minTime, maxTime := int64(math.MaxInt64), int64(math.MinInt64)
		for _, ev := range tr.Events {
			s.events++
			s.activities[ev.Activity]++
			if ev.Timestamp == 0 {
				continue
			}
			minTime = min(minTime, ev.Timestamp)
			maxTime = max(maxTime, ev.Timestamp)
		}
		if minTime != math.MaxInt64 {
			s.durations = append(s.durations, maxTime-minTime)
		}
	}
	return s
}

func (s *logStats) avgDuration() time.Duration {
	if len(s.durations) == 0 {
		return 0
	}
	var total int64
	for _, d := range s.durations {
		total += d
	}
	return time.Duration(total / int64(len(s.durations)))
}

func activityChanges(left, right *logStats) []ActivityChange {
	all := make(map[string]struct{}, len(left.activities)+len(right.activities))
	for act := range left.activities {
		all[act] = struct{}{}
	}
	for act := range right.activities {
		all[act] = struct{}{}
	}

	changes := make([]ActivityChange, 0, len(all))
	for activity := range all {
		lc, rc := left.activities[activity], right.activities[activity]
		change := ActivityChange{
			Activity:     activity,
			LeftCount:    lc,
			RightCount:   rc,
			LeftPercent:  percent(lc, left.events),
			RightPercent: percent(rc, right.events),
		}
		change.PercentDelta = change.RightPercent - change.LeftPercent

		switch {
		case lc == 0:
			change.Significance = New
		case rc == 0:
			change.Significance = Removed
		case math.Abs(change.PercentDelta) < stableThreshold:
			change.Significance = Stable
		case change.PercentDelta > 0:
			change.Significance = Increased
		default:
			change.Significance = Decreased
		}
		changes = append(changes, change)
	}

	// Most significant changes first; ties by name for stable output.
	sort.Slice(changes, func(i, j int) bool {
		di, dj := math.Abs(changes[i].PercentDelta), math.Abs(changes[j].PercentDelta)
		if di != dj {
			return di > dj
		}
		return changes[i].Activity < changes[j].Activity
	})
	return changes
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
