package driver

import (
	"time"

	lverrors "github.com/logflow/logvar/pkg/errors"
	"github.com/logflow/logvar/pkg/variability"
)

// Stage identifies where a log failed.
type Stage string

const (
	StageLoad    Stage = "load"
	StageCompute Stage = "compute"
)

// Outcome is the result of processing one log. Exactly one of Result and
// Err is set.
type Outcome struct {
	Spec     LogSpec
	Traces   int
	Variants int
	Result   *variability.Result
	Err      error
	Stage    Stage
	Duration time.Duration
}

// OK reports whether the log was analyzed.
func (o *Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// Report collects the outcomes of one run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
}

// Failed returns the number of logs that failed.
func (r *Report) Failed() int {
	n := 0
	for i := range r.Outcomes {
		if !r.Outcomes[i].OK() {
			n++
		}
	}
	return n
}

// AllFailed reports whether no log could be analyzed. An empty run has not
// failed.
func (r *Report) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Failed() == len(r.Outcomes)
}

// Err combines the errors of all failed logs, or returns nil.
func (r *Report) Err() error {
	var errs lverrors.MultiError
	for i := range r.Outcomes {
		errs.Add(r.Outcomes[i].Err)
	}
	return errs.Combined()
}
