package variability

import (
	"errors"
	"fmt"

	"github.com/logflow/logvar/internal/model"
)

// ErrMissingActivity is returned when an event carries no activity label.
// An explicitly empty label counts as missing, since no source format can
// tell the two apart once decoded.
var ErrMissingActivity = errors.New("variability: event has no activity label")

// Extract returns one activity sequence per trace, in log order.
// Labels are copied verbatim: nothing is filtered, deduplicated or rewritten.
// A trace without events yields an empty sequence.
func Extract(log *model.EventLog) ([]model.Sequence, error) {
	if log == nil {
		return nil, nil
	}
	seqs := make([]model.Sequence, len(log.Traces))
	for i := range log.Traces {
		seq, err := extractTrace(&log.Traces[i])
		if err != nil {
			return nil, fmt.Errorf("trace %d (case %q): %w", i, log.Traces[i].CaseID, err)
		}
		seqs[i] = seq
	}
	return seqs, nil
}

func extractTrace(t *model.Trace) (model.Sequence, error) {
	seq := make(model.Sequence, len(t.Events))
	for j := range t.Events {
		if !t.Events[j].HasActivity() {
			return nil, fmt.Errorf("event %d: %w", j, ErrMissingActivity)
		}
		seq[j] = t.Events[j].Activity
	}
	return seq, nil
}

// Lengths returns the event count of every trace, in log order.
func Lengths(log *model.EventLog) []int {
	if log == nil {
		return nil
	}
	lengths := make([]int, len(log.Traces))
	for i := range log.Traces {
		lengths[i] = log.Traces[i].Len()
	}
	return lengths
}
