package report

import (
	"encoding/json"
	"io"

	"github.com/logflow/logvar/pkg/diff"
	"github.com/logflow/logvar/pkg/driver"
	lverrors "github.com/logflow/logvar/pkg/errors"
)

// RunJSON is the machine-readable form of a run.
type RunJSON struct {
	RunID      string    `json:"run_id"`
	DurationMS int64     `json:"duration_ms"`
	Logs       []LogJSON `json:"logs"`
}

// LogJSON is the machine-readable form of one outcome.
type LogJSON struct {
	Name       string             `json:"name"`
	Path       string             `json:"path"`
	Traces     int                `json:"traces"`
	Variants   int                `json:"variants"`
	DurationMS int64              `json:"duration_ms"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Stage      string             `json:"stage,omitempty"`
	Code       string             `json:"code,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// NewRunJSON converts a run report.
func NewRunJSON(r *driver.Report) RunJSON {
	out := RunJSON{
		RunID:      r.RunID,
		DurationMS: r.Duration.Milliseconds(),
		Logs:       make([]LogJSON, 0, len(r.Outcomes)),
	}
	for i := range r.Outcomes {
		o := &r.Outcomes[i]
		l := LogJSON{
			Name:       o.Spec.Name,
			Path:       o.Spec.Path,
			Traces:     o.Traces,
			Variants:   o.Variants,
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.OK() {
			l.Metrics = o.Result.Map()
		} else {
			l.Stage = string(o.Stage)
			l.Code = string(lverrors.GetCode(o.Err))
			l.Error = errorSummary(o.Err)
		}
		out.Logs = append(out.Logs, l)
	}
	return out
}

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, r *driver.Report) error {
	return encode(w, NewRunJSON(r))
}

// WriteComparisonJSON writes a comparison as indented JSON.
func WriteComparisonJSON(w io.Writer, d *diff.Report) error {
	return encode(w, d)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
