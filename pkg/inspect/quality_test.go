package inspect

import (
	"testing"
	"time"

	"github.com/logflow/logvar/internal/model"
)

func ts(h int) int64 {
	return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC).UnixNano()
}

func TestInspect(t *testing.T) {
	log := &model.EventLog{
		Name: "orders",
		Traces: []model.Trace{
			{CaseID: "1", Events: []model.Event{
				{Activity: "a", Timestamp: ts(1), Resource: "ann"},
				{Activity: "b", Timestamp: ts(2), Resource: "bob"},
				{Activity: "b", Timestamp: ts(2)},
			}},
			{CaseID: "2", Events: []model.Event{
				{Activity: "a", Timestamp: ts(5), Resource: "ann"},
				{Activity: "c", Timestamp: ts(3)},
			}},
			{CaseID: "2", Events: []model.Event{
				{Activity: "a"},
			}},
		},
	}

	r := Inspect(log)

	if r.Name != "orders" || r.Events != 6 || r.Cases != 3 {
		t.Fatalf("counts = %s/%d/%d", r.Name, r.Events, r.Cases)
	}
	if r.Completeness.MissingTimestamps != 1 || r.Completeness.MissingResources != 3 {
		t.Errorf("completeness = %+v", r.Completeness)
	}
	if r.DuplicateEvents != 1 {
		t.Errorf("duplicates = %d, want 1", r.DuplicateEvents)
	}
	if r.OutOfOrderEvents != 1 {
		t.Errorf("out of order = %d, want 1", r.OutOfOrderEvents)
	}
	if r.DuplicateCaseIDs != 1 {
		t.Errorf("duplicate case ids = %d, want 1", r.DuplicateCaseIDs)
	}
	if r.TimeSpan != 4*time.Hour {
		t.Errorf("time span = %v, want 4h", r.TimeSpan)
	}

	wantLengths := Lengths{Min: 1, Max: 3, Median: 2, Mean: 2, Single: 1}
	if r.Lengths != wantLengths {
		t.Errorf("lengths = %+v, want %+v", r.Lengths, wantLengths)
	}

	if len(r.TopActivities) != 3 || r.TopActivities[0] != (Count{"a", 3}) || r.TopActivities[1] != (Count{"b", 2}) {
		t.Errorf("top activities = %v", r.TopActivities)
	}
	if !r.OK() {
		t.Errorf("log without missing activities should be OK: %+v", r.Issues)
	}
}

func TestInspectMissingActivity(t *testing.T) {
	log := &model.EventLog{Traces: []model.Trace{
		{CaseID: "1", Events: []model.Event{{Activity: "a"}, {}}},
		{CaseID: "2", Events: []model.Event{{Activity: "a"}}},
	}}

	r := Inspect(log)
	if r.OK() {
		t.Fatal("missing activity should be an error")
	}
	if r.Completeness.MissingActivities != 1 || r.Completeness.ActivityPct != 100*2.0/3.0 {
		t.Errorf("completeness = %+v", r.Completeness)
	}
}

func TestInspectEmpty(t *testing.T) {
	tests := []struct {
		name string
		log  *model.EventLog
	}{
		{"nil", nil},
		{"no traces", &model.EventLog{}},
		{"empty trace", &model.EventLog{Traces: []model.Trace{{CaseID: "1"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Inspect(tt.log)
			if r.Events != 0 || !r.MinTimestamp.IsZero() {
				t.Errorf("got %+v", r)
			}
			if !r.OK() {
				t.Errorf("empty logs have no errors: %+v", r.Issues)
			}
		})
	}
}
