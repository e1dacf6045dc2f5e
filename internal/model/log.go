// Package model defines the in-memory event log analyzed by logvar.
package model

// Standard XES attribute keys.
const (
	KeyConceptName = "concept:name"
	KeyTimestamp   = "time:timestamp"
	KeyResource    = "org:resource"
	KeyLifecycle   = "lifecycle:transition"
)

// Event is a single activity occurrence within a trace.
// Timestamps are stored as nanoseconds since Unix epoch; zero means unknown.
type Event struct {
	// Activity is the activity label. An empty label means the event
	// carried no concept:name attribute.
	Activity string

	Timestamp int64

	Resource string

	// Attributes holds any additional key-value pairs found in the source.
	Attributes []Attribute
}

// HasActivity reports whether the event carries a non-empty activity label.
func (e *Event) HasActivity() bool {
	return e.Activity != ""
}

// Attribute is a key-value pair of event metadata.
type Attribute struct {
	Key   string
	Value string
	Type  AttrType
}

// AttrType indicates the semantic type of an attribute value.
type AttrType uint8

const (
	AttrTypeString AttrType = iota
	AttrTypeInt
	AttrTypeFloat
	AttrTypeBool
	AttrTypeTimestamp
)

// Trace is the ordered record of one process instance.
type Trace struct {
	CaseID string
	Events []Event
}

// Len returns the number of events in the trace.
func (t *Trace) Len() int {
	return len(t.Events)
}

// EventLog is an ordered collection of traces. It is never mutated once a
// loader has returned it.
type EventLog struct {
	// Name is a display name, usually the file base name.
	Name   string
	Traces []Trace
}

// Len returns the number of traces.
func (l *EventLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Traces)
}

// EventCount returns the total number of events across all traces.
func (l *EventLog) EventCount() int {
	if l == nil {
		return 0
	}
	n := 0
	for i := range l.Traces {
		n += len(l.Traces[i].Events)
	}
	return n
}

// Sequence is the ordered list of activity labels of one trace.
type Sequence []string

// Equal reports whether two sequences hold the same labels in the same order.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}
