package loader

import (
	"sort"

	"github.com/logflow/logvar/internal/model"
)

// caseGrouper assembles traces from a flat event table. Cases keep the
// order in which they first appear; events keep row order within a case.
type caseGrouper struct {
	index  map[string]int
	traces []model.Trace
}

func newCaseGrouper() *caseGrouper {
	return &caseGrouper{index: make(map[string]int)}
}

func (g *caseGrouper) add(caseID string, ev model.Event) {
	i, ok := g.index[caseID]
	if !ok {
		i = len(g.traces)
		g.index[caseID] = i
		g.traces = append(g.traces, model.Trace{CaseID: caseID})
	}
	g.traces[i].Events = append(g.traces[i].Events, ev)
}

// log returns the grouped traces. With sortByTime, a case whose events all
// carry a timestamp is stable-sorted by time.
func (g *caseGrouper) log(sortByTime bool) *model.EventLog {
	if sortByTime {
		for i := range g.traces {
			sortTrace(&g.traces[i])
		}
	}
	return &model.EventLog{Traces: g.traces}
}

func sortTrace(t *model.Trace) {
	for _, ev := range t.Events {
		if ev.Timestamp == 0 {
			return
		}
	}
	sort.SliceStable(t.Events, func(a, b int) bool {
		return t.Events[a].Timestamp < t.Events[b].Timestamp
	})
}
