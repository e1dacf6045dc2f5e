package loader

import (
	"strings"

	"github.com/logflow/logvar/internal/model"
	lverrors "github.com/logflow/logvar/pkg/errors"
)

// Column aliases tried when the configured column is absent.
var (
	caseAliases      = []string{"case:concept:name", "case_id", "CaseID", "Case ID", "case"}
	activityAliases  = []string{"concept:name", "activity", "Activity", "event"}
	timestampAliases = []string{"time:timestamp", "timestamp", "Timestamp", "time"}
	resourceAliases  = []string{"org:resource", "resource", "Resource"}
)

// columnMap holds the header positions of the known columns. Optional
// columns are -1 when absent.
type columnMap struct {
	header    []string
	caseID    int
	activity  int
	timestamp int
	resource  int
}

// resolveColumns locates the configured columns in header. Case and
// activity columns are required.
func resolveColumns(cfg Config, header []string) (*columnMap, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	find := func(configured string, aliases []string) int {
		if i, ok := idx[configured]; ok && configured != "" {
			return i
		}
		for _, a := range aliases {
			if i, ok := idx[a]; ok {
				return i
			}
		}
		return -1
	}

	cm := &columnMap{
		header:    header,
		caseID:    find(cfg.CaseIDColumn, caseAliases),
		activity:  find(cfg.ActivityColumn, activityAliases),
		timestamp: find(cfg.TimestampColumn, timestampAliases),
		resource:  find(cfg.ResourceColumn, resourceAliases),
	}
	if cm.caseID < 0 {
		return nil, lverrors.MissingColumn(orDefault(cfg.CaseIDColumn, caseAliases[0]), header)
	}
	if cm.activity < 0 {
		return nil, lverrors.MissingColumn(orDefault(cfg.ActivityColumn, activityAliases[0]), header)
	}
	return cm, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// tableBuilder turns rows of a flat event table into traces.
type tableBuilder struct {
	cfg     Config
	cols    *columnMap
	grouper *caseGrouper
}

func newTableBuilder(cfg Config, header []string) (*tableBuilder, error) {
	cols, err := resolveColumns(cfg, header)
	if err != nil {
		return nil, err
	}
	return &tableBuilder{cfg: cfg, cols: cols, grouper: newCaseGrouper()}, nil
}

// add appends one row. Short rows are padded with empty values; an
// unparseable timestamp is recorded as unknown.
func (b *tableBuilder) add(row []string) {
	field := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	ev := model.Event{
		Activity: field(b.cols.activity),
		Resource: field(b.cols.resource),
	}
	if ts := field(b.cols.timestamp); ts != "" {
		if n, err := parseTimestamp(ts, b.cfg.TimestampFormat); err == nil {
			ev.Timestamp = n
		}
	}
	for i, v := range row {
		if i >= len(b.cols.header) || v == "" {
			continue
		}
		if i == b.cols.caseID || i == b.cols.activity || i == b.cols.timestamp || i == b.cols.resource {
			continue
		}
		ev.Attributes = append(ev.Attributes, model.Attribute{
			Key:   b.cols.header[i],
			Value: v,
			Type:  model.AttrTypeString,
		})
	}

	b.grouper.add(field(b.cols.caseID), ev)
}

func (b *tableBuilder) log() *model.EventLog {
	return b.grouper.log(b.cfg.SortByTimestamp)
}
