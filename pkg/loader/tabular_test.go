package loader

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	"github.com/logflow/logvar/internal/model"
	lverrors "github.com/logflow/logvar/pkg/errors"
)

// sequences flattens a log into per-case activity strings.
func sequences(log *model.EventLog) map[string]string {
	out := make(map[string]string, log.Len())
	for _, tr := range log.Traces {
		acts := make([]string, len(tr.Events))
		for i, ev := range tr.Events {
			acts[i] = ev.Activity
		}
		out[tr.CaseID] = strings.Join(acts, ",")
	}
	return out
}

func assertSequences(t *testing.T, log *model.EventLog, want map[string]string) {
	t.Helper()
	got := sequences(log)
	if len(got) != len(want) {
		t.Fatalf("Expected %d cases, got %d (%v)", len(want), len(got), got)
	}
	for id, seq := range want {
		if got[id] != seq {
			t.Errorf("case %s: got %q, want %q", id, got[id], seq)
		}
	}
}

func TestCSVDecoder_Decode(t *testing.T) {
	input := "case:concept:name,concept:name,time:timestamp,org:resource,cost\n" +
		"c1,a,2024-01-01 10:00:00,alice,1\n" +
		"c2,a,2024-01-01 09:00:00,bob,\n" +
		"c1,\"b, quoted\",2024-01-01 11:00:00,alice,2\n" +
		"c2,c,2024-01-01 08:00:00,bob,3\n"

	log, err := NewCSVDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// c2 is re-ordered by timestamp.
	assertSequences(t, log, map[string]string{
		"c1": "a,b, quoted",
		"c2": "c,a",
	})
	if log.Traces[0].CaseID != "c1" {
		t.Errorf("Expected cases in first-appearance order, got %s first", log.Traces[0].CaseID)
	}
	ev := log.Traces[0].Events[0]
	if ev.Resource != "alice" || len(ev.Attributes) != 1 || ev.Attributes[0].Key != "cost" {
		t.Errorf("Unexpected event: %+v", ev)
	}
}

func TestCSVDecoder_KeepsRowOrderWithoutSort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SortByTimestamp = false
	input := "case_id;activity;timestamp\n" +
		"c1;b;2024-01-02\n" +
		"c1;a;2024-01-01\n"
	cfg.Delimiter = ";"

	log, err := NewCSVDecoder(cfg).Decode(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assertSequences(t, log, map[string]string{"c1": "b,a"})
}

func TestCSVDecoder_Aliases(t *testing.T) {
	input := "\ufeffCase ID,Activity\n1,x\n1,y\n2,x\n"

	log, err := NewCSVDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assertSequences(t, log, map[string]string{"1": "x,y", "2": "x"})
}

func TestCSVDecoder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"empty", "", func(err error) bool { return errors.Is(err, ErrEmptyInput) }},
		{"missing activity", "case_id,when\n1,2024-01-01\n", func(err error) bool {
			return lverrors.IsCode(err, lverrors.CodeMissingColumn)
		}},
		{"missing case", "activity\na\n", func(err error) bool {
			return lverrors.IsCode(err, lverrors.CodeMissingColumn)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(tt.input))
			if err == nil || !tt.check(err) {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestJSONDecoder_Decode(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"jsonl", `{"case_id":"c1","activity":"a","timestamp":"2024-01-01T10:00:00Z"}
{"case_id":"c1","activity":"b","timestamp":"2024-01-01T11:00:00Z","extra":{"k":1}}

{"case_id":2,"activity":"a"}
`},
		{"array", `[
  {"case_id":"c1","activity":"a","timestamp":1704103200},
  {"case_id":"c1","activity":"b","timestamp":1704106800},
  {"case_id":2,"activity":"a"}
]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewJSONDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			assertSequences(t, log, map[string]string{"c1": "a,b", "2": "a"})
		})
	}
}

func TestJSONDecoder_Errors(t *testing.T) {
	if _, err := NewJSONDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader("  \n")); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
	_, err := NewJSONDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader("{\"case_id\":1,\n"))
	if !lverrors.IsCode(err, lverrors.CodeParseFailed) {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestXLSXDecoder_Decode(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"case_id", "activity", "timestamp"},
		{"c1", "a", "2024-01-01 10:00:00"},
		{"c1", "b", "2024-01-01 11:00:00"},
		{"c2", "b", "2024-01-01 09:00:00"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}

	log, err := NewXLSXDecoder(DefaultConfig()).Decode(context.Background(), buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assertSequences(t, log, map[string]string{"c1": "a,b", "c2": "b"})
}

func TestParquetDecoder_Decode(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "case:concept:name", Type: arrow.BinaryTypes.String},
		{Name: "concept:name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "time:timestamp", Type: &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}},
		{Name: "cost", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"c1", "c1", "c2"}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"b", "a", ""}, []bool{true, true, false})
	b.Field(2).(*array.TimestampBuilder).AppendValues([]arrow.Timestamp{2000, 1000, 3000}, nil)
	b.Field(3).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	if err := pqarrow.WriteTable(tbl, &buf, 1024, nil, pqarrow.DefaultWriterProps()); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	log, err := NewParquetDecoder(DefaultConfig()).Decode(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	// c1 is re-ordered by timestamp; the null activity stays empty.
	assertSequences(t, log, map[string]string{"c1": "a,b", "c2": ""})
	if got := log.Traces[0].Events[0].Attributes; len(got) != 1 || got[0].Value != "2" {
		t.Errorf("Unexpected attributes: %+v", got)
	}
}
