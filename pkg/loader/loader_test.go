package loader

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	lverrors "github.com/logflow/logvar/pkg/errors"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"log.xes", FormatXES},
		{"log.XES.gz", FormatXES},
		{"data/events.csv", FormatCSV},
		{"events.tsv", FormatCSV},
		{"events.jsonl", FormatJSON},
		{"events.json", FormatJSON},
		{"book.xlsx", FormatXLSX},
		{"s3://bucket/key/events.parquet", FormatParquet},
		{"events.txt", FormatUnknown},
		{"noext", FormatUnknown},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestParseFormat_RoundTrip(t *testing.T) {
	for _, f := range []Format{FormatXES, FormatCSV, FormatJSON, FormatXLSX, FormatParquet} {
		if got := ParseFormat(f.String()); got != f {
			t.Errorf("ParseFormat(%q) = %s", f.String(), got)
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoader_LoadCSV(t *testing.T) {
	path := writeFile(t, "orders.csv", "case_id,activity\n1,a\n1,b\n2,a\n")

	log, err := New(DefaultConfig(), nil).Load(context.Background(), path, FormatUnknown)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if log.Name != "orders" {
		t.Errorf("Name = %q, want orders", log.Name)
	}
	if log.Len() != 2 || log.EventCount() != 3 {
		t.Errorf("Expected 2 traces and 3 events, got %d and %d", log.Len(), log.EventCount())
	}
}

func TestLoader_LoadGzipXES(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xes.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(sampleXES)); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	f.Close()

	log, err := New(DefaultConfig(), nil).Load(context.Background(), path, FormatUnknown)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if log.Name != "sample" || log.Len() != 4 {
		t.Errorf("Unexpected log %q with %d traces", log.Name, log.Len())
	}
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	badXES := writeFile(t, "bad.xes", "<log><trace>")
	noCase := writeFile(t, "nocase.csv", "activity\na\n")

	tests := []struct {
		name   string
		path   string
		format Format
		code   lverrors.Code
	}{
		{"missing file", filepath.Join(dir, "missing.xes"), FormatUnknown, lverrors.CodeFileNotFound},
		{"unknown format", filepath.Join(dir, "log.txt"), FormatUnknown, lverrors.CodeInvalidFormat},
		{"malformed xes", badXES, FormatUnknown, lverrors.CodeParseFailed},
		{"missing column", noCase, FormatCSV, lverrors.CodeMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(DefaultConfig(), nil).Load(context.Background(), tt.path, tt.format)
			if err == nil {
				t.Fatalf("Expected error, got log with %d traces", log.Len())
			}
			if !lverrors.IsCode(err, tt.code) {
				t.Errorf("Expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestLoader_Canceled(t *testing.T) {
	path := writeFile(t, "sample.xes", sampleXES)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultConfig(), nil).Load(ctx, path, FormatXES)
	if !lverrors.IsCode(err, lverrors.CodeContextCanceled) {
		t.Errorf("Expected canceled error, got %v", err)
	}
}

func TestLoader_DuckDBEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb test in short mode")
	}
	path := writeFile(t, "events.csv", "case_id,activity,timestamp\n1,b,2024-01-01 11:00:00\n1,a,2024-01-01 10:00:00\n2,a,2024-01-01 09:00:00\n")

	cfg := DefaultConfig()
	cfg.Engine = EngineDuckDB
	log, err := New(cfg, nil).Load(context.Background(), path, FormatUnknown)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSequences(t, log, map[string]string{"1": "a,b", "2": "a"})
}

func TestEscapePath(t *testing.T) {
	if got := escapePath("it's.csv"); got != "it''s.csv" {
		t.Errorf("escapePath = %q", got)
	}
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("quoteIdent = %q", got)
	}
}
