// Package loader materializes event logs from XES, CSV, JSON, XLSX and
// Parquet files into model.EventLog values.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/logflow/logvar/internal/model"
	lverrors "github.com/logflow/logvar/pkg/errors"
	"github.com/logflow/logvar/pkg/source"
)

// Decoder turns a byte stream into a fully materialized event log.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*model.EventLog, error)
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatXES
	FormatCSV
	FormatJSON
	FormatXLSX
	FormatParquet
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatXES:
		return "xes"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	case FormatXLSX:
		return "xlsx"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name. JSON and JSONL share one decoder.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "xes":
		return FormatXES
	case "csv", "tsv":
		return FormatCSV
	case "json", "jsonl", "ndjson":
		return FormatJSON
	case "xlsx", "excel":
		return FormatXLSX
	case "parquet", "pq":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// DetectFormat determines the format from the location's extension,
// ignoring a trailing .gz.
func DetectFormat(location string) Format {
	ext := strings.TrimPrefix(source.BaseFormat(location), ".")
	return ParseFormat(ext)
}

// Engine names.
const (
	EngineNative = "native"
	EngineDuckDB = "duckdb"
)

// Config holds loader configuration.
type Config struct {
	// Column names for tabular formats. Common aliases are tried when the
	// configured name is absent.
	CaseIDColumn    string `yaml:"case_id_column" env:"CASE_ID_COLUMN"`
	ActivityColumn  string `yaml:"activity_column" env:"ACTIVITY_COLUMN"`
	TimestampColumn string `yaml:"timestamp_column" env:"TIMESTAMP_COLUMN"`
	ResourceColumn  string `yaml:"resource_column" env:"RESOURCE_COLUMN"`

	// TimestampFormat is tried before the built-in layouts (Go time layout).
	TimestampFormat string `yaml:"timestamp_format" env:"TIMESTAMP_FORMAT"`

	// Delimiter is the CSV field delimiter.
	Delimiter string `yaml:"delimiter" env:"DELIMITER"`

	// Engine selects how tabular files are read: native or duckdb.
	Engine string `yaml:"engine" env:"ENGINE"`

	// SortByTimestamp stable-sorts the events of each case by timestamp for
	// tabular formats. XES traces keep their document order.
	SortByTimestamp bool `yaml:"sort_by_timestamp" env:"SORT_BY_TIMESTAMP"`

	// BufferSize is the size of the read buffer in bytes.
	BufferSize int `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CaseIDColumn:    "case:concept:name",
		ActivityColumn:  model.KeyConceptName,
		TimestampColumn: model.KeyTimestamp,
		ResourceColumn:  model.KeyResource,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		Delimiter:       ",",
		Engine:          EngineNative,
		SortByTimestamp: true,
		BufferSize:      64 * 1024,
	}
}

// Loader loads event logs from local or remote locations.
type Loader struct {
	cfg    Config
	opener *source.Opener
}

// New creates a Loader. A nil opener opens local files only.
func New(cfg Config, opener *source.Opener) *Loader {
	if opener == nil {
		opener = source.NewOpener(source.S3Config{})
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64 * 1024
	}
	return &Loader{cfg: cfg, opener: opener}
}

// Load reads the log at location. When format is FormatUnknown it is
// detected from the extension. On success the returned log is never nil.
func (l *Loader) Load(ctx context.Context, location string, format Format) (*model.EventLog, error) {
	if format == FormatUnknown {
		format = DetectFormat(location)
	}
	if format == FormatUnknown {
		return nil, lverrors.New(lverrors.CodeInvalidFormat, "unable to detect log format").
			WithContext("path", location)
	}

	log, err := l.load(ctx, location, format)
	if err != nil {
		return nil, l.classify(ctx, err, location, format)
	}
	if log.Name == "" {
		log.Name = source.BaseName(location)
	}
	return log, nil
}

func (l *Loader) load(ctx context.Context, location string, format Format) (*model.EventLog, error) {
	if l.cfg.Engine == EngineDuckDB && duckDBSupports(format) {
		path, ok := source.LocalPath(location)
		if !ok {
			return nil, lverrors.New(lverrors.CodeInvalidFormat, "duckdb engine reads uncompressed local files only").
				WithContext("path", location)
		}
		return newDuckDBDecoder(l.cfg).DecodeFile(ctx, path, format)
	}

	dec, err := l.Decoder(format)
	if err != nil {
		return nil, err
	}

	rc, err := l.opener.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return dec.Decode(ctx, rc)
}

// Decoder returns the native decoder for a format.
func (l *Loader) Decoder(format Format) (Decoder, error) {
	switch format {
	case FormatXES:
		return NewXESDecoder(l.cfg), nil
	case FormatCSV:
		return NewCSVDecoder(l.cfg), nil
	case FormatJSON:
		return NewJSONDecoder(l.cfg), nil
	case FormatXLSX:
		return NewXLSXDecoder(l.cfg), nil
	case FormatParquet:
		return NewParquetDecoder(l.cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// classify attaches a code and location to decoder errors that lack one.
func (l *Loader) classify(ctx context.Context, err error, location string, format Format) error {
	var lvErr *lverrors.Error
	switch {
	case errors.As(err, &lvErr):
		return err
	case ctx.Err() != nil || errors.Is(err, ErrContextCanceled):
		return lverrors.Wrap(err, lverrors.CodeContextCanceled, "load canceled").
			WithContext("path", location)
	case errors.Is(err, ErrUnsupportedFormat):
		return lverrors.Wrap(err, lverrors.CodeInvalidFormat, "unsupported format").
			WithContext("path", location)
	default:
		return lverrors.Wrap(err, lverrors.CodeParseFailed, "failed to decode log").
			WithContext("path", location).
			WithContext("format", format.String())
	}
}
