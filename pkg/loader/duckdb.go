package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/logflow/logvar/internal/model"
)

// duckDBDecoder reads tabular files through an in-process DuckDB. Every
// column is cast to VARCHAR so rows flow through the same table builder
// as the native decoders.
type duckDBDecoder struct {
	cfg Config
}

func newDuckDBDecoder(cfg Config) *duckDBDecoder {
	return &duckDBDecoder{cfg: cfg}
}

func duckDBSupports(format Format) bool {
	switch format {
	case FormatCSV, FormatParquet, FormatJSON:
		return true
	default:
		return false
	}
}

// DecodeFile reads the file at path.
func (d *duckDBDecoder) DecodeFile(ctx context.Context, path string, format Format) (*model.EventLog, error) {
	from, err := d.source(path, format)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	defer db.Close()

	columns, err := describe(ctx, db, from)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, ErrEmptyInput
	}

	rows, err := db.QueryContext(ctx, selectVarchar(columns, from))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		return nil, fmt.Errorf("duckdb query failed: %w", err)
	}
	defer rows.Close()

	header := columns
	b, err := newTableBuilder(d.cfg, append([]string(nil), columns...))
	if err != nil {
		return nil, err
	}

	vals := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range vals {
		dest[i] = &vals[i]
	}
	row := make([]string, len(header))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			row[i] = v.String
		}
		b.add(row)
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		return nil, err
	}

	return b.log(), nil
}

// describe returns the column names of a table expression.
func describe(ctx context.Context, db *sql.DB, from string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+from)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		return nil, fmt.Errorf("schema inference failed: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name, dtype, null, key, defaultVal, extra sql.NullString
		if err := rows.Scan(&name, &dtype, &null, &key, &defaultVal, &extra); err != nil {
			return nil, err
		}
		names = append(names, name.String)
	}
	return names, rows.Err()
}

func selectVarchar(columns []string, from string) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		q := quoteIdent(c)
		fmt.Fprintf(&sb, "CAST(%s AS VARCHAR) AS %s", q, q)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(from)
	return sb.String()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d *duckDBDecoder) source(path string, format Format) (string, error) {
	var from string
	switch format {
	case FormatCSV:
		delim := d.cfg.Delimiter
		switch delim {
		case "":
			delim = ","
		case `\t`:
			delim = "\t"
		}
		from = fmt.Sprintf(`read_csv_auto('%s', delim='%s', header=true, all_varchar=true)`,
			escapePath(path), escapePath(delim))
	case FormatParquet:
		from = fmt.Sprintf(`read_parquet('%s')`, escapePath(path))
	case FormatJSON:
		from = fmt.Sprintf(`read_json_auto('%s', format='auto')`, escapePath(path))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return from, nil
}

// escapePath quotes a value for a single-quoted SQL string literal.
func escapePath(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
