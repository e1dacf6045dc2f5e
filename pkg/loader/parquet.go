package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/logvar/internal/model"
)

// ParquetDecoder reads a Parquet file through Arrow.
type ParquetDecoder struct {
	cfg   Config
	alloc memory.Allocator
}

// NewParquetDecoder creates a new Parquet decoder.
func NewParquetDecoder(cfg Config) *ParquetDecoder {
	return &ParquetDecoder{
		cfg:   cfg,
		alloc: memory.DefaultAllocator,
	}
}

// Decode implements Decoder. Parquet needs a seekable reader, so a
// non-seekable stream is buffered in memory first.
func (d *ParquetDecoder) Decode(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	ras, ok := r.(interface {
		io.ReaderAt
		io.Seeker
	})
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		ras = bytes.NewReader(data)
	}

	pqReader, err := file.NewParquetReader(ras)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, d.alloc)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer table.Release()

	fields := table.Schema().Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	b, err := newTableBuilder(d.cfg, header)
	if err != nil {
		return nil, err
	}

	tr := array.NewTableReader(table, 8192)
	defer tr.Release()

	row := make([]string, len(header))
	for tr.Next() {
		if ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		rec := tr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			for c := range row {
				row[c] = arrowString(rec.Column(c), i)
			}
			b.add(row)
		}
	}

	return b.log(), nil
}

// arrowString renders one cell as text. Timestamps become RFC 3339 so the
// shared timestamp parser reads them back.
func arrowString(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return ""
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC().Format(time.RFC3339Nano)
	case *array.Dictionary:
		return a.Dictionary().ValueStr(a.GetValueIndex(i))
	default:
		return col.ValueStr(i)
	}
}
