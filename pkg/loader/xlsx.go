package loader

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/logvar/internal/model"
)

// XLSXDecoder reads the first sheet of an Excel workbook. The first row is
// the header.
type XLSXDecoder struct {
	cfg Config
}

// NewXLSXDecoder creates a new XLSX decoder.
func NewXLSXDecoder(cfg Config) *XLSXDecoder {
	return &XLSXDecoder{cfg: cfg}
}

// Decode implements Decoder. The workbook is buffered in memory since the
// format needs random access.
func (d *XLSXDecoder) Decode(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	if sheet == "" {
		sheets := xl.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyInput
		}
		sheet = sheets[0]
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrEmptyInput
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	b, err := newTableBuilder(d.cfg, header)
	if err != nil {
		return nil, err
	}

	for n := 1; rows.Next(); n++ {
		if n%1024 == 0 && ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		if len(cols) == 0 {
			continue
		}
		b.add(cols)
	}
	if err := rows.Error(); err != nil {
		return nil, err
	}

	return b.log(), nil
}
