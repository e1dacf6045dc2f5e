package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/logflow/logvar/internal/model"
	lverrors "github.com/logflow/logvar/pkg/errors"
)

// CSVDecoder reads a delimited event table with a header row.
type CSVDecoder struct {
	cfg Config
}

// NewCSVDecoder creates a new CSV decoder.
func NewCSVDecoder(cfg Config) *CSVDecoder {
	return &CSVDecoder{cfg: cfg}
}

// Decode implements Decoder.
func (d *CSVDecoder) Decode(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	bufSize := d.cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	cr := csv.NewReader(bufio.NewReaderSize(r, bufSize))
	cr.Comma = d.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, lverrors.ParseError("csv", 1, err)
	}
	b, err := newTableBuilder(d.cfg, append([]string(nil), header...))
	if err != nil {
		return nil, err
	}

	row := 1
	for {
		if row%1024 == 0 {
			if ctx.Err() != nil {
				return nil, ErrContextCanceled
			}
		}

		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, lverrors.ParseError("csv", perr.Line, perr.Err)
			}
			return nil, err
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		b.add(rec)
	}

	return b.log(), nil
}

func (d *CSVDecoder) delimiter() rune {
	if d.cfg.Delimiter == `\t` {
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(d.cfg.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}
