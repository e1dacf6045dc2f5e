package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/logflow/logvar/internal/model"
	lverrors "github.com/logflow/logvar/pkg/errors"
)

// JSONDecoder reads events as JSON objects, either one per line (JSONL) or
// as a single top-level array. Object keys are matched against the same
// column names as CSV.
type JSONDecoder struct {
	cfg Config
}

// NewJSONDecoder creates a new JSON decoder.
func NewJSONDecoder(cfg Config) *JSONDecoder {
	return &JSONDecoder{cfg: cfg}
}

// Decode implements Decoder.
func (d *JSONDecoder) Decode(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	br := bufio.NewReaderSize(r, max(d.cfg.BufferSize, 4096))
	dec := json.NewDecoder(br)
	dec.UseNumber()

	array, err := startsWithArray(br)
	if err != nil {
		return nil, err
	}
	if array {
		if _, err := dec.Token(); err != nil {
			return nil, lverrors.ParseError("json", 1, err)
		}
	}

	var objects []map[string]any
	for n := 1; ; n++ {
		if n%1024 == 0 && ctx.Err() != nil {
			return nil, ErrContextCanceled
		}
		if array && !dec.More() {
			break
		}

		var obj map[string]any
		err := dec.Decode(&obj)
		if err == io.EOF && !array {
			break
		}
		if err != nil {
			return nil, lverrors.ParseError("json", n, err)
		}
		if obj != nil {
			objects = append(objects, obj)
		}
	}
	if len(objects) == 0 {
		return nil, ErrEmptyInput
	}

	header, index := unionKeys(objects)
	b, err := newTableBuilder(d.cfg, header)
	if err != nil {
		return nil, err
	}
	row := make([]string, len(header))
	for _, obj := range objects {
		clear(row)
		for k, v := range obj {
			row[index[k]] = jsonString(v)
		}
		b.add(row)
	}
	return b.log(), nil
}

// startsWithArray skips a UTF-8 BOM and reports whether the first
// non-space byte opens an array.
func startsWithArray(br *bufio.Reader) (bool, error) {
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		br.Discard(3)
	}
	for i := 1; ; i++ {
		buf, err := br.Peek(i)
		if err == io.EOF {
			return false, ErrEmptyInput
		}
		if err != nil {
			return false, err
		}
		switch buf[i-1] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return buf[i-1] == '[', nil
	}
}

// unionKeys returns the keys of all objects in first-seen order. Keys of a
// single object are taken in sorted order.
func unionKeys(objects []map[string]any) ([]string, map[string]int) {
	index := make(map[string]int)
	var header []string
	keys := make([]string, 0, 16)
	for _, obj := range objects {
		keys = keys[:0]
		for k := range obj {
			if _, ok := index[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			index[k] = len(header)
			header = append(header, k)
		}
	}
	return header, index
}

func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
