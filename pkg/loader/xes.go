package loader

import (
	"bufio"
	"bytes"
	"context"
	"html"
	"io"

	"github.com/logflow/logvar/internal/model"
)

// XES attribute keys (as byte slices for zero-alloc comparison)
var (
	xesConceptName = []byte(model.KeyConceptName)
	xesTimeStamp   = []byte(model.KeyTimestamp)
	xesOrgResource = []byte(model.KeyResource)
)

// XML element names
var (
	xmlLog   = []byte("log")
	xmlTrace = []byte("trace")
	xmlEvent = []byte("event")

	xmlAttributeElements = [][]byte{
		[]byte("string"),
		[]byte("date"),
		[]byte("int"),
		[]byte("float"),
		[]byte("boolean"),
		[]byte("id"),
		[]byte("list"),
		[]byte("container"),
	}
)

// XES decoder states
type xesState uint8

const (
	stateInit xesState = iota
	stateLog
	stateTrace
	stateEvent
)

// XESDecoder reads XES documents with a tag-level state machine. It does
// not build a DOM, so memory use is bounded by the log itself.
//
// Only attributes directly under <trace> or <event> are read; children of
// nested list or container attributes are skipped. Events without a
// concept:name keep an empty activity label.
type XESDecoder struct {
	cfg Config
}

// NewXESDecoder creates a new XES decoder.
func NewXESDecoder(cfg Config) *XESDecoder {
	return &XESDecoder{cfg: cfg}
}

// Decode implements Decoder.
func (d *XESDecoder) Decode(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	bufSize := d.cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	reader := bufio.NewReaderSize(r, bufSize)

	log := &model.EventLog{}
	state := stateInit
	var trace *model.Trace
	var event *model.Event

	// nesting counts open elements inside a non-empty attribute element.
	nesting := 0
	sawLog := false
	var buf []byte

	for {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}

		line, err := readTag(reader, buf[:0])
		buf = line
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		// Drop any character data preceding the tag.
		if i := bytes.IndexByte(line, '<'); i > 0 {
			line = line[i:]
		}
		line = bytes.TrimSpace(line)

		switch {
		case len(line) == 0 || line[0] != '<':

		case nesting > 0:
			if isClosing(line) {
				nesting--
			} else if !isSelfClosing(line) && !isDeclaration(line) {
				nesting++
			}

		case isOpenTag(line, xmlLog):
			state = stateLog
			sawLog = true

		case isOpenTag(line, xmlTrace):
			if state != stateLog {
				return nil, ErrInvalidXES
			}
			log.Traces = append(log.Traces, model.Trace{})
			trace = &log.Traces[len(log.Traces)-1]
			state = stateTrace
			if isSelfClosing(line) {
				trace = nil
				state = stateLog
			}

		case isEndTag(line, xmlTrace):
			trace = nil
			state = stateLog

		case isOpenTag(line, xmlEvent):
			if state != stateTrace {
				return nil, ErrInvalidXES
			}
			trace.Events = append(trace.Events, model.Event{})
			event = &trace.Events[len(trace.Events)-1]
			state = stateEvent
			if isSelfClosing(line) {
				event = nil
				state = stateTrace
			}

		case isEndTag(line, xmlEvent):
			event = nil
			state = stateTrace

		case isAttributeTag(line):
			switch state {
			case stateTrace:
				key, value := extractAttribute(line)
				if bytes.Equal(key, xesConceptName) {
					trace.CaseID = unescape(value)
				}
			case stateEvent:
				d.processEventAttribute(line, event)
			}
			if !isSelfClosing(line) {
				nesting++
			}
		}

		if err == io.EOF {
			break
		}
	}

	if !sawLog || state != stateLog {
		return nil, ErrInvalidXES
	}
	return log, nil
}

// readTag reads up to and including the '>' that ends the next tag. A '>'
// inside a quoted attribute value does not end the tag. The result is
// appended to buf and only valid until the next call.
func readTag(r *bufio.Reader, buf []byte) ([]byte, error) {
	var quote byte
	inTag := false
	prev := byte(0) // last non-space byte inside the tag
	for {
		c, err := r.ReadByte()
		if err != nil {
			return buf, err
		}
		buf = append(buf, c)

		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '<':
			inTag = true
		case !inTag:
		case c == '>':
			return buf, nil
		case (c == '"' || c == '\'') && prev == '=':
			quote = c
		}
		if inTag && c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			prev = c
		}
	}
}

// isOpenTag checks if line is an opening tag for the given element.
func isOpenTag(line, element []byte) bool {
	if len(line) < len(element)+2 || line[0] != '<' {
		return false
	}
	if !bytes.HasPrefix(line[1:], element) {
		return false
	}
	next := 1 + len(element)
	if next >= len(line) {
		return true
	}
	c := line[next]
	return c == '>' || c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '/'
}

// isEndTag checks if line is </element>.
func isEndTag(line, element []byte) bool {
	return len(line) >= len(element)+3 && line[0] == '<' && line[1] == '/' &&
		bytes.HasPrefix(line[2:], element)
}

func isClosing(line []byte) bool {
	return len(line) > 1 && line[1] == '/'
}

func isSelfClosing(line []byte) bool {
	return bytes.HasSuffix(line, []byte("/>"))
}

// isDeclaration matches processing instructions and comments.
func isDeclaration(line []byte) bool {
	return len(line) > 1 && (line[1] == '?' || line[1] == '!')
}

// isAttributeTag checks if line opens an XES attribute element.
func isAttributeTag(line []byte) bool {
	for _, el := range xmlAttributeElements {
		if isOpenTag(line, el) {
			return true
		}
	}
	return false
}

// extractAttribute extracts key and value from an XES attribute element.
func extractAttribute(line []byte) (key, value []byte) {
	return extractAttrValue(line, []byte(`key="`)), extractAttrValue(line, []byte(`value="`))
}

// extractAttrValue extracts an XML attribute value.
func extractAttrValue(line, prefix []byte) []byte {
	idx := bytes.Index(line, prefix)
	// Require a separator so that key=" does not match inside mykey=".
	for idx > 0 && line[idx-1] != ' ' && line[idx-1] != '\t' && line[idx-1] != '\n' {
		next := bytes.Index(line[idx+1:], prefix)
		if next < 0 {
			return nil
		}
		idx += 1 + next
	}
	if idx < 0 {
		return nil
	}
	start := idx + len(prefix)
	end := bytes.IndexByte(line[start:], '"')
	if end < 0 {
		return nil
	}
	return line[start : start+end]
}

// unescape decodes named and numeric character references.
func unescape(b []byte) string {
	if bytes.IndexByte(b, '&') < 0 {
		return string(b)
	}
	return html.UnescapeString(string(b))
}

// processEventAttribute applies one attribute element to the event.
func (d *XESDecoder) processEventAttribute(line []byte, event *model.Event) {
	key, value := extractAttribute(line)
	if key == nil {
		return
	}

	switch {
	case bytes.Equal(key, xesConceptName):
		event.Activity = unescape(value)

	case bytes.Equal(key, xesTimeStamp):
		if ts, err := parseTimestamp(string(value), ""); err == nil {
			event.Timestamp = ts
		}

	case bytes.Equal(key, xesOrgResource):
		event.Resource = unescape(value)

	default:
		event.Attributes = append(event.Attributes, model.Attribute{
			Key:   unescape(key),
			Value: unescape(value),
			Type:  detectAttributeType(line),
		})
	}
}

// detectAttributeType determines the attribute type from the element name.
func detectAttributeType(line []byte) model.AttrType {
	switch {
	case isOpenTag(line, []byte("date")):
		return model.AttrTypeTimestamp
	case isOpenTag(line, []byte("int")):
		return model.AttrTypeInt
	case isOpenTag(line, []byte("float")):
		return model.AttrTypeFloat
	case isOpenTag(line, []byte("boolean")):
		return model.AttrTypeBool
	default:
		return model.AttrTypeString
	}
}
