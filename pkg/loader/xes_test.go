package loader

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

const sampleXES = `<?xml version="1.0" encoding="UTF-8"?>
<log xes.version="1.0">
  <extension name="Concept" prefix="concept" uri="http://www.xes-standard.org/concept.xesext"/>
  <global scope="event">
    <string key="concept:name" value="__INVALID__"/>
  </global>
  <trace>
    <string key="concept:name" value="case-1"/>
    <event>
      <string key="concept:name" value="register"/>
      <date key="time:timestamp" value="2024-01-01T10:00:00.000+00:00"/>
      <string key="org:resource" value="alice"/>
      <int key="cost" value="12"/>
    </event>
    <event>
      <string key="concept:name" value="check &amp; approve"/>
      <list key="tags">
        <values>
          <string key="concept:name" value="nested"/>
        </values>
      </list>
    </event>
  </trace>
  <trace>
    <string key="concept:name" value="case-2"/>
  </trace>
  <trace/>
  <trace>
    <event>
      <string key="lifecycle:transition" value="complete"/>
    </event>
  </trace>
</log>
`

func TestXESDecoder_Decode(t *testing.T) {
	log, err := NewXESDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(sampleXES))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if log.Len() != 4 {
		t.Fatalf("Expected 4 traces, got %d", log.Len())
	}

	tr := log.Traces[0]
	if tr.CaseID != "case-1" {
		t.Errorf("CaseID = %q, want case-1", tr.CaseID)
	}
	if tr.Len() != 2 {
		t.Fatalf("Expected 2 events, got %d", tr.Len())
	}
	ev := tr.Events[0]
	if ev.Activity != "register" || ev.Resource != "alice" {
		t.Errorf("Unexpected first event: %+v", ev)
	}
	if ev.Timestamp == 0 {
		t.Error("Expected timestamp to be parsed")
	}
	if len(ev.Attributes) != 1 || ev.Attributes[0].Key != "cost" || ev.Attributes[0].Value != "12" {
		t.Errorf("Unexpected attributes: %+v", ev.Attributes)
	}
	if got := tr.Events[1].Activity; got != "check & approve" {
		t.Errorf("Nested attribute leaked or entity not unescaped: %q", got)
	}

	if log.Traces[1].Len() != 0 || log.Traces[2].Len() != 0 {
		t.Error("Expected empty traces to be kept")
	}
	if log.Traces[1].CaseID != "case-2" {
		t.Errorf("CaseID = %q, want case-2", log.Traces[1].CaseID)
	}

	last := log.Traces[3].Events[0]
	if last.HasActivity() {
		t.Errorf("Expected missing activity, got %q", last.Activity)
	}
}

func TestXESDecoder_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no log element", "<trace></trace>"},
		{"event outside trace", "<log><event></event></log>"},
		{"unterminated trace", "<log><trace><event></event>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewXESDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(tt.input))
			if !errors.Is(err, ErrInvalidXES) {
				t.Errorf("Expected ErrInvalidXES, got %v", err)
			}
		})
	}
}

func TestXESDecoder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewXESDecoder(DefaultConfig()).Decode(ctx, strings.NewReader(sampleXES))
	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("Expected ErrContextCanceled, got %v", err)
	}
}

func TestExtractAttrValue(t *testing.T) {
	tests := []struct {
		line   string
		prefix string
		want   string
	}{
		{`<string key="a" value="b"/>`, `key="`, "a"},
		{`<string key="a" value="b"/>`, `value="`, "b"},
		{`<string mykey="x" key="a"/>`, `key="`, "a"},
		{`<string key="a"/>`, `value="`, ""},
	}

	for _, tt := range tests {
		got := string(extractAttrValue([]byte(tt.line), []byte(tt.prefix)))
		if got != tt.want {
			t.Errorf("extractAttrValue(%s, %s) = %q, want %q", tt.line, tt.prefix, got, tt.want)
		}
	}
}

func TestXESDecoder_GreaterThanInValue(t *testing.T) {
	input := `<?xml version="1.0"?>
<log>
  <trace>
    <string key="concept:name" value="c1"/>
    <event><string key="concept:name" value="Amount > 100 check"/></event>
    <event><string key="concept:name" value="Pay &gt; 5 &#38; more"/></event>
  </trace>
  <trace>
    <event><string key="concept:name" value="Check"/></event>
  </trace>
</log>`

	log, err := NewXESDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if log.Len() != 2 {
		t.Fatalf("Expected 2 traces, got %d", log.Len())
	}
	got := []string{log.Traces[0].Events[0].Activity, log.Traces[0].Events[1].Activity, log.Traces[1].Events[0].Activity}
	want := []string{"Amount > 100 check", "Pay > 5 & more", "Check"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("activity %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"A &amp; B", "A & B"},
		{"A &#38; B", "A & B"},
		{"A &#x26; B", "A & B"},
		{"&lt;x&gt; &quot;q&quot; &apos;a&apos;", `<x> "q" 'a'`},
	}

	for _, tt := range tests {
		if got := unescape([]byte(tt.in)); got != tt.want {
			t.Errorf("unescape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadTag(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(`text > more<a k="x>y" j='1>2'/><b>`))

	tag, err := readTag(r, nil)
	if err != nil || string(tag) != `text > more<a k="x>y" j='1>2'/>` {
		t.Fatalf("first tag = %q, %v", tag, err)
	}
	tag, err = readTag(r, nil)
	if err != nil || string(tag) != `<b>` {
		t.Fatalf("second tag = %q, %v", tag, err)
	}
	if _, err := readTag(r, nil); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestXESDecoder_EmptyActivity(t *testing.T) {
	input := `<log>
  <trace>
    <event><string key="concept:name" value=""/></event>
    <event><string key="org:resource" value="bob"/></event>
  </trace>
</log>`

	log, err := NewXESDecoder(DefaultConfig()).Decode(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	// An explicit empty label and an absent one decode the same way.
	for i, e := range log.Traces[0].Events {
		if e.HasActivity() {
			t.Errorf("event %d: expected no activity, got %q", i, e.Activity)
		}
	}
}
