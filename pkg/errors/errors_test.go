package errors

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := Wrap(fs.ErrNotExist, CodeFileNotFound, "open log").
		WithContext("path", "a.xes").
		WithContext("attempt", 1)

	got := err.Error()
	want := "[E101] open log (attempt=1, path=a.xes): file does not exist"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, CodeParseFailed, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, CodeParseFailed, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestIsCode(t *testing.T) {
	inner := New(CodeMissingColumn, "no activity column")
	outer := Wrap(inner, CodeParseFailed, "decode csv")

	tests := []struct {
		err  error
		code Code
		want bool
	}{
		{outer, CodeParseFailed, true},
		{outer, CodeMissingColumn, true},
		{outer, CodeFileNotFound, false},
		{errors.New("plain"), CodeParseFailed, false},
		{nil, CodeParseFailed, false},
	}
	for _, tt := range tests {
		if got := IsCode(tt.err, tt.code); got != tt.want {
			t.Errorf("IsCode(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.want)
		}
	}

	if GetCode(outer) != CodeParseFailed {
		t.Errorf("GetCode = %s, want %s", GetCode(outer), CodeParseFailed)
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("GetCode of a plain error should be CodeUnknown")
	}
}

func TestError_StackCaptured(t *testing.T) {
	err := New(CodeUnknown, "boom")
	if len(err.StackTrace) == 0 {
		t.Fatal("expected a captured stack")
	}
	if !strings.Contains(err.FormatStack(), "TestError_StackCaptured") {
		t.Errorf("stack does not mention the caller:\n%s", err.FormatStack())
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	if m.Combined() != nil {
		t.Error("empty MultiError should combine to nil")
	}

	first := errors.New("first")
	m.Add(first)
	m.Add(nil)
	if m.Combined() != first {
		t.Error("single error should be returned as is")
	}

	m.Add(New(CodeComputeFailed, "second"))
	combined := m.Combined()
	if !strings.HasPrefix(combined.Error(), "2 errors occurred") {
		t.Errorf("unexpected message: %q", combined.Error())
	}
	if !errors.Is(combined, first) {
		t.Error("errors.Is should see collected errors")
	}
	if !IsCode(combined, CodeComputeFailed) {
		t.Error("IsCode should see collected errors")
	}
}
