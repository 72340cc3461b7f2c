package errors

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFormatter_PlainInsightError(t *testing.T) {
	f := &Formatter{Indent: "  "}
	err := ShapeMismatch(4, -1, 3).WithCause(errors.New("decode"))

	out := f.Format(err)

	if !strings.HasPrefix(out, "ERROR [INVALID_INPUT]: attention matrix has 3 rows, want 4") {
		t.Errorf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "  actual: 3\n  expected: 4\n") {
		t.Errorf("expected sorted context lines, got %q", out)
	}
	if !strings.Contains(out, "  cause: decode") {
		t.Errorf("expected cause line, got %q", out)
	}
	if !strings.Contains(out, "→ ") {
		t.Errorf("expected suggestions, got %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Error("plain formatter must not emit ANSI codes")
	}
}

func TestFormatter_ColorStandardError(t *testing.T) {
	f := &Formatter{UseColor: true}
	out := f.Format(errors.New("boom"))

	if !strings.Contains(out, colorRed) || !strings.HasSuffix(out, "boom") {
		t.Errorf("unexpected colored output %q", out)
	}
}

func TestFormatter_Display(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf, Indent: "  "}

	f.Display(nil)
	if buf.Len() != 0 {
		t.Error("Display(nil) should write nothing")
	}

	f.Display(NotFound("x1"))
	if !strings.Contains(buf.String(), "ANALYSIS_NOT_FOUND") {
		t.Errorf("expected code in output, got %q", buf.String())
	}
}

func TestSprint(t *testing.T) {
	if Sprint(nil) != "" {
		t.Error("Sprint(nil) should be empty")
	}
	if got := Sprint(errors.New("x")); got != "Error: x" {
		t.Errorf("unexpected %q", got)
	}
}

func TestCategoryLabel(t *testing.T) {
	if CategoryLabel(CategorySimulation) != "Simulation Error" {
		t.Error("unexpected simulation label")
	}
	if CategoryLabel(Category("nope")) != "Error" {
		t.Error("unknown category should fall back to Error")
	}
}
