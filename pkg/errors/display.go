package errors

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m" // Error code
	colorYellow = "\033[33m" // Context information
	colorCyan   = "\033[36m" // Suggestions
	colorDim    = "\033[90m" // Cause
	colorBold   = "\033[1m"
)

// Formatter handles error display with optional color support.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool

	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer

	// Indent is the prefix for context and suggestion lines.
	Indent string
}

// DefaultFormatter returns a Formatter for stderr.
// Color is enabled if stderr is a terminal.
func DefaultFormatter() *Formatter {
	return &Formatter{
		UseColor: IsTTY(os.Stderr),
		Writer:   os.Stderr,
		Indent:   "  ",
	}
}

// IsTTY returns true if the given file is a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Format renders err for display.
// InsightErrors show code, message, context, cause and suggestions.
func (f *Formatter) Format(err error) string {
	if err == nil {
		return ""
	}

	ie, ok := AsInsightError(err)
	if !ok {
		if f.UseColor {
			return colorRed + "Error: " + colorReset + err.Error()
		}
		return "Error: " + err.Error()
	}

	var sb strings.Builder
	f.writeHeader(&sb, ie)
	if ie.HasContext() {
		f.writeContext(&sb, ie)
	}
	if ie.Cause != nil {
		f.writeLine(&sb, colorDim, "cause: "+ie.Cause.Error())
	}
	if ie.HasSuggestions() {
		if ie.HasContext() || ie.Cause != nil {
			sb.WriteString("\n")
		}
		for _, s := range ie.Suggestions {
			f.writeLine(&sb, colorCyan, "→ "+s)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) writeHeader(sb *strings.Builder, ie *InsightError) {
	if f.UseColor {
		sb.WriteString(colorRed + colorBold + "ERROR" + colorReset + colorRed + " [" + ie.Code + "]: " + colorReset)
	} else {
		sb.WriteString("ERROR [" + ie.Code + "]: ")
	}
	sb.WriteString(ie.Message)
	sb.WriteString("\n")
}

func (f *Formatter) writeContext(sb *strings.Builder, ie *InsightError) {
	keys := make([]string, 0, len(ie.Context))
	for k := range ie.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		sb.WriteString(f.Indent)
		if f.UseColor {
			sb.WriteString(colorYellow + key + ": " + colorReset)
		} else {
			sb.WriteString(key + ": ")
		}
		sb.WriteString(ie.Context[key])
		sb.WriteString("\n")
	}
}

func (f *Formatter) writeLine(sb *strings.Builder, color, text string) {
	sb.WriteString(f.Indent)
	if f.UseColor {
		sb.WriteString(color + text + colorReset)
	} else {
		sb.WriteString(text)
	}
	sb.WriteString("\n")
}

// Display writes a formatted error to the formatter's writer.
func (f *Formatter) Display(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(f.Writer, f.Format(err))
}

// Display writes a formatted error to stderr with default settings.
func Display(err error) {
	DefaultFormatter().Display(err)
}

// Sprint returns a formatted error string without colors.
func Sprint(err error) string {
	f := &Formatter{Writer: io.Discard, Indent: "  "}
	return f.Format(err)
}

// CategoryLabel returns a human-readable label for an error category.
func CategoryLabel(cat Category) string {
	switch cat {
	case CategoryConfig:
		return "Configuration Error"
	case CategoryExtractor:
		return "Extractor Error"
	case CategoryValidation:
		return "Validation Error"
	case CategorySimulation:
		return "Simulation Error"
	case CategoryExport:
		return "Export Error"
	case CategoryCommand:
		return "Command Error"
	case CategoryNetwork:
		return "Network Error"
	case CategoryIO:
		return "I/O Error"
	case CategoryInternal:
		return "Internal Error"
	default:
		return "Error"
	}
}
