package script

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParseWarning reports a script line that was skipped or only partly understood.
// Parsing never stops on a warning.
type ParseWarning struct {
	// Line is the 1-indexed source line.
	Line int

	// Source is the offending line as written.
	Source string

	// Message is the human-readable description.
	Message string

	// Context holds the surrounding source lines with the line marked.
	Context string
}

// Error implements the error interface.
func (w *ParseWarning) Error() string {
	if w.Context != "" {
		return fmt.Sprintf("parser warning at line %d: %s\n%s", w.Line, w.Message, w.Context)
	}
	return fmt.Sprintf("parser warning at line %d: %s", w.Line, w.Message)
}

// newWarning creates a ParseWarning with source context.
func newWarning(source string, line int, text, message string) *ParseWarning {
	return &ParseWarning{
		Line:    line,
		Source:  text,
		Message: message,
		Context: GenerateErrorContext(source, line, indentWidth(text)+1),
	}
}

// LogWarnings writes each warning to log at warn level.
func LogWarnings(log *slog.Logger, name string, warnings []*ParseWarning) {
	for _, w := range warnings {
		log.Warn("Script line skipped",
			"script", name,
			"line", w.Line,
			"source", strings.TrimSpace(w.Source),
			"reason", w.Message)
	}
}

// GenerateErrorContext generates source code context around a line.
// It includes 2 lines before and 2 lines after, with line numbers
// and a pointer (^) indicating the column.
//
// Example output:
//
//	  2 | label start
//	  3 | say hello
//	> 4 | sya typo
//	    | ^
//	  5 | jump start
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	start := max(line-3, 0)
	end := min(line+2, len(lines))

	var buf strings.Builder
	lineNumWidth := len(fmt.Sprintf("%d", end))

	for i := start; i < end; i++ {
		lineNum := i + 1
		if lineNum == line {
			fmt.Fprintf(&buf, "> %*d | %s\n", lineNumWidth, lineNum, lines[i])
			pointerIndent := 2 + lineNumWidth + 3 // "> " + 行番号 + " | "
			if column > 0 {
				pointerIndent += column - 1
			}
			fmt.Fprintf(&buf, "%s^\n", strings.Repeat(" ", pointerIndent))
		} else {
			fmt.Fprintf(&buf, "  %*d | %s\n", lineNumWidth, lineNum, lines[i])
		}
	}

	return buf.String()
}

func indentWidth(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}
