// Package logs renders function execution logs as text.
package logs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/sonnes/cmsync/core"
)

const (
	separator  = " - "
	timeLayout = "2006-01-02T15:04:05.000Z"

	// NoLogs is rendered for an absent or empty response.
	NoLogs = "No logs found."
)

// Renderer formats log responses for display.
type Renderer struct {
	// Logger receives a line for every record that cannot be rendered.
	Logger *log.Logger
	// Plain disables colors.
	Plain bool
}

// New creates a Renderer.
func New(logger *log.Logger) *Renderer {
	return &Renderer{Logger: logger}
}

// Render formats every record of resp, one after another separated by a
// newline. Records that fail to render are logged and left out.
func (r *Renderer) Render(resp *core.LogResponse, opts core.RenderOptions) string {
	if resp.Empty() {
		return NoLogs
	}

	var out []string
	for _, rec := range resp.Records() {
		s, err := r.RenderRecord(rec, opts)
		if err != nil {
			r.reportFailure(rec, err)
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, "\n")
}

// RenderRecord formats a single record: the header line followed, unless
// opts.Compact is set, by the log text or the error and its stack.
func (r *Renderer) RenderRecord(rec core.LogRecord, opts core.RenderOptions) (string, error) {
	if rec.DecodeErr != nil {
		return "", &MalformedRecordError{Reason: rec.DecodeErr.Error()}
	}
	outcome, err := Classify(rec.Status)
	if err != nil {
		return "", err
	}

	var body string
	switch o := outcome.(type) {
	case Success:
		body = rec.Log
	case Failure:
		if rec.Error == nil {
			return "", &MalformedRecordError{Status: o.Status(), Reason: "missing error"}
		}
		body = formatError(rec.Error)
	}

	header := r.header(rec, outcome, opts.Insertions.Header)
	if opts.Compact {
		return header, nil
	}
	return header + "\n" + body, nil
}

func (r *Renderer) header(rec core.LogRecord, o Outcome, insertion string) string {
	parts := []string{
		r.paint(styleBright, rec.CreatedAt.UTC().Format(timeLayout)),
		r.paint(StyleFor(o).style(), string(rec.Status)),
	}
	if insertion != "" {
		parts = append(parts, insertion)
	}
	parts = append(parts, r.paint(styleBright, "Execution Time:")+" "+strconv.Itoa(rec.ExecutionTime)+"ms")
	return strings.Join(parts, separator)
}

func (r *Renderer) paint(s lipgloss.Style, text string) string {
	if r.Plain {
		return text
	}
	return s.Render(text)
}

// formatError writes "type: message" and one "  at frame" line per frame of
// the first stack.
func formatError(e *core.LogError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Type, e.Message)
	if len(e.StackTrace) > 0 {
		for _, frame := range e.StackTrace[0] {
			b.WriteString("\n  at ")
			b.WriteString(frame)
		}
	}
	return b.String()
}

func (r *Renderer) reportFailure(rec core.LogRecord, err error) {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	data := []byte(rec.Raw)
	if len(data) == 0 {
		data, _ = json.Marshal(rec)
	}

	var unknown *UnknownStatusError
	if errors.As(err, &unknown) {
		logger.Error("Unable to process log "+string(data), "status", string(unknown.Status))
		return
	}
	logger.Error("Unable to process log "+string(data), "err", err)
}
