// Package apierr describes failures returned by the backend and reports them
// through the logger with account and request context attached.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
)

// Error is a non-2xx backend response.
type Error struct {
	StatusCode    int
	Category      string // backend error category, e.g. "VALIDATION_ERROR"
	Message       string
	Method        string
	URL           string
	CorrelationID string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Method != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, msg)
}

// Context is what the caller knows about the failed operation.
type Context struct {
	AccountID int
	Request   string // remote path or API route
	Payload   string // local source, for uploads
}

func (c Context) keyvals() []any {
	kv := []any{"account", c.AccountID}
	if c.Request != "" {
		kv = append(kv, "request", c.Request)
	}
	if c.Payload != "" {
		kv = append(kv, "payload", c.Payload)
	}
	return kv
}

// Reporter surfaces transfer failures to the user.
type Reporter interface {
	// ReportUpload reports the failure of a single-file upload.
	ReportUpload(err error, ctx Context)
	// Report reports any other failure.
	Report(err error, ctx Context)
}

// LogReporter writes reports to a charmbracelet logger.
type LogReporter struct {
	Logger *log.Logger
}

// NewLogReporter returns a LogReporter writing to l, or to the default logger
// when l is nil.
func NewLogReporter(l *log.Logger) *LogReporter {
	if l == nil {
		l = log.Default()
	}
	return &LogReporter{Logger: l}
}

func (r *LogReporter) ReportUpload(err error, ctx Context) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		r.Logger.Error("upload failed", append(ctx.keyvals(), "err", err)...)
		return
	}
	r.Logger.Error(uploadHint(apiErr, ctx), append(ctx.keyvals(), apiErr.keyvals()...)...)
}

func (r *LogReporter) Report(err error, ctx Context) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		r.Logger.Error(err.Error(), ctx.keyvals()...)
		return
	}
	r.Logger.Error(fmt.Sprintf("The request failed: %s", apiErr.Error()), append(ctx.keyvals(), apiErr.keyvals()...)...)
}

func (e *Error) keyvals() []any {
	kv := []any{"status", e.StatusCode}
	if e.Category != "" {
		kv = append(kv, "category", e.Category)
	}
	if e.CorrelationID != "" {
		kv = append(kv, "correlation_id", e.CorrelationID)
	}
	return kv
}

// uploadHint turns a status code into an actionable message.
func uploadHint(e *Error, ctx Context) string {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		msg := fmt.Sprintf("The file %q could not be uploaded to %q", ctx.Payload, ctx.Request)
		if e.Message != "" {
			msg += ": " + e.Message
		}
		return msg
	case e.StatusCode == http.StatusUnauthorized:
		return fmt.Sprintf("The access key for account %d is invalid or expired", ctx.AccountID)
	case e.StatusCode == http.StatusForbidden:
		return fmt.Sprintf("The access key for account %d is missing the scope required to upload to %q", ctx.AccountID, ctx.Request)
	case e.StatusCode == http.StatusNotFound:
		return fmt.Sprintf("The destination %q was not found in account %d", ctx.Request, ctx.AccountID)
	case e.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("Account %d has exceeded its API rate limit; try the upload again shortly", ctx.AccountID)
	case e.StatusCode >= 500:
		return fmt.Sprintf("The server failed while uploading %q (status %d); try again later", ctx.Payload, e.StatusCode)
	default:
		return fmt.Sprintf("Uploading %q failed: %s", ctx.Payload, e.Error())
	}
}
