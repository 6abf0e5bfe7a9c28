package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// LogStatus is the outcome tag the backend attaches to an execution log.
type LogStatus string

const (
	StatusSuccess        LogStatus = "SUCCESS"
	StatusHandledError   LogStatus = "HANDLED_ERROR"
	StatusUnhandledError LogStatus = "UNHANDLED_ERROR"
)

// LogRecord is a single function execution log.
type LogRecord struct {
	Status        LogStatus `json:"status"`
	CreatedAt     Timestamp `json:"createdAt"`
	ExecutionTime int       `json:"executionTime"` // milliseconds
	Log           string    `json:"log,omitempty"`   // set for SUCCESS
	Error         *LogError `json:"error,omitempty"` // set for error statuses

	// Raw and DecodeErr are set, and the fields above left zero, when the
	// record could not be decoded.
	Raw       json.RawMessage `json:"-"`
	DecodeErr error           `json:"-"`
}

// decodeRecord decodes one record. Failures are kept on the record so the
// rest of a page still decodes.
func decodeRecord(data []byte) LogRecord {
	var rec LogRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return LogRecord{Raw: json.RawMessage(bytes.Clone(data)), DecodeErr: err}
	}
	return rec
}

// LogError describes the failure of an errored execution.
type LogError struct {
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	StackTrace [][]string `json:"stackTrace,omitempty"`
}

// Timestamp decodes either epoch milliseconds or an RFC 3339 string and
// encodes as epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", data, err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// LogResponse is what the backend returns for a logs query: a single record,
// a {"results": [...]} page, or nothing at all.
type LogResponse struct {
	Results []LogRecord `json:"results"`
	Single  *LogRecord  `json:"-"`
}

// Records returns the records in backend order.
func (r *LogResponse) Records() []LogRecord {
	if r == nil {
		return nil
	}
	if r.Single != nil {
		return []LogRecord{*r.Single}
	}
	return r.Results
}

// Empty reports whether the response carries no records. An absent response
// and an empty results page are treated the same.
func (r *LogResponse) Empty() bool {
	return len(r.Records()) == 0
}

// Latest returns a response holding only the newest record by CreatedAt.
func (r *LogResponse) Latest() *LogResponse {
	records := r.Records()
	if len(records) == 0 {
		return &LogResponse{}
	}
	newest := records[0]
	for _, rec := range records[1:] {
		if rec.CreatedAt.After(newest.CreatedAt.Time) {
			newest = rec
		}
	}
	return &LogResponse{Single: &newest}
}

// MarshalJSON writes the shape the response was decoded from.
func (r LogResponse) MarshalJSON() ([]byte, error) {
	if r.Single != nil {
		return json.Marshal(r.Single)
	}
	type page struct {
		Results []LogRecord `json:"results"`
	}
	return json.Marshal(page{Results: r.Results})
}

func (r *LogResponse) UnmarshalJSON(data []byte) error {
	*r = LogResponse{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode log response: %w", err)
	}
	if raw, ok := probe["results"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("decode log results: %w", err)
		}
		for _, item := range items {
			r.Results = append(r.Results, decodeRecord(item))
		}
		return nil
	}

	rec := decodeRecord(data)
	r.Single = &rec
	return nil
}

// DecodeLogResponse parses a raw logs payload. Blank input yields an empty
// response rather than an error.
func DecodeLogResponse(data []byte) (*LogResponse, error) {
	var resp LogResponse
	if err := resp.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RenderOptions configures log rendering.
type RenderOptions struct {
	// Compact suppresses the body and prints only the header line.
	Compact    bool
	Insertions Insertions
}

// Insertions is optional extra text spliced into rendered output.
type Insertions struct {
	Header string
}
