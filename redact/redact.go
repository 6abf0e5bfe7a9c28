package redact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sonnes/cmsync/core"
)

// Config controls which rules the Redactor applies.
type Config struct {
	Secrets    bool
	PII        bool
	ExtraRules []Rule
	Allowlist  []string // regex patterns to skip
}

// DefaultConfig redacts secrets and PII.
func DefaultConfig() Config {
	return Config{Secrets: true, PII: true}
}

// ParseKinds builds a Config from a comma-separated list of rule kinds,
// e.g. "secrets,pii".
func ParseKinds(s string) (Config, error) {
	var cfg Config
	for _, kind := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "":
		case "secrets", KindSecret:
			cfg.Secrets = true
		case KindPII:
			cfg.PII = true
		default:
			return Config{}, fmt.Errorf("unknown redaction kind %q", kind)
		}
	}
	return cfg, nil
}

// Redactor applies redaction rules to the text of every log record.
type Redactor struct {
	rules     []Rule
	allowlist []*regexp.Regexp
}

// New creates a Redactor from the given config. Invalid allowlist patterns
// are ignored.
func New(cfg Config) *Redactor {
	var rules []Rule
	if cfg.Secrets {
		rules = append(rules, SecretRules()...)
	}
	if cfg.PII {
		rules = append(rules, PIIRules()...)
	}
	rules = append(rules, cfg.ExtraRules...)

	allowlist := make([]*regexp.Regexp, 0, len(cfg.Allowlist))
	for _, pattern := range cfg.Allowlist {
		if re, err := regexp.Compile(pattern); err == nil {
			allowlist = append(allowlist, re)
		}
	}

	return &Redactor{rules: rules, allowlist: allowlist}
}

// Transform scrubs the log text, error message and stack frames of every
// record in resp.
func (r *Redactor) Transform(resp *core.LogResponse) error {
	if resp == nil {
		return nil
	}
	if resp.Single != nil {
		r.redactRecord(resp.Single)
	}
	for i := range resp.Results {
		r.redactRecord(&resp.Results[i])
	}
	return nil
}

func (r *Redactor) redactRecord(rec *core.LogRecord) {
	if len(rec.Raw) > 0 {
		rec.Raw = json.RawMessage(r.redactString(string(rec.Raw)))
	}
	rec.Log = r.redactString(rec.Log)
	if rec.Error == nil {
		return
	}
	rec.Error.Message = r.redactString(rec.Error.Message)
	for _, stack := range rec.Error.StackTrace {
		for i := range stack {
			stack[i] = r.redactString(stack[i])
		}
	}
}

// redactString applies all rules to s. Overlapping matches resolve to
// earliest start, then longest.
func (r *Redactor) redactString(s string) string {
	if len(s) == 0 || len(r.rules) == 0 {
		return s
	}

	type replacement struct {
		start int
		end   int
		text  string
	}

	var reps []replacement
	for _, rule := range r.rules {
		for _, m := range rule.Detect(s) {
			if r.isAllowed(m.Value) {
				continue
			}
			reps = append(reps, replacement{start: m.Start, end: m.End, text: rule.Replacement(m)})
		}
	}
	if len(reps) == 0 {
		return s
	}

	sort.Slice(reps, func(i, j int) bool {
		if reps[i].start != reps[j].start {
			return reps[i].start < reps[j].start
		}
		return reps[i].end > reps[j].end
	})

	var b strings.Builder
	pos := 0
	for _, rep := range reps {
		if rep.start < pos {
			continue
		}
		b.WriteString(s[pos:rep.start])
		b.WriteString(rep.text)
		pos = rep.end
	}
	b.WriteString(s[pos:])
	return b.String()
}

func (r *Redactor) isAllowed(value string) bool {
	for _, re := range r.allowlist {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
