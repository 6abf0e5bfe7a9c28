// Package redact scrubs secrets and personal data from execution logs before
// they reach the terminal.
package redact

import (
	"fmt"
	"regexp"
)

// Rule kinds.
const (
	KindSecret = "secret"
	KindPII    = "pii"
)

// Rule detects sensitive data in a string and provides a replacement.
type Rule interface {
	Name() string
	Kind() string
	Detect(s string) []Match
	Replacement(m Match) string
}

// Match is one detected occurrence within a string.
type Match struct {
	Start int
	End   int
	Value string
}

type regexRule struct {
	name    string
	kind    string
	pattern *regexp.Regexp
	// keep is the number of leading bytes of a match left visible.
	keep int
}

func (r *regexRule) Name() string { return r.name }
func (r *regexRule) Kind() string { return r.kind }

func (r *regexRule) Detect(s string) []Match {
	locs := r.pattern.FindAllStringIndex(s, -1)
	matches := make([]Match, len(locs))
	for i, loc := range locs {
		matches[i] = Match{Start: loc[0], End: loc[1], Value: s[loc[0]:loc[1]]}
	}
	return matches
}

func (r *regexRule) Replacement(m Match) string {
	prefix := ""
	if r.keep > 0 && r.keep < len(m.Value) {
		prefix = m.Value[:r.keep]
	}
	return fmt.Sprintf("%s[REDACTED:%s]", prefix, r.name)
}

func secret(name, pattern string) *regexRule {
	return &regexRule{name: name, kind: KindSecret, pattern: regexp.MustCompile(pattern)}
}

func pii(name, pattern string) *regexRule {
	return &regexRule{name: name, kind: KindPII, pattern: regexp.MustCompile(pattern)}
}

// SecretRules returns the built-in secret detection rules.
func SecretRules() []Rule {
	bearer := secret("bearer", `(?i)bearer [A-Za-z0-9\-._~+/]+=*`)
	bearer.keep = len("Bearer ")

	return []Rule{
		secret("access_key", `pat-(?:na|eu|ap)\d-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`),
		secret("api_key", `(?i)(?:hapikey|api_key|apikey)=[A-Za-z0-9\-]{16,}`),
		bearer,
		secret("aws_key", `AKIA[0-9A-Z]{16}`),
		secret("private_key", `-----BEGIN [A-Z ]+PRIVATE KEY-----`),
		secret("connection_string", `(?:postgres|mongodb|mysql|redis)://[^\s"'`+"`"+`]+`),
		secret("jwt", `eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_.+/=]+`),
	}
}

// PIIRules returns the built-in PII detection rules.
func PIIRules() []Rule {
	return []Rule{
		pii("email", `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		pii("ipv4", `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		pii("phone", `(?:\+\d{1,3}[\s\-]?)?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{4}`),
	}
}
