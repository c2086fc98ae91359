// Package compliance proves, for a set of stored records, the absence of
// raw text and the well-formedness of every generalized field. The same
// checks run blocking on the write path (via CheckFields) and advisory on
// demand (via Verify).
package compliance

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
)

// forbiddenFields is the closed set whose presence in any persisted record
// is a hard violation, whatever the value.
var forbiddenFields = []string{
	"raw_input",
	"user_input",
	"original_message",
	"message_text",
	"user_message",
	"system_response",
	"original_response",
	"response_text",
	"bot_response",
	"user_email",
	"user_name",
	"user_phone",
}

// maxFreeStringLen caps non-whitelisted top-level string values. Anything
// longer is suspiciously close to free text.
const maxFreeStringLen = 64

// whitelisted fields may carry long-ish but structurally constrained
// values: hashes, session ids, timestamps, buckets, category joins.
var whitelistedStringFields = map[string]struct{}{
	"user_id_hashed":           {},
	"session_id":               {},
	"timestamp_iso":            {},
	"timestamp_coarse":         {},
	"user_len_bucket":          {},
	"system_len_bucket":        {},
	"encoded_signals_category": {},
}

var (
	hashRe   = regexp.MustCompile(`^[0-9a-f]{64}$`)
	weekRe   = regexp.MustCompile(`^\d{4}-W\d{2}$`)
	bucketRe = regexp.MustCompile(`^\d+-\d+_chars$`)
)

// Scope restricts verification to one session; the zero value means all
// stored records.
type Scope struct {
	SessionID string
}

// RecordSource yields stored records in their persisted field-map form.
type RecordSource interface {
	Records(ctx context.Context, scope Scope) ([]map[string]any, error)
}

type Report struct {
	Compliant      bool     `json:"compliant"`
	RecordsChecked int      `json:"records_checked"`
	Issues         []string `json:"issues"`
	Messages       []string `json:"messages"`
}

type Verifier struct {
	source RecordSource
	log    *logger.Logger
}

func NewVerifier(source RecordSource, baseLog *logger.Logger) *Verifier {
	return &Verifier{source: source, log: baseLog.With("component", "ComplianceVerifier")}
}

// Verify reads every record in scope and runs the full check set. Per-
// record problems are collected as issues; the verifier never stops at
// the first bad record.
func (v *Verifier) Verify(ctx context.Context, scope Scope) Report {
	report := Report{Compliant: true, Issues: []string{}, Messages: []string{}}

	records, err := v.source.Records(ctx, scope)
	if err != nil {
		report.Compliant = false
		report.Issues = append(report.Issues, fmt.Sprintf("failed to read records: %v", err))
		return report
	}

	for i, fields := range records {
		report.RecordsChecked++
		if fields == nil {
			report.Issues = append(report.Issues, fmt.Sprintf("record %d: unreadable", i))
			continue
		}
		for _, issue := range CheckFields(fields) {
			report.Issues = append(report.Issues, fmt.Sprintf("record %d: %s", i, issue))
		}
	}

	if len(report.Issues) > 0 {
		report.Compliant = false
	}
	if report.Compliant {
		report.Messages = append(report.Messages, fmt.Sprintf("%d records verified, no raw text present", report.RecordsChecked))
	} else {
		v.log.Warn("compliance verification failed", "issues", len(report.Issues), "records", report.RecordsChecked)
	}
	return report
}

// CheckFields runs the closed rule set against one persisted record. An
// empty result means the record is compliant.
func CheckFields(fields map[string]any) []string {
	var issues []string

	for _, name := range forbiddenFields {
		if _, ok := fields[name]; ok {
			issues = append(issues, fmt.Sprintf("forbidden field %q present", name))
		}
	}

	if hash, ok := fields["user_id_hashed"].(string); !ok {
		issues = append(issues, "user_id_hashed missing or not a string")
	} else if !hashRe.MatchString(hash) {
		issues = append(issues, fmt.Sprintf("user_id_hashed malformed: %q", hash))
	}

	// Week coarseness carries a 'W'; day and month coarseness use plain
	// date layouts checked implicitly by the length cap below.
	if coarse, ok := fields["timestamp_coarse"].(string); ok && strings.Contains(coarse, "W") {
		if !weekRe.MatchString(coarse) {
			issues = append(issues, fmt.Sprintf("timestamp_coarse malformed: %q", coarse))
		}
	}

	for _, name := range []string{"user_len_bucket", "system_len_bucket"} {
		if b, ok := fields[name].(string); ok && !bucketRe.MatchString(b) {
			issues = append(issues, fmt.Sprintf("%s malformed: %q", name, b))
		}
	}

	for name, v := range fields {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, ok := whitelistedStringFields[name]; ok {
			continue
		}
		if len(s) > maxFreeStringLen {
			issues = append(issues, fmt.Sprintf("field %q exceeds %d chars", name, maxFreeStringLen))
		}
	}

	return issues
}
