package config

import (
	"fmt"
	"time"
)

// ValidationSeverity indicates whether a validation issue is an error or a
// warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the job cannot run.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates the job will run but may not behave as the
	// author intended.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g. "phase[1].duration"
	Message  string
}

// ValidationResult holds every issue found by Validate.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors reports whether any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors()) > 0
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// recognizedKinds is the set of phase kinds this repository's CLI registers
// (see internal/demophase). A job naming any other kind is a validation
// error: the runner has nothing to construct it with.
var recognizedKinds = map[string]bool{
	"sleep": true,
	"emit":  true,
}

// recognizedParsers is the set of output-parser names internal/outputtask
// exposes ready-made.
var recognizedParsers = map[string]bool{
	"kv":     true,
	"logfmt": true,
}

// Validate checks a Job for structural problems: duplicate or missing
// phase ids, unrecognized phase kinds, kind-specific required fields, and
// unrecognized parser names. It never mutates job.
func Validate(job *Job) *ValidationResult {
	result := &ValidationResult{}
	seen := make(map[string]bool, len(job.Phase))

	if len(job.Phase) == 0 {
		result.Issues = append(result.Issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    "phase",
			Message:  "job declares no phases; the run will only visit Init and Terminal",
		})
	}

	for i, ps := range job.Phase {
		field := fmt.Sprintf("phase[%d]", i)

		if ps.ID == "" {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError, Field: field + ".id", Message: "phase id must not be empty",
			})
		} else if seen[ps.ID] {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError, Field: field + ".id",
				Message: fmt.Sprintf("duplicate phase id %q", ps.ID),
			})
		}
		seen[ps.ID] = true

		if !recognizedKinds[ps.Kind] {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError, Field: field + ".kind",
				Message: fmt.Sprintf("unrecognized phase kind %q", ps.Kind),
			})
			continue
		}

		switch ps.Kind {
		case "sleep":
			if ps.Duration == "" {
				result.Issues = append(result.Issues, ValidationIssue{
					Severity: SeverityError, Field: field + ".duration",
					Message: "sleep phase requires a duration",
				})
			} else if _, err := time.ParseDuration(ps.Duration); err != nil {
				result.Issues = append(result.Issues, ValidationIssue{
					Severity: SeverityError, Field: field + ".duration",
					Message: fmt.Sprintf("invalid duration %q: %v", ps.Duration, err),
				})
			}
		case "emit":
			if len(ps.Lines) == 0 {
				result.Issues = append(result.Issues, ValidationIssue{
					Severity: SeverityWarning, Field: field + ".lines",
					Message: "emit phase has no lines configured; it will advance immediately",
				})
			}
			if ps.FailAt < 0 || ps.FailAt > len(ps.Lines) {
				result.Issues = append(result.Issues, ValidationIssue{
					Severity: SeverityError, Field: field + ".fail_at",
					Message: fmt.Sprintf("fail_at %d out of range for %d lines", ps.FailAt, len(ps.Lines)),
				})
			}
		}
	}

	for i, name := range job.Output.Parsers {
		if !recognizedParsers[name] {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError, Field: fmt.Sprintf("output.parsers[%d]", i),
				Message: fmt.Sprintf("unrecognized parser %q", name),
			})
		}
	}

	return result
}
