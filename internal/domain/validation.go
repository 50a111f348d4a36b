package domain

import "fmt"

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// IssueKind is the closed set of data-quality findings.
type IssueKind string

const (
	IssueEmptyFile               IssueKind = "empty_file"
	IssueTooManyColumns          IssueKind = "too_many_columns"
	IssueTooFewColumns           IssueKind = "too_few_columns"
	IssueExcessiveMissingValues  IssueKind = "excessive_missing_values"
	IssueHighMissingValues       IssueKind = "high_missing_values"
	IssueMissingValues           IssueKind = "missing_values"
	IssueInvalidDates            IssueKind = "invalid_dates"
	IssueFutureDates             IssueKind = "future_dates"
	IssueVeryOldDates            IssueKind = "very_old_dates"
	IssueShortDateRange          IssueKind = "short_date_range"
	IssueNegativeValues          IssueKind = "negative_values"
	IssueManyZeros               IssueKind = "many_zeros"
)

// ValidationIssue is one graded data-quality finding.
type ValidationIssue struct {
	Severity   Severity  `json:"severity"`
	Kind       IssueKind `json:"type"`
	Column     string    `json:"column,omitempty"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`
}

// ValidationReport aggregates all findings for one dataset.
type ValidationReport struct {
	IsValid     bool              `json:"is_valid"`
	TotalIssues int               `json:"total_issues"`
	Errors      int               `json:"errors"`
	Warnings    int               `json:"warnings"`
	Infos       int               `json:"infos"`
	Issues      []ValidationIssue `json:"issues"`
	Summary     string            `json:"summary"`
}

// NewValidationReport derives counts, verdict, and summary from issues.
func NewValidationReport(issues []ValidationIssue) ValidationReport {
	report := ValidationReport{
		Issues:      issues,
		TotalIssues: len(issues),
	}
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			report.Errors++
		case SeverityWarning:
			report.Warnings++
		case SeverityInfo:
			report.Infos++
		}
	}

	report.IsValid = report.Errors == 0

	switch {
	case report.Errors > 0:
		report.Summary = fmt.Sprintf("File has %d error(s) that must be fixed before processing", report.Errors)
	case report.Warnings > 0:
		report.Summary = fmt.Sprintf("File is valid but has %d warning(s)", report.Warnings)
	default:
		report.Summary = "File validation passed with no issues"
	}

	return report
}
