// Package validation grades dataset quality. Findings are data, not
// errors: every check runs, results are merged, and the report's
// verdict depends only on the error count.
package validation

import (
	"fmt"
	"time"

	"github.com/skucast/skucast/internal/domain"
	"github.com/skucast/skucast/internal/tabular"
)

const (
	maxColumns     = 50
	minColumns     = 2
	shortRangeDays = 30
	errorNullPct   = 50.0
	warningNullPct = 20.0
)

var epochFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Validate runs every quality check against the dataset and its profile
// and merges the findings into one report. Deterministic, no mutation.
func Validate(ds tabular.Dataset, profile domain.SchemaProfile) domain.ValidationReport {
	issues := checkStructure(profile)
	issues = append(issues, checkMissingValues(profile)...)

	if profile.SuggestedDateColumn != "" {
		issues = append(issues, checkDateRange(ds, profile.SuggestedDateColumn)...)
	}

	for _, col := range profile.Columns {
		if col.DetectedType == domain.ColumnTypeNumeric || col.DetectedType == domain.ColumnTypeInteger {
			issues = append(issues, checkNumericValues(ds, col.Name)...)
		}
	}

	return domain.NewValidationReport(issues)
}

func checkStructure(profile domain.SchemaProfile) []domain.ValidationIssue {
	var issues []domain.ValidationIssue

	if profile.RowCount == 0 {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityError,
			Kind:       domain.IssueEmptyFile,
			Message:    "File contains no data rows",
			Suggestion: "Upload a file with at least one data row",
		})
	}

	if profile.ColumnCount > maxColumns {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityWarning,
			Kind:       domain.IssueTooManyColumns,
			Message:    fmt.Sprintf("File has %d columns, which is unusual", profile.ColumnCount),
			Suggestion: "Ensure the first row contains column headers",
		})
	}

	if profile.ColumnCount < minColumns {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityError,
			Kind:       domain.IssueTooFewColumns,
			Message:    fmt.Sprintf("File has less than %d columns", minColumns),
			Suggestion: "Sales data typically has date, SKU, and quantity columns",
		})
	}

	return issues
}

// checkMissingValues emits at most one finding per column: error above
// 50%, warning above 20%, info above zero.
func checkMissingValues(profile domain.SchemaProfile) []domain.ValidationIssue {
	var issues []domain.ValidationIssue

	for _, col := range profile.Columns {
		pct := col.NullPercentage
		message := fmt.Sprintf("Column %q has %.1f%% missing values", col.Name, pct)

		switch {
		case pct > errorNullPct:
			issues = append(issues, domain.ValidationIssue{
				Severity:   domain.SeverityError,
				Kind:       domain.IssueExcessiveMissingValues,
				Column:     col.Name,
				Message:    message,
				Suggestion: "This column may not be useful for analysis",
			})
		case pct > warningNullPct:
			issues = append(issues, domain.ValidationIssue{
				Severity:   domain.SeverityWarning,
				Kind:       domain.IssueHighMissingValues,
				Column:     col.Name,
				Message:    message,
				Suggestion: "Consider filling missing values or removing this column",
			})
		case pct > 0:
			issues = append(issues, domain.ValidationIssue{
				Severity:   domain.SeverityInfo,
				Kind:       domain.IssueMissingValues,
				Column:     col.Name,
				Message:    message,
				Suggestion: "Missing values will be handled during processing",
			})
		}
	}

	return issues
}

func checkDateRange(ds tabular.Dataset, dateColumn string) []domain.ValidationIssue {
	col, ok := ds.Column(dateColumn)
	if !ok {
		return nil
	}

	var parsed []time.Time
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		if ts, ok := tabular.AsTime(v); ok {
			parsed = append(parsed, ts)
		}
	}

	if len(parsed) == 0 {
		return []domain.ValidationIssue{{
			Severity:   domain.SeverityError,
			Kind:       domain.IssueInvalidDates,
			Column:     dateColumn,
			Message:    fmt.Sprintf("Could not parse dates in column %q", dateColumn),
			Suggestion: "Ensure dates are in YYYY-MM-DD format",
		}}
	}

	var issues []domain.ValidationIssue
	now := time.Now()

	minDate, maxDate := parsed[0], parsed[0]
	futureCount, oldCount := 0, 0
	for _, ts := range parsed {
		if ts.Before(minDate) {
			minDate = ts
		}
		if ts.After(maxDate) {
			maxDate = ts
		}
		if ts.After(now) {
			futureCount++
		}
		if ts.Before(epochFloor) {
			oldCount++
		}
	}

	if futureCount > 0 {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityWarning,
			Kind:       domain.IssueFutureDates,
			Column:     dateColumn,
			Message:    fmt.Sprintf("%d rows have future dates", futureCount),
			Suggestion: "Future dates may indicate data entry errors",
		})
	}

	if oldCount > 0 {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityWarning,
			Kind:       domain.IssueVeryOldDates,
			Column:     dateColumn,
			Message:    fmt.Sprintf("%d rows have dates before year 2000", oldCount),
			Suggestion: "Old dates may indicate incorrect data",
		})
	}

	if spanDays := int(maxDate.Sub(minDate).Hours() / 24); spanDays < shortRangeDays {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityWarning,
			Kind:       domain.IssueShortDateRange,
			Column:     dateColumn,
			Message:    fmt.Sprintf("Data spans only %d days", spanDays),
			Suggestion: "Forecasting works best with at least 3 months of data",
		})
	}

	return issues
}

func checkNumericValues(ds tabular.Dataset, columnName string) []domain.ValidationIssue {
	col, ok := ds.Column(columnName)
	if !ok {
		return nil
	}

	negativeCount, zeroCount := 0, 0
	for _, v := range col.Values {
		f, ok := tabular.AsNumber(v)
		if !ok {
			continue
		}
		if f < 0 {
			negativeCount++
		}
		if f == 0 {
			zeroCount++
		}
	}

	var issues []domain.ValidationIssue

	if negativeCount > 0 {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityInfo,
			Kind:       domain.IssueNegativeValues,
			Column:     columnName,
			Message:    fmt.Sprintf("%d rows have negative values in %q", negativeCount, columnName),
			Suggestion: "Negative values may be valid for returns/discounts",
		})
	}

	if float64(zeroCount) > float64(len(col.Values))*0.5 {
		issues = append(issues, domain.ValidationIssue{
			Severity:   domain.SeverityWarning,
			Kind:       domain.IssueManyZeros,
			Column:     columnName,
			Message:    fmt.Sprintf("More than 50%% of values in %q are zero", columnName),
			Suggestion: "Many zeros may indicate missing data coded as zero",
		})
	}

	return issues
}
