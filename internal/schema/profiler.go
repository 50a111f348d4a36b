// Package schema profiles datasets: per-column structure plus the
// semantic roles used to line columns up with the sales target schema.
package schema

import (
	"strings"

	"github.com/skucast/skucast/internal/domain"
	"github.com/skucast/skucast/internal/tabular"
)

const sampleLimit = 5

// keywordFamily pairs a semantic role with the name fragments that
// suggest it. Families and their keywords are checked in declaration
// order; the first substring hit wins.
type keywordFamily struct {
	role     domain.SemanticRole
	keywords []string
}

var keywordFamilies = []keywordFamily{
	{domain.RoleDate, []string{"date", "day", "time", "timestamp", "datetime", "dt", "period"}},
	{domain.RoleSKU, []string{"sku", "product_id", "item_id", "product_code", "item_code", "id"}},
	{domain.RoleQuantity, []string{"quantity", "qty", "amount", "count", "units", "volume"}},
	{domain.RoleRevenue, []string{"revenue", "sales", "price", "total", "amount", "value", "turnover"}},
	{domain.RoleStock, []string{"stock", "inventory", "on_hand", "available", "balance"}},
	{domain.RoleCategory, []string{"category", "type", "group", "department", "class", "segment"}},
}

// SuggestRole proposes a business meaning for a column based on its
// name. The search is a substring match against the normalized name,
// so product_id matches the sku family via "id".
func SuggestRole(columnName string) (domain.SemanticRole, bool) {
	name := tabular.NormalizeName(columnName)
	for _, family := range keywordFamilies {
		for _, keyword := range family.keywords {
			if strings.Contains(name, keyword) {
				return family.role, true
			}
		}
	}
	return "", false
}

// Profile builds the structural profile of a dataset. It never fails on
// well-formed input; an empty dataset yields zeroed per-column stats.
func Profile(ds tabular.Dataset) domain.SchemaProfile {
	rowCount := ds.RowCount()

	profile := domain.SchemaProfile{
		Columns:       make([]domain.ColumnProfile, 0, ds.ColumnCount()),
		RowCount:      rowCount,
		ColumnCount:   ds.ColumnCount(),
		MemoryUsageMB: ds.MemoryUsageMB(),
	}

	for _, col := range ds.Columns {
		colType := tabular.Classify(col)

		var suggested *domain.SemanticRole
		if role, ok := SuggestRole(col.Name); ok {
			r := role
			suggested = &r
		}

		nonNull := col.NonNull()
		nullCount := rowCount - len(nonNull)

		var nullPct float64
		if rowCount > 0 {
			nullPct = float64(nullCount) / float64(rowCount) * 100
		}

		samples := make([]string, 0, sampleLimit)
		for _, v := range nonNull {
			if len(samples) == sampleLimit {
				break
			}
			samples = append(samples, v.Display())
		}

		profile.Columns = append(profile.Columns, domain.ColumnProfile{
			Name:           col.Name,
			DetectedType:   colType,
			SuggestedRole:  suggested,
			NullCount:      nullCount,
			NullPercentage: nullPct,
			UniqueCount:    distinct(nonNull),
			SampleValues:   samples,
		})

		// First qualifying column per role wins; the date role also
		// requires a temporal detected type.
		if suggested != nil && *suggested == domain.RoleDate && profile.SuggestedDateColumn == "" {
			if colType == domain.ColumnTypeDate || colType == domain.ColumnTypeDatetime {
				profile.SuggestedDateColumn = col.Name
			}
		}
		if suggested != nil && *suggested == domain.RoleSKU && profile.SuggestedSKUColumn == "" {
			profile.SuggestedSKUColumn = col.Name
		}
	}

	return profile
}

func distinct(values []tabular.Value) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v.Display()] = struct{}{}
	}
	return len(seen)
}
