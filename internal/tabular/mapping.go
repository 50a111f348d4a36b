package tabular

import (
	"time"

	"github.com/skucast/skucast/internal/domain"
)

// ApplyMapping renames columns per the caller-confirmed source→target
// mapping. Columns absent from the mapping pass through unchanged and
// unknown target names are accepted as-is; completeness is surfaced by
// FillDefaults, not here.
func ApplyMapping(ds Dataset, mapping map[string]string) Dataset {
	if len(mapping) == 0 {
		return ds
	}
	columns := make([]Column, len(ds.Columns))
	for i, col := range ds.Columns {
		name := col.Name
		if target, ok := mapping[name]; ok && target != "" {
			name = target
		}
		columns[i] = Column{Name: name, Values: col.Values}
	}
	return Dataset{Columns: columns}
}

// FillDefaults guarantees the target schema's required columns exist,
// appending a constant column for each one a file never carried. It
// never removes or overwrites existing columns.
func FillDefaults(ds Dataset, now time.Time) Dataset {
	rows := ds.RowCount()
	columns := append([]Column(nil), ds.Columns...)

	defaults := map[string]Value{
		domain.FieldDate:          Time(midnight(now)),
		domain.FieldSKUID:         String(domain.UnknownSKU),
		domain.FieldSalesQuantity: Number(0),
		domain.FieldUnitPrice:     Number(0),
		domain.FieldSalesRevenue:  Number(0),
		domain.FieldStockLevel:    Number(0),
		domain.FieldCategory:      String(""),
	}

	for _, field := range domain.RequiredFields {
		if ds.HasColumn(field) {
			continue
		}
		values := make([]Value, rows)
		for i := range values {
			values[i] = defaults[field]
		}
		columns = append(columns, Column{Name: field, Values: values})
	}

	return Dataset{Columns: columns}
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
