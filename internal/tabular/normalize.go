package tabular

import (
	"fmt"
	"strings"
)

// NormalizeName canonicalizes a raw column label: trim, lowercase,
// spaces and hyphens to underscores, then strip everything outside
// [a-z0-9_]. Lowercasing happens before the character strip so that
// uppercase letters survive as their lowercase forms.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeColumns returns a dataset with canonical column names.
// When two raw labels collapse to the same canonical name, later
// columns get the first free numeric suffix (name_2, name_3, ...) so
// no column is silently dropped and no two columns share a final name,
// even when a raw label already ends in a suffix another column was
// assigned. Names that normalize to nothing become column_N.
func NormalizeColumns(ds Dataset) Dataset {
	columns := make([]Column, len(ds.Columns))
	used := make(map[string]bool)

	for idx, col := range ds.Columns {
		name := NormalizeName(col.Name)
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		used[candidate] = true

		columns[idx] = Column{Name: candidate, Values: col.Values}
	}

	return Dataset{Columns: columns}
}
