package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/skucast/skucast/internal/domain"
)

// numericThreshold is the share of values that must coerce for a column
// to be treated as numeric, in both classification and conversion.
const numericThreshold = 0.8

// Categorical detection: distinct/total below the ratio and an absolute
// cap on distinct values.
const (
	categoricalRatio  = 0.1
	categoricalUnique = 50
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000000000",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
}

// ParseTimestamp parses a raw cell against the supported layouts.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// AsTime interprets a cell as a timestamp.
func AsTime(v Value) (time.Time, bool) {
	switch v.Kind {
	case KindTime:
		return v.Time, true
	case KindString:
		ts, err := ParseTimestamp(v.Str)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	default:
		return time.Time{}, false
	}
}

// AsNumber interprets a cell as a float.
func AsNumber(v Value) (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func looksLikeBool(v Value) bool {
	switch v.Kind {
	case KindBool:
		return true
	case KindNumber:
		return v.Num == 0 || v.Num == 1
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "false", "0", "1", "yes", "no":
			return true
		}
	}
	return false
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

// Classify detects the semantic type of one column. The decision order
// matters: timestamps before numerics, numerics before booleans,
// booleans before the low-cardinality categorical check.
func Classify(col Column) domain.ColumnType {
	nonNull := col.NonNull()
	if len(nonNull) == 0 {
		return domain.ColumnTypeUnknown
	}

	allTimes := true
	allMidnight := true
	for _, v := range nonNull {
		ts, ok := AsTime(v)
		if !ok {
			allTimes = false
			break
		}
		if !isMidnight(ts) {
			allMidnight = false
		}
	}
	if allTimes {
		if allMidnight {
			return domain.ColumnTypeDate
		}
		return domain.ColumnTypeDatetime
	}

	coerced := 0
	allIntegral := true
	for _, v := range nonNull {
		f, ok := AsNumber(v)
		if !ok {
			continue
		}
		coerced++
		if f != math.Trunc(f) {
			allIntegral = false
		}
	}
	if float64(coerced)/float64(len(nonNull)) >= numericThreshold {
		if allIntegral {
			return domain.ColumnTypeInteger
		}
		return domain.ColumnTypeNumeric
	}

	allBool := true
	for _, v := range nonNull {
		if !looksLikeBool(v) {
			allBool = false
			break
		}
	}
	if allBool {
		return domain.ColumnTypeBoolean
	}

	distinct := distinctCount(nonNull)
	if float64(distinct)/float64(len(nonNull)) < categoricalRatio && distinct < categoricalUnique {
		return domain.ColumnTypeCategorical
	}

	return domain.ColumnTypeText
}

func distinctCount(values []Value) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v.Display()] = struct{}{}
	}
	return len(seen)
}

// ConvertTypes rewrites each column's cells to their inferred type.
// Numeric coercion wins when enough values parse, then timestamps.
// Individual failures become nulls, never errors.
func ConvertTypes(ds Dataset) Dataset {
	columns := make([]Column, len(ds.Columns))
	for i, col := range ds.Columns {
		columns[i] = convertColumn(col)
	}
	return Dataset{Columns: columns}
}

func convertColumn(col Column) Column {
	nonNull := 0
	numeric := 0
	temporal := 0
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		nonNull++
		if _, ok := AsNumber(v); ok {
			numeric++
		}
		if _, ok := AsTime(v); ok {
			temporal++
		}
	}
	if nonNull == 0 {
		return col
	}

	if float64(numeric)/float64(nonNull) >= numericThreshold {
		values := make([]Value, len(col.Values))
		for i, v := range col.Values {
			if f, ok := AsNumber(v); ok {
				values[i] = Number(f)
			} else {
				values[i] = Null()
			}
		}
		return Column{Name: col.Name, Values: values}
	}

	if float64(temporal)/float64(nonNull) >= numericThreshold {
		values := make([]Value, len(col.Values))
		for i, v := range col.Values {
			if ts, ok := AsTime(v); ok {
				values[i] = Time(ts)
			} else {
				values[i] = Null()
			}
		}
		return Column{Name: col.Name, Values: values}
	}

	return col
}
