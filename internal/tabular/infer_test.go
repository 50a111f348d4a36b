package tabular

import (
	"fmt"
	"testing"
	"time"

	"github.com/skucast/skucast/internal/domain"
)

func column(name string, raw ...string) Column {
	values := make([]Value, len(raw))
	for i, s := range raw {
		if s == "" {
			values[i] = Null()
		} else {
			values[i] = String(s)
		}
	}
	return Column{Name: name, Values: values}
}

func TestClassifyDate(t *testing.T) {
	col := column("order_date", "2024-01-01", "2024-01-02", "2024-01-03")
	if got := Classify(col); got != domain.ColumnTypeDate {
		t.Fatalf("expected date, got %s", got)
	}
}

func TestClassifyDatetimeWhenAnyTimeOfDay(t *testing.T) {
	col := column("created_at", "2024-01-01", "2024-01-02 15:04:05")
	if got := Classify(col); got != domain.ColumnTypeDatetime {
		t.Fatalf("expected datetime, got %s", got)
	}
}

func TestClassifyIntegerToleratesNoise(t *testing.T) {
	// 9 of 10 values parse, which clears the coercion threshold.
	col := column("qty", "1", "2", "3", "4", "5", "6", "7", "8", "9", "n/a")
	if got := Classify(col); got != domain.ColumnTypeInteger {
		t.Fatalf("expected integer, got %s", got)
	}
}

func TestClassifyNumericWithFractions(t *testing.T) {
	col := column("price", "1.50", "2.00", "3.25")
	if got := Classify(col); got != domain.ColumnTypeNumeric {
		t.Fatalf("expected numeric, got %s", got)
	}
}

func TestClassifyBelowThresholdIsNotNumeric(t *testing.T) {
	// 7 of 10 parse: under the threshold, and too many distinct values
	// for categorical.
	col := column("mixed", "1", "2", "3", "4", "5", "6", "7", "abc", "def", "ghi")
	if got := Classify(col); got != domain.ColumnTypeText {
		t.Fatalf("expected text, got %s", got)
	}
}

func TestClassifyBoolean(t *testing.T) {
	col := column("active", "yes", "no", "true", "false", "YES")
	if got := Classify(col); got != domain.ColumnTypeBoolean {
		t.Fatalf("expected boolean, got %s", got)
	}
}

func TestClassifyCategorical(t *testing.T) {
	raw := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		raw = append(raw, []string{"red", "green", "blue"}[i%3])
	}
	col := column("color", raw...)
	if got := Classify(col); got != domain.ColumnTypeCategorical {
		t.Fatalf("expected categorical, got %s", got)
	}
}

func TestClassifyHighCardinalityIsText(t *testing.T) {
	raw := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		raw = append(raw, fmt.Sprintf("cust-%d", i))
	}
	col := column("customer", raw...)
	if got := Classify(col); got != domain.ColumnTypeText {
		t.Fatalf("expected text, got %s", got)
	}
}

func TestClassifyAllNullIsUnknown(t *testing.T) {
	col := column("empty", "", "", "")
	if got := Classify(col); got != domain.ColumnTypeUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestConvertTypesCoercesNumericNoiseToNull(t *testing.T) {
	ds := Dataset{Columns: []Column{
		column("qty", "1", "2", "x", "4", "5", "6", "7", "8", "9", "10"),
	}}

	out := ConvertTypes(ds)
	values := out.Columns[0].Values

	if !values[2].IsNull() {
		t.Fatalf("expected unparsable cell to become null, got %v", values[2])
	}
	if values[0].Kind != KindNumber || values[0].Num != 1 {
		t.Fatalf("expected first cell to be number 1, got %v", values[0])
	}
	if values[9].Kind != KindNumber || values[9].Num != 10 {
		t.Fatalf("expected last cell to be number 10, got %v", values[9])
	}
}

func TestConvertTypesCoercesTimestamps(t *testing.T) {
	ds := Dataset{Columns: []Column{
		column("date", "2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "bad"),
	}}

	out := ConvertTypes(ds)
	values := out.Columns[0].Values

	if values[0].Kind != KindTime {
		t.Fatalf("expected time cell, got %v", values[0])
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !values[0].Time.Equal(want) {
		t.Fatalf("expected %v, got %v", want, values[0].Time)
	}
	if !values[4].IsNull() {
		t.Fatalf("expected unparsable cell to become null, got %v", values[4])
	}
}

func TestConvertTypesLeavesTextAlone(t *testing.T) {
	ds := Dataset{Columns: []Column{
		column("note", "hello", "world", "three"),
	}}

	out := ConvertTypes(ds)
	for i, v := range out.Columns[0].Values {
		if v.Kind != KindString {
			t.Fatalf("expected cell %d to stay a string, got %v", i, v)
		}
	}
}

func TestConvertTypesPrefersNumericOverTemporal(t *testing.T) {
	// Four-digit years parse as numbers, so numeric coercion must win.
	ds := Dataset{Columns: []Column{
		column("year", "2021", "2022", "2023"),
	}}

	out := ConvertTypes(ds)
	if out.Columns[0].Values[0].Kind != KindNumber {
		t.Fatalf("expected numeric coercion, got %v", out.Columns[0].Values[0])
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2024-06-15", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"2024/06/15", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-06-15 08:30:00", time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)},
		{"06/15/2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.raw)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tc.raw, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}

	if _, err := ParseTimestamp("not a date"); err == nil {
		t.Fatal("expected error for unparsable timestamp")
	}
}
