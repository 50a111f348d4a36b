// Package tabular holds the in-memory dataset model and the pure
// transformations the ingestion pipeline chains together. Every
// transformation returns a new Dataset; nothing mutates in place.
package tabular

import (
	"strconv"
	"time"
)

// Kind discriminates the scalar variants a cell can hold.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
	KindBool
)

// Value is one cell. Exactly one of the typed fields is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
	Bool bool
}

// Null returns the missing-value sentinel.
func Null() Value {
	return Value{Kind: KindNull}
}

// String wraps a text cell.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Number wraps a numeric cell.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Time wraps a temporal cell.
func Time(t time.Time) Value {
	return Value{Kind: KindTime, Time: t}
}

// Bool wraps a boolean cell.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// IsNull reports whether the cell is missing.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Display renders the cell for previews and sample values.
func (v Value) Display() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		return v.Time.Format(time.RFC3339)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Column is an ordered sequence of cells under one name.
type Column struct {
	Name   string
	Values []Value
}

// NonNull returns the column's present values, preserving order.
func (c Column) NonNull() []Value {
	out := make([]Value, 0, len(c.Values))
	for _, v := range c.Values {
		if !v.IsNull() {
			out = append(out, v)
		}
	}
	return out
}

// Dataset is an ordered collection of equal-length columns.
type Dataset struct {
	Columns []Column
}

// RowCount returns the number of data rows.
func (d Dataset) RowCount() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// ColumnCount returns the number of columns.
func (d Dataset) ColumnCount() int {
	return len(d.Columns)
}

// ColumnNames returns the column names in order.
func (d Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column, if present.
func (d Dataset) Column(name string) (Column, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the named column exists.
func (d Dataset) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// Row returns the values of one row across all columns.
func (d Dataset) Row(idx int) []Value {
	row := make([]Value, len(d.Columns))
	for i, col := range d.Columns {
		row[i] = col.Values[idx]
	}
	return row
}

// Head returns a copy of the dataset truncated to at most n rows.
func (d Dataset) Head(n int) Dataset {
	if n >= d.RowCount() {
		return d
	}
	cols := make([]Column, len(d.Columns))
	for i, col := range d.Columns {
		cols[i] = Column{Name: col.Name, Values: col.Values[:n]}
	}
	return Dataset{Columns: cols}
}

// MemoryUsageMB approximates the dataset's in-memory footprint.
func (d Dataset) MemoryUsageMB() float64 {
	var bytes int
	for _, col := range d.Columns {
		bytes += len(col.Name)
		for _, v := range col.Values {
			bytes += 40 // struct overhead per cell
			if v.Kind == KindString {
				bytes += len(v.Str)
			}
		}
	}
	return float64(bytes) / 1024 / 1024
}
