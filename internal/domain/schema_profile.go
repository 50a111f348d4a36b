package domain

// ColumnType classifies the values stored in one column.
type ColumnType string

const (
	ColumnTypeDate        ColumnType = "date"
	ColumnTypeDatetime    ColumnType = "datetime"
	ColumnTypeNumeric     ColumnType = "numeric"
	ColumnTypeInteger     ColumnType = "integer"
	ColumnTypeText        ColumnType = "text"
	ColumnTypeCategorical ColumnType = "categorical"
	ColumnTypeBoolean     ColumnType = "boolean"
	ColumnTypeUnknown     ColumnType = "unknown"
)

// SemanticRole is the inferred business meaning of a column.
type SemanticRole string

const (
	RoleDate     SemanticRole = "date"
	RoleSKU      SemanticRole = "sku"
	RoleQuantity SemanticRole = "quantity"
	RoleRevenue  SemanticRole = "revenue"
	RoleStock    SemanticRole = "stock"
	RoleCategory SemanticRole = "category"
)

// ColumnProfile describes the structure of a single column.
type ColumnProfile struct {
	Name           string        `json:"name"`
	DetectedType   ColumnType    `json:"detected_type"`
	SuggestedRole  *SemanticRole `json:"suggested_role,omitempty"`
	NullCount      int           `json:"null_count"`
	NullPercentage float64       `json:"null_percentage"`
	UniqueCount    int           `json:"unique_count"`
	SampleValues   []string      `json:"sample_values"`
}

// SchemaProfile is the detected structural description of a dataset.
type SchemaProfile struct {
	Columns             []ColumnProfile `json:"columns"`
	RowCount            int             `json:"row_count"`
	ColumnCount         int             `json:"column_count"`
	SuggestedDateColumn string          `json:"suggested_date_column,omitempty"`
	SuggestedSKUColumn  string          `json:"suggested_sku_column,omitempty"`
	MemoryUsageMB       float64         `json:"memory_usage_mb"`
}

// Column returns the profile for the named column, if present.
func (p SchemaProfile) Column(name string) (ColumnProfile, bool) {
	for _, col := range p.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnProfile{}, false
}
