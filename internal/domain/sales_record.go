package domain

import (
	"time"

	"github.com/google/uuid"
)

// Target schema field names that cleaned rows are mapped onto.
const (
	FieldDate          = "date"
	FieldSKUID         = "sku_id"
	FieldSalesQuantity = "sales_quantity"
	FieldUnitPrice     = "unit_price"
	FieldSalesRevenue  = "sales_revenue"
	FieldStockLevel    = "stock_level"
	FieldCategory      = "category"
)

// UnknownSKU is the sentinel inserted when a file carries no SKU column.
const UnknownSKU = "UNKNOWN"

// RequiredFields lists the target schema columns every cleaned dataset
// must contain, in storage order.
var RequiredFields = []string{
	FieldDate,
	FieldSKUID,
	FieldSalesQuantity,
	FieldUnitPrice,
	FieldSalesRevenue,
	FieldStockLevel,
	FieldCategory,
}

// SalesSummary aggregates one upload's materialized records: totals,
// averages, distinct SKU count, and the covered date range. Zero
// TotalRecords means the upload has no records and the other fields
// carry no information.
type SalesSummary struct {
	TotalRecords    int64      `json:"total_records"`
	TotalQuantity   float64    `json:"total_quantity"`
	TotalRevenue    float64    `json:"total_revenue"`
	AverageQuantity float64    `json:"average_quantity"`
	AverageRevenue  float64    `json:"average_revenue"`
	UniqueSKUs      int64      `json:"unique_skus"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
}

// SalesRecord is one cleaned, mapped row ready for forecasting.
// Immutable once created; removed only by deleting its owning upload.
type SalesRecord struct {
	ID            uuid.UUID `json:"id"`
	UploadID      uuid.UUID `json:"upload_id"`
	Date          time.Time `json:"date"`
	SKUID         string    `json:"sku_id"`
	SalesQuantity float64   `json:"sales_quantity"`
	UnitPrice     float64   `json:"unit_price"`
	SalesRevenue  float64   `json:"sales_revenue"`
	StockLevel    int64     `json:"stock_level"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"created_at"`
}
