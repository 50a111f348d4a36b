package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skucast/skucast/internal/db"
	"github.com/skucast/skucast/internal/domain"
)

type salesRecordRepository struct {
	pool *pgxpool.Pool
}

// NewSalesRecordRepository wires a sales record repository backed by pgxpool.
func NewSalesRecordRepository(pool *pgxpool.Pool) SalesRecordRepository {
	return &salesRecordRepository{pool: pool}
}

var salesRecordColumns = []string{
	"id", "upload_id", "date", "sku_id",
	"sales_quantity", "unit_price", "sales_revenue", "stock_level",
	"category", "created_at",
}

// BulkInsert copies all records inside one transaction so a failure
// commits nothing.
func (r *salesRecordRepository) BulkInsert(ctx context.Context, records []domain.SalesRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(records))
	now := time.Now().UTC()
	for i, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows[i] = []any{
			rec.ID, rec.UploadID, rec.Date, rec.SKUID,
			rec.SalesQuantity, rec.UnitPrice, rec.SalesRevenue, rec.StockLevel,
			rec.Category, createdAt,
		}
	}

	var inserted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"sales_records"},
			salesRecordColumns,
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to bulk insert sales records: %w", err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(inserted), nil
}

func (r *salesRecordRepository) ListByUpload(ctx context.Context, uploadID uuid.UUID, skuID string, limit, offset int) ([]domain.SalesRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, upload_id, date, sku_id, sales_quantity, unit_price, sales_revenue, stock_level, category, created_at
		 FROM sales_records
		 WHERE upload_id = $1 AND ($2 = '' OR sku_id = $2)
		 ORDER BY date, sku_id
		 LIMIT $3 OFFSET $4`,
		uploadID, skuID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales records: %w", err)
	}
	defer rows.Close()

	records := []domain.SalesRecord{}
	for rows.Next() {
		var rec domain.SalesRecord
		if err := rows.Scan(
			&rec.ID, &rec.UploadID, &rec.Date, &rec.SKUID,
			&rec.SalesQuantity, &rec.UnitPrice, &rec.SalesRevenue, &rec.StockLevel,
			&rec.Category, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sales record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *salesRecordRepository) SummaryByUpload(ctx context.Context, uploadID uuid.UUID) (domain.SalesSummary, error) {
	var (
		summary   domain.SalesSummary
		startDate pgtype.Timestamptz
		endDate   pgtype.Timestamptz
	)

	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(sales_quantity), 0),
		        COALESCE(SUM(sales_revenue), 0),
		        COALESCE(AVG(sales_quantity), 0),
		        COALESCE(AVG(sales_revenue), 0),
		        COUNT(DISTINCT sku_id),
		        MIN(date),
		        MAX(date)
		 FROM sales_records
		 WHERE upload_id = $1`,
		uploadID,
	).Scan(
		&summary.TotalRecords,
		&summary.TotalQuantity,
		&summary.TotalRevenue,
		&summary.AverageQuantity,
		&summary.AverageRevenue,
		&summary.UniqueSKUs,
		&startDate,
		&endDate,
	)
	if err != nil {
		return domain.SalesSummary{}, fmt.Errorf("failed to summarize sales records: %w", err)
	}

	if startDate.Valid {
		t := startDate.Time
		summary.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		summary.EndDate = &t
	}

	return summary, nil
}

func (r *salesRecordRepository) DeleteByUpload(ctx context.Context, uploadID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales_records WHERE upload_id = $1`, uploadID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sales records: %w", err)
	}
	return tag.RowsAffected(), nil
}
