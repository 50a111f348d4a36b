package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skucast/skucast/internal/domain"
)

// UploadRepository persists upload lifecycle records. Partial updates
// touch only the named fields so status writes never clobber the
// detection payloads or the confirmed mapping.
type UploadRepository interface {
	Create(ctx context.Context, upload domain.Upload) (domain.Upload, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Upload, error)
	List(ctx context.Context, limit, offset int) ([]domain.Upload, error)
	SetDetection(ctx context.Context, id uuid.UUID, rowCount, columnCount int, schema domain.SchemaProfile, report domain.ValidationReport) error
	SetColumnMapping(ctx context.Context, id uuid.UUID, mapping map[string]string) error
	// ClaimProcessing conditionally transitions uploaded|error to
	// processing. It reports false when the upload was not in a
	// claimable state, closing the double-processing race.
	ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SalesRecordRepository persists cleaned rows. BulkInsert is
// all-or-nothing: a failure commits no rows and surfaces as one error.
// An empty skuID on ListByUpload means no SKU filter.
type SalesRecordRepository interface {
	BulkInsert(ctx context.Context, records []domain.SalesRecord) (int, error)
	ListByUpload(ctx context.Context, uploadID uuid.UUID, skuID string, limit, offset int) ([]domain.SalesRecord, error)
	SummaryByUpload(ctx context.Context, uploadID uuid.UUID) (domain.SalesSummary, error)
	DeleteByUpload(ctx context.Context, uploadID uuid.UUID) (int64, error)
}
