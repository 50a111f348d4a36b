// Package pipeline orchestrates one processing run per uploaded file:
// detection at upload time, read-only previews, and the committed run
// that materializes sales records.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skucast/skucast/internal/domain"
	"github.com/skucast/skucast/internal/repository"
	"github.com/skucast/skucast/internal/schema"
	"github.com/skucast/skucast/internal/storage"
	"github.com/skucast/skucast/internal/tabular"
	"github.com/skucast/skucast/internal/validation"
)

const (
	detectPreviewRows  = 10
	defaultPreviewRows = 20
)

// Service runs the ingestion-to-clean-record pipeline.
type Service struct {
	uploads repository.UploadRepository
	records repository.SalesRecordRepository
	store   storage.ByteStore
	log     *logrus.Logger
	now     func() time.Time
}

// NewService wires the pipeline against its collaborators.
func NewService(uploads repository.UploadRepository, records repository.SalesRecordRepository, store storage.ByteStore, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		uploads: uploads,
		records: records,
		store:   store,
		log:     log,
		now:     time.Now,
	}
}

// UploadRequest describes a new file submission.
type UploadRequest struct {
	FileName string
	Data     io.Reader
}

// UploadResult is the detect-phase payload returned to the caller.
type UploadResult struct {
	UploadID    uuid.UUID               `json:"upload_id"`
	Filename    string                  `json:"filename"`
	Status      domain.UploadStatus     `json:"status"`
	RowCount    int                     `json:"row_count"`
	ColumnCount int                     `json:"column_count"`
	Schema      domain.SchemaProfile    `json:"schema"`
	Validation  domain.ValidationReport `json:"validation"`
	Preview     []map[string]any        `json:"preview"`
}

// PreviewResult shows the would-be outcome of a run without committing.
type PreviewResult struct {
	UploadID  uuid.UUID        `json:"upload_id"`
	Columns   []string         `json:"columns"`
	TotalRows int              `json:"total_rows"`
	Preview   []map[string]any `json:"preview"`
}

// Upload stores the raw bytes and runs the detect phase: read,
// normalize, convert, profile, validate, preview. Validation findings
// never block detection; only read failures do.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if req.FileName == "" {
		return UploadResult{}, errors.New("file name is required")
	}
	if req.Data == nil {
		return UploadResult{}, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return UploadResult{}, errors.New("file is empty")
	}

	upload := domain.NewUpload(req.FileName, "", int64(len(payload)))
	upload.StorageKey = upload.ID.String() + filepath.Ext(req.FileName)

	if err := s.store.Save(ctx, upload.StorageKey, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return UploadResult{}, fmt.Errorf("failed to store upload: %w", err)
	}

	ds, profile, report, err := s.detect(req.FileName, payload)
	if err != nil {
		// Detection failed outright; the blob is useless, clean it up.
		_ = s.store.Delete(ctx, upload.StorageKey)
		return UploadResult{}, err
	}

	upload.RowCount = profile.RowCount
	upload.ColumnCount = profile.ColumnCount

	if _, err := s.uploads.Create(ctx, upload); err != nil {
		return UploadResult{}, err
	}
	if err := s.uploads.SetDetection(ctx, upload.ID, profile.RowCount, profile.ColumnCount, profile, report); err != nil {
		return UploadResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"upload_id": upload.ID,
		"filename":  req.FileName,
		"rows":      profile.RowCount,
		"columns":   profile.ColumnCount,
		"is_valid":  report.IsValid,
	}).Info("upload detected")

	return UploadResult{
		UploadID:    upload.ID,
		Filename:    req.FileName,
		Status:      upload.Status,
		RowCount:    profile.RowCount,
		ColumnCount: profile.ColumnCount,
		Schema:      profile,
		Validation:  report,
		Preview:     previewRows(ds, detectPreviewRows),
	}, nil
}

// detect runs the read/clean/profile/validate sequence shared by the
// upload intake. Profiling and validation are pure; they cannot fail on
// a dataset the reader accepted.
func (s *Service) detect(fileName string, payload []byte) (tabular.Dataset, domain.SchemaProfile, domain.ValidationReport, error) {
	ds, err := tabular.Read(fileName, payload)
	if err != nil {
		return tabular.Dataset{}, domain.SchemaProfile{}, domain.ValidationReport{}, err
	}

	ds = tabular.NormalizeColumns(ds)
	ds = tabular.ConvertTypes(ds)

	profile := schema.Profile(ds)
	report := validation.Validate(ds, profile)
	return ds, profile, report, nil
}

// ConfirmMapping stores the caller-confirmed column mapping.
func (s *Service) ConfirmMapping(ctx context.Context, id uuid.UUID, mapping map[string]string) error {
	return s.uploads.SetColumnMapping(ctx, id, mapping)
}

// GetUpload returns the upload record.
func (s *Service) GetUpload(ctx context.Context, id uuid.UUID) (domain.Upload, error) {
	return s.uploads.GetByID(ctx, id)
}

// ListUploads pages through upload records, newest first.
func (s *Service) ListUploads(ctx context.Context, limit, offset int) ([]domain.Upload, error) {
	return s.uploads.List(ctx, limit, offset)
}

// ListRecords pages through an upload's materialized sales records,
// optionally narrowed to one SKU.
func (s *Service) ListRecords(ctx context.Context, id uuid.UUID, skuID string, limit, offset int) ([]domain.SalesRecord, error) {
	if _, err := s.uploads.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.records.ListByUpload(ctx, id, skuID, limit, offset)
}

// Summary aggregates an upload's materialized records: totals,
// averages, distinct SKUs, and the covered date range.
func (s *Service) Summary(ctx context.Context, id uuid.UUID) (domain.SalesSummary, error) {
	if _, err := s.uploads.GetByID(ctx, id); err != nil {
		return domain.SalesSummary{}, err
	}
	return s.records.SummaryByUpload(ctx, id)
}

// DeleteUpload removes the upload's sales records, its stored blob, and
// the upload row itself.
func (s *Service) DeleteUpload(ctx context.Context, id uuid.UUID) error {
	upload, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.records.DeleteByUpload(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, upload.StorageKey); err != nil {
		return err
	}
	return s.uploads.Delete(ctx, id)
}

// Preview runs the identical read/clean/map/fill sequence as Process
// but inserts nothing and never mutates the upload.
func (s *Service) Preview(ctx context.Context, id uuid.UUID, mapping map[string]string, limit int) (PreviewResult, error) {
	upload, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return PreviewResult{}, err
	}

	if mapping == nil {
		mapping = upload.ColumnMapping
	}

	ds, err := s.loadCleaned(ctx, upload, mapping)
	if err != nil {
		return PreviewResult{}, err
	}

	if limit <= 0 {
		limit = defaultPreviewRows
	}

	return PreviewResult{
		UploadID:  upload.ID,
		Columns:   ds.ColumnNames(),
		TotalRows: ds.RowCount(),
		Preview:   previewRows(ds, limit),
	}, nil
}

// Process runs the full pipeline for one upload: claim the run, read
// the raw bytes, clean, map, fill, and bulk-insert sales records. Any
// failure lands on the upload's error field and is re-raised.
func (s *Service) Process(ctx context.Context, id uuid.UUID, mapping map[string]string) (domain.ProcessingStats, error) {
	stats := domain.ProcessingStats{}

	upload, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return stats, err
	}
	if upload.Status == domain.UploadStatusProcessed {
		return stats, fmt.Errorf("%w: %s", domain.ErrAlreadyProcessed, id)
	}

	claimed, err := s.uploads.ClaimProcessing(ctx, id)
	if err != nil {
		return stats, err
	}
	if !claimed {
		// Lost the race; report what actually holds the claim.
		current, err := s.uploads.GetByID(ctx, id)
		if err != nil {
			return stats, err
		}
		if current.Status == domain.UploadStatusProcessed {
			return stats, fmt.Errorf("%w: %s", domain.ErrAlreadyProcessed, id)
		}
		return stats, fmt.Errorf("%w: %s", domain.ErrProcessingInProgress, id)
	}

	if mapping == nil {
		mapping = upload.ColumnMapping
	}

	stats, err = s.run(ctx, upload, mapping)
	if err != nil {
		if markErr := s.uploads.MarkError(ctx, id, err.Error()); markErr != nil {
			s.log.WithError(markErr).WithField("upload_id", id).Error("failed to record processing error")
		}
		return stats, &domain.ProcessingError{UploadID: id, Err: err}
	}

	if err := s.uploads.MarkProcessed(ctx, id, s.now().UTC()); err != nil {
		return stats, err
	}

	s.log.WithFields(logrus.Fields{
		"upload_id":      id,
		"rows_processed": stats.RowsProcessed,
		"rows_inserted":  stats.RowsInserted,
	}).Info("upload processed")

	return stats, nil
}

func (s *Service) run(ctx context.Context, upload domain.Upload, mapping map[string]string) (domain.ProcessingStats, error) {
	stats := domain.ProcessingStats{}

	ds, err := s.loadCleaned(ctx, upload, mapping)
	if err != nil {
		return stats, err
	}
	stats.RowsProcessed = ds.RowCount()

	records := s.materialize(ds, upload.ID)

	inserted, err := s.records.BulkInsert(ctx, records)
	if err != nil {
		return stats, err
	}
	stats.RowsInserted = inserted

	return stats, nil
}

// loadCleaned reads the stored bytes and applies the full cleaning
// sequence: normalize, convert, map, fill defaults.
func (s *Service) loadCleaned(ctx context.Context, upload domain.Upload, mapping map[string]string) (tabular.Dataset, error) {
	rc, err := s.store.Open(ctx, upload.StorageKey)
	if err != nil {
		return tabular.Dataset{}, err
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return tabular.Dataset{}, fmt.Errorf("failed to read stored upload: %w", err)
	}

	ds, err := tabular.Read(upload.Filename, payload)
	if err != nil {
		return tabular.Dataset{}, err
	}

	ds = tabular.NormalizeColumns(ds)
	ds = tabular.ConvertTypes(ds)
	ds = tabular.ApplyMapping(ds, mapping)
	ds = tabular.FillDefaults(ds, s.now())
	return ds, nil
}

// materialize builds one sales record per row. Cells that are still
// null after cleaning fall back to the target schema defaults.
func (s *Service) materialize(ds tabular.Dataset, uploadID uuid.UUID) []domain.SalesRecord {
	now := s.now().UTC()
	defaultDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	records := make([]domain.SalesRecord, 0, ds.RowCount())
	for i := 0; i < ds.RowCount(); i++ {
		rec := domain.SalesRecord{
			ID:        uuid.New(),
			UploadID:  uploadID,
			Date:      defaultDate,
			SKUID:     domain.UnknownSKU,
			CreatedAt: now,
		}

		if v, ok := cell(ds, domain.FieldDate, i); ok {
			if ts, ok := tabular.AsTime(v); ok {
				rec.Date = ts
			}
		}
		if v, ok := cell(ds, domain.FieldSKUID, i); ok && !v.IsNull() {
			rec.SKUID = v.Display()
		}
		if v, ok := cell(ds, domain.FieldSalesQuantity, i); ok {
			if f, ok := tabular.AsNumber(v); ok {
				rec.SalesQuantity = f
			}
		}
		if v, ok := cell(ds, domain.FieldUnitPrice, i); ok {
			if f, ok := tabular.AsNumber(v); ok {
				rec.UnitPrice = f
			}
		}
		if v, ok := cell(ds, domain.FieldSalesRevenue, i); ok {
			if f, ok := tabular.AsNumber(v); ok {
				rec.SalesRevenue = f
			}
		}
		if v, ok := cell(ds, domain.FieldStockLevel, i); ok {
			if f, ok := tabular.AsNumber(v); ok {
				rec.StockLevel = int64(f)
			}
		}
		if v, ok := cell(ds, domain.FieldCategory, i); ok && !v.IsNull() {
			rec.Category = v.Display()
		}

		records = append(records, rec)
	}
	return records
}

func cell(ds tabular.Dataset, column string, row int) (tabular.Value, bool) {
	col, ok := ds.Column(column)
	if !ok {
		return tabular.Value{}, false
	}
	return col.Values[row], true
}

// previewRows renders up to n rows as JSON-friendly maps; nulls become
// nil, timestamps ISO strings.
func previewRows(ds tabular.Dataset, n int) []map[string]any {
	head := ds.Head(n)
	names := head.ColumnNames()
	rows := make([]map[string]any, 0, head.RowCount())
	for i := 0; i < head.RowCount(); i++ {
		row := make(map[string]any, head.ColumnCount())
		for j, v := range head.Row(i) {
			switch v.Kind {
			case tabular.KindNull:
				row[names[j]] = nil
			case tabular.KindNumber:
				row[names[j]] = v.Num
			case tabular.KindTime:
				row[names[j]] = v.Time.Format(time.RFC3339)
			case tabular.KindBool:
				row[names[j]] = v.Bool
			default:
				row[names[j]] = v.Str
			}
		}
		rows = append(rows, row)
	}
	return rows
}
