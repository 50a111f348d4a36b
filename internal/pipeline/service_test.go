package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skucast/skucast/internal/domain"
)

type stubUploadRepo struct {
	uploads map[uuid.UUID]domain.Upload
}

func newStubUploadRepo() *stubUploadRepo {
	return &stubUploadRepo{uploads: make(map[uuid.UUID]domain.Upload)}
}

func (r *stubUploadRepo) Create(_ context.Context, upload domain.Upload) (domain.Upload, error) {
	r.uploads[upload.ID] = upload
	return upload, nil
}

func (r *stubUploadRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Upload, error) {
	upload, ok := r.uploads[id]
	if !ok {
		return domain.Upload{}, domain.ErrUploadNotFound
	}
	return upload, nil
}

func (r *stubUploadRepo) List(_ context.Context, limit, offset int) ([]domain.Upload, error) {
	out := make([]domain.Upload, 0, len(r.uploads))
	for _, upload := range r.uploads {
		out = append(out, upload)
	}
	return out, nil
}

func (r *stubUploadRepo) SetDetection(_ context.Context, id uuid.UUID, rowCount, columnCount int, schema domain.SchemaProfile, report domain.ValidationReport) error {
	upload, ok := r.uploads[id]
	if !ok {
		return domain.ErrUploadNotFound
	}
	upload.RowCount = rowCount
	upload.ColumnCount = columnCount
	upload.DetectedSchema = &schema
	upload.ValidationReport = &report
	r.uploads[id] = upload
	return nil
}

func (r *stubUploadRepo) SetColumnMapping(_ context.Context, id uuid.UUID, mapping map[string]string) error {
	upload, ok := r.uploads[id]
	if !ok {
		return domain.ErrUploadNotFound
	}
	upload.ColumnMapping = mapping
	r.uploads[id] = upload
	return nil
}

func (r *stubUploadRepo) ClaimProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	upload, ok := r.uploads[id]
	if !ok {
		return false, domain.ErrUploadNotFound
	}
	if upload.Status != domain.UploadStatusUploaded && upload.Status != domain.UploadStatusError {
		return false, nil
	}
	upload.Status = domain.UploadStatusProcessing
	upload.ErrorMessage = ""
	r.uploads[id] = upload
	return true, nil
}

func (r *stubUploadRepo) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	upload, ok := r.uploads[id]
	if !ok {
		return domain.ErrUploadNotFound
	}
	upload.Status = domain.UploadStatusProcessed
	upload.ProcessedAt = &processedAt
	r.uploads[id] = upload
	return nil
}

func (r *stubUploadRepo) MarkError(_ context.Context, id uuid.UUID, message string) error {
	upload, ok := r.uploads[id]
	if !ok {
		return domain.ErrUploadNotFound
	}
	upload.Status = domain.UploadStatusError
	upload.ErrorMessage = message
	r.uploads[id] = upload
	return nil
}

func (r *stubUploadRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.uploads[id]; !ok {
		return domain.ErrUploadNotFound
	}
	delete(r.uploads, id)
	return nil
}

type stubRecordRepo struct {
	records   []domain.SalesRecord
	insertErr error
}

func (r *stubRecordRepo) BulkInsert(_ context.Context, records []domain.SalesRecord) (int, error) {
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.records = append(r.records, records...)
	return len(records), nil
}

func (r *stubRecordRepo) ListByUpload(_ context.Context, uploadID uuid.UUID, skuID string, limit, offset int) ([]domain.SalesRecord, error) {
	var out []domain.SalesRecord
	for _, rec := range r.records {
		if rec.UploadID != uploadID {
			continue
		}
		if skuID != "" && rec.SKUID != skuID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *stubRecordRepo) SummaryByUpload(_ context.Context, uploadID uuid.UUID) (domain.SalesSummary, error) {
	var summary domain.SalesSummary
	skus := map[string]bool{}
	for _, rec := range r.records {
		if rec.UploadID != uploadID {
			continue
		}
		summary.TotalRecords++
		summary.TotalQuantity += rec.SalesQuantity
		summary.TotalRevenue += rec.SalesRevenue
		skus[rec.SKUID] = true
		d := rec.Date
		if summary.StartDate == nil || d.Before(*summary.StartDate) {
			start := d
			summary.StartDate = &start
		}
		if summary.EndDate == nil || d.After(*summary.EndDate) {
			end := d
			summary.EndDate = &end
		}
	}
	if summary.TotalRecords > 0 {
		summary.AverageQuantity = summary.TotalQuantity / float64(summary.TotalRecords)
		summary.AverageRevenue = summary.TotalRevenue / float64(summary.TotalRecords)
	}
	summary.UniqueSKUs = int64(len(skus))
	return summary, nil
}

func (r *stubRecordRepo) DeleteByUpload(_ context.Context, uploadID uuid.UUID) (int64, error) {
	var kept []domain.SalesRecord
	var removed int64
	for _, rec := range r.records {
		if rec.UploadID == uploadID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed, nil
}

type memoryStore struct {
	blobs map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string][]byte)}
}

func (s *memoryStore) Save(_ context.Context, key string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.blobs[key] = data
	return nil
}

func (s *memoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("blob not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	delete(s.blobs, key)
	return nil
}

func newTestService() (*Service, *stubUploadRepo, *stubRecordRepo, *memoryStore) {
	uploads := newStubUploadRepo()
	records := &stubRecordRepo{}
	store := newMemoryStore()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(uploads, records, store, log), uploads, records, store
}

const salesCSV = "Order Date,SKU,Qty\n2024-01-01,A-1,5\n2024-02-15,A-2,3\n"

var salesMapping = map[string]string{
	"order_date": domain.FieldDate,
	"sku":        domain.FieldSKUID,
	"qty":        domain.FieldSalesQuantity,
}

func uploadSalesCSV(t *testing.T, svc *Service) UploadResult {
	t.Helper()
	result, err := svc.Upload(context.Background(), UploadRequest{
		FileName: "sales.csv",
		Data:     strings.NewReader(salesCSV),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return result
}

func TestUploadRunsDetection(t *testing.T) {
	svc, uploads, _, store := newTestService()

	result := uploadSalesCSV(t, svc)

	if result.Status != domain.UploadStatusUploaded {
		t.Fatalf("expected uploaded status, got %s", result.Status)
	}
	if result.RowCount != 2 || result.ColumnCount != 3 {
		t.Fatalf("expected 2x3, got %dx%d", result.RowCount, result.ColumnCount)
	}
	if _, ok := result.Schema.Column("order_date"); !ok {
		t.Fatalf("expected normalized order_date column, got %+v", result.Schema.Columns)
	}
	if result.Schema.SuggestedDateColumn != "order_date" {
		t.Fatalf("expected order_date as primary date column, got %q", result.Schema.SuggestedDateColumn)
	}
	if len(result.Preview) != 2 {
		t.Fatalf("expected 2 preview rows, got %d", len(result.Preview))
	}

	stored, err := uploads.GetByID(context.Background(), result.UploadID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.DetectedSchema == nil || stored.ValidationReport == nil {
		t.Fatal("expected detection payloads on the stored upload")
	}
	if _, ok := store.blobs[stored.StorageKey]; !ok {
		t.Fatalf("expected stored blob under %q", stored.StorageKey)
	}
}

func TestUploadUnsupportedFormatCleansUpBlob(t *testing.T) {
	svc, uploads, _, store := newTestService()

	_, err := svc.Upload(context.Background(), UploadRequest{
		FileName: "notes.pdf",
		Data:     strings.NewReader("not tabular"),
	})
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if len(store.blobs) != 0 {
		t.Fatalf("expected blob cleanup, got %d blobs", len(store.blobs))
	}
	if len(uploads.uploads) != 0 {
		t.Fatalf("expected no upload rows, got %d", len(uploads.uploads))
	}
}

func TestProcessMaterializesRecords(t *testing.T) {
	svc, uploads, records, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	stats, err := svc.Process(context.Background(), result.UploadID, salesMapping)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if stats.RowsProcessed != 2 || stats.RowsInserted != 2 {
		t.Fatalf("expected 2/2 stats, got %+v", stats)
	}

	got, _ := records.ListByUpload(context.Background(), result.UploadID, "", 100, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	first := got[0]
	if first.SKUID != "A-1" {
		t.Fatalf("expected SKU A-1, got %q", first.SKUID)
	}
	if first.SalesQuantity != 5 {
		t.Fatalf("expected quantity 5, got %v", first.SalesQuantity)
	}
	wantDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(wantDate) {
		t.Fatalf("expected date %v, got %v", wantDate, first.Date)
	}
	// Columns the file never carried fall back to schema defaults.
	if first.UnitPrice != 0 || first.SalesRevenue != 0 || first.StockLevel != 0 {
		t.Fatalf("expected zero defaults, got %+v", first)
	}
	if first.Category != "" {
		t.Fatalf("expected empty category, got %q", first.Category)
	}

	upload, _ := uploads.GetByID(context.Background(), result.UploadID)
	if upload.Status != domain.UploadStatusProcessed {
		t.Fatalf("expected processed status, got %s", upload.Status)
	}
	if upload.ProcessedAt == nil {
		t.Fatal("expected a processed timestamp")
	}
}

func TestProcessUsesStoredMapping(t *testing.T) {
	svc, _, records, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	if err := svc.ConfirmMapping(context.Background(), result.UploadID, salesMapping); err != nil {
		t.Fatalf("ConfirmMapping: %v", err)
	}

	if _, err := svc.Process(context.Background(), result.UploadID, nil); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := records.ListByUpload(context.Background(), result.UploadID, "", 100, 0)
	if len(got) != 2 || got[0].SKUID != "A-1" {
		t.Fatalf("expected mapped records, got %+v", got)
	}
}

func TestProcessRejectsSecondRun(t *testing.T) {
	svc, _, records, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	if _, err := svc.Process(context.Background(), result.UploadID, salesMapping); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	_, err := svc.Process(context.Background(), result.UploadID, salesMapping)
	if !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if len(records.records) != 2 {
		t.Fatalf("expected records unchanged, got %d", len(records.records))
	}
}

func TestProcessWhileClaimed(t *testing.T) {
	svc, uploads, _, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	// Another worker holds the claim.
	if claimed, _ := uploads.ClaimProcessing(context.Background(), result.UploadID); !claimed {
		t.Fatal("setup claim failed")
	}

	_, err := svc.Process(context.Background(), result.UploadID, salesMapping)
	if !errors.Is(err, domain.ErrProcessingInProgress) {
		t.Fatalf("expected ErrProcessingInProgress, got %v", err)
	}
}

func TestProcessFailureMarksUploadError(t *testing.T) {
	svc, uploads, records, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	records.insertErr = errors.New("insert exploded")

	_, err := svc.Process(context.Background(), result.UploadID, salesMapping)
	var procErr *domain.ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
	if procErr.UploadID != result.UploadID {
		t.Fatalf("expected upload id %s, got %s", result.UploadID, procErr.UploadID)
	}

	upload, _ := uploads.GetByID(context.Background(), result.UploadID)
	if upload.Status != domain.UploadStatusError {
		t.Fatalf("expected error status, got %s", upload.Status)
	}
	if !strings.Contains(upload.ErrorMessage, "insert exploded") {
		t.Fatalf("expected verbatim cause, got %q", upload.ErrorMessage)
	}

	// The error state is claimable, so a retry succeeds.
	records.insertErr = nil
	stats, err := svc.Process(context.Background(), result.UploadID, salesMapping)
	if err != nil {
		t.Fatalf("retry Process: %v", err)
	}
	if stats.RowsInserted != 2 {
		t.Fatalf("expected 2 inserted on retry, got %d", stats.RowsInserted)
	}
	upload, _ = uploads.GetByID(context.Background(), result.UploadID)
	if upload.ErrorMessage != "" {
		t.Fatalf("expected the error message cleared, got %q", upload.ErrorMessage)
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	svc, uploads, records, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	preview, err := svc.Preview(context.Background(), result.UploadID, salesMapping, 0)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.TotalRows != 2 || len(preview.Preview) != 2 {
		t.Fatalf("expected 2 preview rows, got %+v", preview)
	}

	// Filled defaults show up in the preview columns.
	seen := map[string]bool{}
	for _, name := range preview.Columns {
		seen[name] = true
	}
	for _, field := range domain.RequiredFields {
		if !seen[field] {
			t.Fatalf("expected column %q in preview, got %v", field, preview.Columns)
		}
	}

	upload, _ := uploads.GetByID(context.Background(), result.UploadID)
	if upload.Status != domain.UploadStatusUploaded {
		t.Fatalf("preview mutated the upload: %s", upload.Status)
	}
	if len(records.records) != 0 {
		t.Fatalf("preview inserted records: %d", len(records.records))
	}

	// A second preview yields the same shape.
	again, err := svc.Preview(context.Background(), result.UploadID, salesMapping, 0)
	if err != nil {
		t.Fatalf("second Preview: %v", err)
	}
	if again.TotalRows != preview.TotalRows || len(again.Columns) != len(preview.Columns) {
		t.Fatalf("preview not repeatable: %+v vs %+v", again, preview)
	}
}

func TestPreviewUnknownUpload(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Preview(context.Background(), uuid.New(), nil, 0)
	if !errors.Is(err, domain.ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound, got %v", err)
	}
}

func TestDeleteUploadRemovesEverything(t *testing.T) {
	svc, uploads, records, store := newTestService()
	result := uploadSalesCSV(t, svc)

	if _, err := svc.Process(context.Background(), result.UploadID, salesMapping); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if err := svc.DeleteUpload(context.Background(), result.UploadID); err != nil {
		t.Fatalf("DeleteUpload: %v", err)
	}

	if len(uploads.uploads) != 0 {
		t.Fatalf("expected upload row removed, got %d", len(uploads.uploads))
	}
	if len(records.records) != 0 {
		t.Fatalf("expected records removed, got %d", len(records.records))
	}
	if len(store.blobs) != 0 {
		t.Fatalf("expected blob removed, got %d", len(store.blobs))
	}
}

func TestListRecordsFiltersBySKU(t *testing.T) {
	svc, _, _, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	if _, err := svc.Process(context.Background(), result.UploadID, salesMapping); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, err := svc.ListRecords(context.Background(), result.UploadID, "A-1", 100, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(got) != 1 || got[0].SKUID != "A-1" {
		t.Fatalf("expected one A-1 record, got %+v", got)
	}

	all, err := svc.ListRecords(context.Background(), result.UploadID, "", 100, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 unfiltered records, got %d", len(all))
	}
}

func TestSummaryAggregatesRecords(t *testing.T) {
	svc, _, _, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	if _, err := svc.Process(context.Background(), result.UploadID, salesMapping); err != nil {
		t.Fatalf("Process: %v", err)
	}

	summary, err := svc.Summary(context.Background(), result.UploadID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalRecords != 2 {
		t.Fatalf("expected 2 records, got %d", summary.TotalRecords)
	}
	if summary.TotalQuantity != 8 || summary.AverageQuantity != 4 {
		t.Fatalf("unexpected quantity stats: %+v", summary)
	}
	if summary.UniqueSKUs != 2 {
		t.Fatalf("expected 2 unique skus, got %d", summary.UniqueSKUs)
	}
	if summary.StartDate == nil || summary.EndDate == nil {
		t.Fatalf("expected a date range, got %+v", summary)
	}
	wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	if !summary.StartDate.Equal(wantStart) || !summary.EndDate.Equal(wantEnd) {
		t.Fatalf("unexpected date range: %v .. %v", summary.StartDate, summary.EndDate)
	}
}

func TestSummaryBeforeProcessing(t *testing.T) {
	svc, _, _, _ := newTestService()
	result := uploadSalesCSV(t, svc)

	summary, err := svc.Summary(context.Background(), result.UploadID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalRecords != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
	if summary.StartDate != nil || summary.EndDate != nil {
		t.Fatalf("expected no date range, got %+v", summary)
	}
}

func TestSummaryUnknownUpload(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Summary(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound, got %v", err)
	}
}

func TestListRecordsUnknownUpload(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.ListRecords(context.Background(), uuid.New(), "", 100, 0)
	if !errors.Is(err, domain.ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound, got %v", err)
	}
}
