package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skucast/skucast/internal/domain"
)

type uploadRepository struct {
	pool *pgxpool.Pool
}

// NewUploadRepository wires an upload repository backed by pgxpool.
func NewUploadRepository(pool *pgxpool.Pool) UploadRepository {
	return &uploadRepository{pool: pool}
}

func (r *uploadRepository) Create(ctx context.Context, upload domain.Upload) (domain.Upload, error) {
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO uploads (id, filename, storage_key, file_size_bytes, row_count, column_count, status, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		upload.ID,
		upload.Filename,
		upload.StorageKey,
		upload.FileSizeBytes,
		upload.RowCount,
		upload.ColumnCount,
		string(upload.Status),
		upload.UploadedAt,
	)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("failed to create upload: %w", err)
	}
	return upload, nil
}

func (r *uploadRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Upload, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, filename, storage_key, file_size_bytes, row_count, column_count,
		        detected_schema, validation_report, column_mapping,
		        status, error_message, uploaded_at, processed_at
		 FROM uploads WHERE id = $1`,
		id,
	)
	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Upload{}, fmt.Errorf("%w: %s", domain.ErrUploadNotFound, id)
		}
		return domain.Upload{}, fmt.Errorf("failed to get upload: %w", err)
	}
	return upload, nil
}

func (r *uploadRepository) List(ctx context.Context, limit, offset int) ([]domain.Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, filename, storage_key, file_size_bytes, row_count, column_count,
		        detected_schema, validation_report, column_mapping,
		        status, error_message, uploaded_at, processed_at
		 FROM uploads
		 ORDER BY uploaded_at DESC
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	uploads := []domain.Upload{}
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}

func (r *uploadRepository) SetDetection(ctx context.Context, id uuid.UUID, rowCount, columnCount int, schema domain.SchemaProfile, report domain.ValidationReport) error {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema profile: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal validation report: %w", err)
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE uploads
		 SET row_count = $2, column_count = $3, detected_schema = $4, validation_report = $5
		 WHERE id = $1`,
		id, rowCount, columnCount, schemaJSON, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store detection results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUploadNotFound, id)
	}
	return nil
}

func (r *uploadRepository) SetColumnMapping(ctx context.Context, id uuid.UUID, mapping map[string]string) error {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal column mapping: %w", err)
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE uploads SET column_mapping = $2 WHERE id = $1`,
		id, mappingJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store column mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUploadNotFound, id)
	}
	return nil
}

func (r *uploadRepository) ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE uploads
		 SET status = $2, error_message = NULL
		 WHERE id = $1 AND status = ANY($3)`,
		id,
		string(domain.UploadStatusProcessing),
		[]string{string(domain.UploadStatusUploaded), string(domain.UploadStatusError)},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim upload for processing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *uploadRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE uploads SET status = $2, processed_at = $3, error_message = NULL WHERE id = $1`,
		id, string(domain.UploadStatusProcessed), processedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark upload processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUploadNotFound, id)
	}
	return nil
}

func (r *uploadRepository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE uploads SET status = $2, error_message = $3 WHERE id = $1`,
		id, string(domain.UploadStatusError), message,
	)
	if err != nil {
		return fmt.Errorf("failed to mark upload errored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUploadNotFound, id)
	}
	return nil
}

func (r *uploadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUploadNotFound, id)
	}
	return nil
}

func scanUpload(row pgx.Row) (domain.Upload, error) {
	var (
		upload       domain.Upload
		status       string
		schemaJSON   []byte
		reportJSON   []byte
		mappingJSON  []byte
		errorMessage pgtype.Text
		processedAt  pgtype.Timestamptz
	)

	if err := row.Scan(
		&upload.ID,
		&upload.Filename,
		&upload.StorageKey,
		&upload.FileSizeBytes,
		&upload.RowCount,
		&upload.ColumnCount,
		&schemaJSON,
		&reportJSON,
		&mappingJSON,
		&status,
		&errorMessage,
		&upload.UploadedAt,
		&processedAt,
	); err != nil {
		return domain.Upload{}, err
	}

	upload.Status = domain.UploadStatus(status)
	if errorMessage.Valid {
		upload.ErrorMessage = errorMessage.String
	}
	if processedAt.Valid {
		t := processedAt.Time
		upload.ProcessedAt = &t
	}

	if len(schemaJSON) > 0 {
		var schema domain.SchemaProfile
		if err := json.Unmarshal(schemaJSON, &schema); err != nil {
			return domain.Upload{}, fmt.Errorf("failed to unmarshal schema profile: %w", err)
		}
		upload.DetectedSchema = &schema
	}
	if len(reportJSON) > 0 {
		var report domain.ValidationReport
		if err := json.Unmarshal(reportJSON, &report); err != nil {
			return domain.Upload{}, fmt.Errorf("failed to unmarshal validation report: %w", err)
		}
		upload.ValidationReport = &report
	}
	if len(mappingJSON) > 0 {
		var mapping map[string]string
		if err := json.Unmarshal(mappingJSON, &mapping); err != nil {
			return domain.Upload{}, fmt.Errorf("failed to unmarshal column mapping: %w", err)
		}
		upload.ColumnMapping = mapping
	}

	return upload, nil
}
