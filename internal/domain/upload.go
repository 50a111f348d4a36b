package domain

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus tracks an upload through its processing lifecycle.
type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "uploaded"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusProcessed  UploadStatus = "processed"
	UploadStatusError      UploadStatus = "error"
)

// Upload stores metadata about one ingested file.
type Upload struct {
	ID               uuid.UUID         `json:"id"`
	Filename         string            `json:"filename"`
	StorageKey       string            `json:"storage_key"`
	FileSizeBytes    int64             `json:"file_size_bytes"`
	RowCount         int               `json:"row_count"`
	ColumnCount      int               `json:"column_count"`
	DetectedSchema   *SchemaProfile    `json:"detected_schema,omitempty"`
	ValidationReport *ValidationReport `json:"validation_report,omitempty"`
	ColumnMapping    map[string]string `json:"column_mapping,omitempty"`
	Status           UploadStatus      `json:"status"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	UploadedAt       time.Time         `json:"uploaded_at"`
	ProcessedAt      *time.Time        `json:"processed_at,omitempty"`
}

// NewUpload builds an upload record in its initial state.
func NewUpload(filename, storageKey string, sizeBytes int64) Upload {
	return Upload{
		ID:            uuid.New(),
		Filename:      filename,
		StorageKey:    storageKey,
		FileSizeBytes: sizeBytes,
		Status:        UploadStatusUploaded,
		UploadedAt:    time.Now().UTC(),
	}
}

// ProcessingStats summarizes a completed pipeline run.
type ProcessingStats struct {
	RowsProcessed int `json:"rows_processed"`
	RowsInserted  int `json:"rows_inserted"`
}
