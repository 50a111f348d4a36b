package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file has an
	// unrecognized extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrDecodeFailed is returned when no usable encoding or delimiter
	// could produce a dataset from the raw bytes.
	ErrDecodeFailed = errors.New("could not decode file")

	// ErrUploadNotFound is returned for unknown upload ids.
	ErrUploadNotFound = errors.New("upload not found")

	// ErrAlreadyProcessed rejects a second processing run after an
	// upload reached the processed state. It is an idempotency signal,
	// not a data failure.
	ErrAlreadyProcessed = errors.New("upload already processed")

	// ErrProcessingInProgress rejects a run that raced another caller
	// to the processing claim on the same upload.
	ErrProcessingInProgress = errors.New("upload is being processed")
)

// ProcessingError wraps any failure during a pipeline run. The original
// message is also captured verbatim on the upload's error field.
type ProcessingError struct {
	UploadID uuid.UUID
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing upload %s: %v", e.UploadID, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
