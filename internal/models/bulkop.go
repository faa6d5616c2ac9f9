package models

import (
	"time"
)

// BulkOperationType enumerates supported batch operation kinds.
type BulkOperationType string

const (
	BulkCreate BulkOperationType = "create"
	BulkUpdate BulkOperationType = "update"
	BulkCancel BulkOperationType = "cancel"
)

// BulkOperationStatus enumerates batch progress states.
type BulkOperationStatus string

const (
	BulkPending    BulkOperationStatus = "pending"
	BulkProcessing BulkOperationStatus = "processing"
	BulkCompleted  BulkOperationStatus = "completed"
	BulkPartial    BulkOperationStatus = "partial"
	BulkFailed     BulkOperationStatus = "failed"
)

// BulkRowError records why a single row of a batch was not applied.
type BulkRowError struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
}

// BulkJobOperation is the durable audit record for a batch submission. It is
// a progress/audit trail only and does not lock the jobs it describes.
// successful_jobs + failed_jobs never exceeds total_jobs, and the counts are
// frozen once completed_at is set.
type BulkJobOperation struct {
	ID             string              `json:"id"`
	EnterpriseID   string              `json:"enterprise_id"`
	OperationType  BulkOperationType   `json:"operation_type"`
	TotalJobs      int                 `json:"total_jobs"`
	SuccessfulJobs int                 `json:"successful_jobs"`
	FailedJobs     int                 `json:"failed_jobs"`
	Status         BulkOperationStatus `json:"status"`
	ErrorDetails   []BulkRowError      `json:"error_details"`
	CreatedBy      string              `json:"created_by"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}
