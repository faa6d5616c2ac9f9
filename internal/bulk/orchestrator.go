// Package bulk orchestrates batch job submissions for enterprise posters.
// Batches are best-effort: each row is attempted independently, and a row's
// failure never aborts the rest. The BulkJobOperation record is the durable
// audit trail callers poll for progress and per-row failure reasons.
package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace-engine/internal/apperr"
	"marketplace-engine/internal/models"
	"marketplace-engine/internal/telemetry"
)

// Store is the persistence contract for bulk operations and the jobs they
// create.
type Store interface {
	CreateBulkOperation(ctx context.Context, op models.BulkJobOperation) error
	RecordBulkSuccess(ctx context.Context, id string) error
	RecordBulkFailure(ctx context.Context, id string, rowErr models.BulkRowError) error
	FinishBulkOperation(ctx context.Context, id string, status models.BulkOperationStatus, now time.Time) error
	GetBulkOperation(ctx context.Context, id string) (models.BulkJobOperation, error)
	CreateJob(ctx context.Context, posterID string, spec models.JobSpec) (models.Job, error)
}

// Canceller cancels a single job under the lifecycle guards.
type Canceller interface {
	Cancel(ctx context.Context, posterID, jobID string) error
}

// Orchestrator processes batches row by row with partial-failure tracking.
type Orchestrator struct {
	store     Store
	canceller Canceller
	maxRows   int
	log       *logrus.Logger
}

// New constructs an orchestrator. maxRows caps a single batch; zero means
// the default of 500.
func New(st Store, canceller Canceller, maxRows int, log *logrus.Logger) *Orchestrator {
	if maxRows <= 0 {
		maxRows = 500
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{store: st, canceller: canceller, maxRows: maxRows, log: log}
}

// Result pairs the finished operation record with the jobs that were created.
type Result struct {
	Operation models.BulkJobOperation `json:"operation"`
	Jobs      []models.Job            `json:"jobs"`
}

// SubmitCreate creates one job per spec, scoped to the enterprise poster.
// There is no deduplication: resubmitting the same specs creates a new
// operation and new jobs, so callers must not double-submit. Only a failure
// to create the operation record itself is a top-level error; row failures
// are accumulated in the record.
func (o *Orchestrator) SubmitCreate(ctx context.Context, enterpriseID string, specs []models.JobSpec) (Result, error) {
	op, err := o.begin(ctx, enterpriseID, models.BulkCreate, len(specs))
	if err != nil {
		return Result{}, err
	}
	telemetry.BulkInFlight.Inc()
	defer telemetry.BulkInFlight.Dec()

	jobs := make([]models.Job, 0, len(specs))
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			o.recordFailure(ctx, &op, i, err)
			continue
		}
		job, err := o.store.CreateJob(ctx, enterpriseID, specs[i])
		if err != nil {
			o.recordFailure(ctx, &op, i, err)
			continue
		}
		jobs = append(jobs, job)
		o.recordSuccess(ctx, &op)
		telemetry.JobsCreated.Inc()
	}

	o.finish(ctx, &op)
	return Result{Operation: op, Jobs: jobs}, nil
}

// SubmitCancel cancels one job per id under the usual lifecycle guards, with
// the same per-row accounting as a create batch.
func (o *Orchestrator) SubmitCancel(ctx context.Context, enterpriseID string, jobIDs []string) (models.BulkJobOperation, error) {
	op, err := o.begin(ctx, enterpriseID, models.BulkCancel, len(jobIDs))
	if err != nil {
		return models.BulkJobOperation{}, err
	}
	telemetry.BulkInFlight.Inc()
	defer telemetry.BulkInFlight.Dec()

	for i, jobID := range jobIDs {
		if err := o.canceller.Cancel(ctx, enterpriseID, jobID); err != nil {
			o.recordFailure(ctx, &op, i, err)
			continue
		}
		o.recordSuccess(ctx, &op)
	}

	o.finish(ctx, &op)
	return op, nil
}

// Get returns the operation record for progress polling.
func (o *Orchestrator) Get(ctx context.Context, id string) (models.BulkJobOperation, error) {
	return o.store.GetBulkOperation(ctx, id)
}

func (o *Orchestrator) begin(ctx context.Context, enterpriseID string, opType models.BulkOperationType, total int) (models.BulkJobOperation, error) {
	if total == 0 {
		return models.BulkJobOperation{}, apperr.Validation("batch must contain at least one row")
	}
	if total > o.maxRows {
		return models.BulkJobOperation{}, apperr.Newf(apperr.CodeValidation, "batch exceeds the %d row limit", o.maxRows)
	}

	op := models.BulkJobOperation{
		ID:            uuid.New().String(),
		EnterpriseID:  enterpriseID,
		OperationType: opType,
		TotalJobs:     total,
		Status:        models.BulkProcessing,
		ErrorDetails:  []models.BulkRowError{},
		CreatedBy:     enterpriseID,
		StartedAt:     time.Now().UTC(),
	}
	if err := o.store.CreateBulkOperation(ctx, op); err != nil {
		return models.BulkJobOperation{}, err
	}
	o.log.WithFields(logrus.Fields{
		"operation_id":  op.ID,
		"enterprise_id": enterpriseID,
		"type":          opType,
		"total":         total,
	}).Info("bulk operation started")
	return op, nil
}

func (o *Orchestrator) recordSuccess(ctx context.Context, op *models.BulkJobOperation) {
	op.SuccessfulJobs++
	telemetry.BulkRowsOK.Inc()
	if err := o.store.RecordBulkSuccess(ctx, op.ID); err != nil {
		o.log.WithError(err).WithField("operation_id", op.ID).Warn("failed to persist bulk success count")
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, op *models.BulkJobOperation, rowIndex int, cause error) {
	rowErr := models.BulkRowError{RowIndex: rowIndex, Message: cause.Error()}
	op.FailedJobs++
	op.ErrorDetails = append(op.ErrorDetails, rowErr)
	telemetry.BulkRowsFailed.Inc()
	if err := o.store.RecordBulkFailure(ctx, op.ID, rowErr); err != nil {
		o.log.WithError(err).WithField("operation_id", op.ID).Warn("failed to persist bulk failure row")
	}
}

func (o *Orchestrator) finish(ctx context.Context, op *models.BulkJobOperation) {
	now := time.Now().UTC()
	status := models.BulkCompleted
	if op.FailedJobs > 0 {
		status = models.BulkPartial
	}
	op.Status = status
	op.CompletedAt = &now
	if err := o.store.FinishBulkOperation(ctx, op.ID, status, now); err != nil {
		o.log.WithError(err).WithField("operation_id", op.ID).Warn("failed to finalize bulk operation")
	}
	o.log.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"status":       status,
		"succeeded":    op.SuccessfulJobs,
		"failed":       op.FailedJobs,
	}).Info("bulk operation finished")
}
