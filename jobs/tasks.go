package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/freightdesk/freightdesk/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskDocNoAudit scans jobs and receipts for reused document numbers.
	TaskDocNoAudit = "docno:audit"
	// TaskBookingDivergence reports bookings whose jobs disagree on cost details.
	TaskBookingDivergence = "booking:divergence"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ScheduledPayload carries the time a periodic task was meant to run.
type ScheduledPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// CleanupPayload configures an idempotency cleanup run.
type CleanupPayload struct {
	ScheduledFor time.Time     `json:"scheduled_for"`
	Retention    time.Duration `json:"retention"`
}

// NewDocNoAuditTask constructs a document number audit task.
func NewDocNoAuditTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskDocNoAudit, ScheduledPayload{ScheduledFor: at})
}

// NewBookingDivergenceTask constructs a booking divergence report task.
func NewBookingDivergenceTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskBookingDivergence, ScheduledPayload{ScheduledFor: at})
}

// NewIdempotencyCleanupTask constructs a cleanup task keeping keys younger
// than retention.
func NewIdempotencyCleanupTask(at time.Time, retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, CleanupPayload{ScheduledFor: at, Retention: retention})
}

// NewTask builds the task registered under name. It backs the manual trigger
// command.
func NewTask(name string, at time.Time, retention time.Duration) (*asynq.Task, error) {
	switch name {
	case TaskDocNoAudit:
		return NewDocNoAuditTask(at)
	case TaskBookingDivergence:
		return NewBookingDivergenceTask(at)
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(at, retention)
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
}

// TaskNames lists every task the worker handles.
func TaskNames() []string {
	return []string{TaskDocNoAudit, TaskBookingDivergence, TaskIdempotencyCleanup}
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault)), nil
}
