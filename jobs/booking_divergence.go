package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/freightdesk/freightdesk/internal/jobs"
)

// DivergenceReporter lists bookings whose jobs carry different cost details.
type DivergenceReporter interface {
	DivergentBookings(ctx context.Context) (map[string][]string, error)
}

// BookingDivergenceJob logs bookings that need a manual cost details merge.
type BookingDivergenceJob struct {
	Reporter DivergenceReporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewBookingDivergenceJob wires the divergence handler.
func NewBookingDivergenceJob(reporter DivergenceReporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *BookingDivergenceJob {
	return &BookingDivergenceJob{Reporter: reporter, Logger: logger, Metrics: metrics}
}

// Handle executes the divergence report.
func (j *BookingDivergenceJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reporter == nil {
		return errors.New("booking divergence: handler not configured")
	}
	var payload ScheduledPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskBookingDivergence)
	logger := jobLogger(j.Logger, TaskBookingDivergence)

	divergent, err := j.Reporter.DivergentBookings(ctx)
	if err != nil {
		logger.Error("divergence report failed", slog.Any("error", err))
		return tracker.End(err)
	}

	bookings := make([]string, 0, len(divergent))
	for b := range divergent {
		bookings = append(bookings, b)
	}
	sort.Strings(bookings)
	for _, b := range bookings {
		logger.Warn("booking cost details diverge", slog.String("booking", b), slog.Any("job_ids", divergent[b]))
	}
	metrics.SetFindings(TaskBookingDivergence, len(divergent))
	logger.Info("completed booking divergence report", slog.Int("bookings", len(divergent)))
	return tracker.End(nil)
}
