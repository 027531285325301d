package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	"github.com/freightdesk/freightdesk/internal/docno"
	jobmetrics "github.com/freightdesk/freightdesk/internal/jobs"
)

// DocNoAuditor reports document numbers used in incompatible places.
type DocNoAuditor interface {
	AuditDocNos(ctx context.Context) (map[string][]docno.Usage, error)
}

// DocNoAuditJob logs every conflicting document number it finds.
type DocNoAuditJob struct {
	Auditor DocNoAuditor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDocNoAuditJob wires the audit handler.
func NewDocNoAuditJob(auditor DocNoAuditor, logger *slog.Logger, metrics *jobmetrics.Metrics) *DocNoAuditJob {
	return &DocNoAuditJob{Auditor: auditor, Logger: logger, Metrics: metrics}
}

// Handle executes the audit.
func (j *DocNoAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Auditor == nil {
		return errors.New("docno audit: handler not configured")
	}
	var payload ScheduledPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskDocNoAudit)
	logger := jobLogger(j.Logger, TaskDocNoAudit)
	start := time.Now()

	conflicts, err := j.Auditor.AuditDocNos(ctx)
	if err != nil {
		logger.Error("audit failed", slog.Any("error", err))
		return tracker.End(err)
	}

	numbers := make([]string, 0, len(conflicts))
	for n := range conflicts {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)
	for _, n := range numbers {
		owners := make([]string, 0, len(conflicts[n]))
		for _, use := range conflicts[n] {
			owners = append(owners, use.Owner+"/"+use.Field)
		}
		logger.Warn("document number conflict", slog.String("doc_no", n), slog.Any("usages", owners))
	}
	metrics.SetFindings(TaskDocNoAudit, len(conflicts))

	logger.Info("completed document number audit",
		slog.Int("conflicts", len(conflicts)),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}
