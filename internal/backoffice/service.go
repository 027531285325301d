// Package backoffice runs the job, booking and receipt workflows of the
// forwarding back office on top of a repository.
package backoffice

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/freightdesk/freightdesk/internal/booking"
	"github.com/freightdesk/freightdesk/internal/docno"
	"github.com/freightdesk/freightdesk/internal/payment"
	"github.com/freightdesk/freightdesk/internal/shared"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

// JobFilter narrows ListJobs. Empty fields match everything.
type JobFilter struct {
	Month          string
	Booking        string
	IncludeDeleted bool
}

// RepositoryPort defines data access for the back office.
type RepositoryPort interface {
	ListJobs(ctx context.Context, filter JobFilter) ([]shipment.Job, error)
	GetJob(ctx context.Context, id string) (shipment.Job, error)
	// SaveJob inserts or replaces a job and its document claims atomically.
	// A non-nil details replaces the booking cost breakdown in the same
	// transaction.
	SaveJob(ctx context.Context, job shipment.Job, details *shipment.CostDetails) error
	DeleteJob(ctx context.Context, id string, at time.Time) error
	GetCostDetails(ctx context.Context, booking string) (*shipment.CostDetails, error)
	SaveCostDetails(ctx context.Context, booking string, details shipment.CostDetails, at time.Time) error
	ListReceipts(ctx context.Context) ([]shipment.Receipt, error)
	SaveReceipt(ctx context.Context, receipt shipment.Receipt) error
}

// Reserver hands out document sequence numbers atomically.
type Reserver interface {
	Reserve(ctx context.Context, prefix string, floor int64) (int64, error)
}

// Observer receives allocation events for metrics.
type Observer interface {
	DocNoAllocated(prefix, mode string)
	DocNoConflicts(n int)
}

type noopObserver struct{}

func (noopObserver) DocNoAllocated(string, string) {}
func (noopObserver) DocNoConflicts(int)            {}

// AuditRecorder keeps a trail of changes made through the service.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Options configure a Service.
type Options struct {
	Logger   *slog.Logger
	Reserver Reserver
	Observer Observer
	Audit    AuditRecorder
	Width    int
}

// Service coordinates the back office workflows.
type Service struct {
	repo     RepositoryPort
	logger   *slog.Logger
	reserver Reserver
	observer Observer
	audit    AuditRecorder
	width    int
	now      func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	width := opts.Width
	if width < 1 {
		width = docno.DefaultWidth
	}
	return &Service{
		repo:     repo,
		logger:   logger,
		reserver: opts.Reserver,
		observer: observer,
		audit:    opts.Audit,
		width:    width,
		now:      time.Now,
	}
}

// ListJobs returns jobs matching filter.
func (s *Service) ListJobs(ctx context.Context, filter JobFilter) ([]shipment.Job, error) {
	return s.repo.ListJobs(ctx, filter)
}

// GetJob returns an active job.
func (s *Service) GetJob(ctx context.Context, id string) (shipment.Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return shipment.Job{}, err
	}
	if !job.Active() {
		return shipment.Job{}, ErrNotFound
	}
	return job, nil
}

// CreateJob validates and stores a new job.
func (s *Service) CreateJob(ctx context.Context, job shipment.Job) (shipment.Job, error) {
	now := s.now().UTC()
	job.ID = uuid.NewString()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.DeletedAt = nil
	if err := s.save(ctx, &job); err != nil {
		return shipment.Job{}, err
	}
	s.logger.Info("job created", slog.String("id", job.ID), slog.String("job_code", job.JobCode), slog.String("booking", job.Booking))
	s.record(ctx, "job.create", "job", job.ID, map[string]any{"jobCode": job.JobCode, "booking": job.Booking})
	return job, nil
}

// UpdateJob replaces an active job. Fields frozen by recorded vouchers must
// keep their stored values.
func (s *Service) UpdateJob(ctx context.Context, id string, job shipment.Job) (shipment.Job, error) {
	stored, err := s.GetJob(ctx, id)
	if err != nil {
		return shipment.Job{}, err
	}
	if violations := shipment.LockViolations(stored, job); len(violations) > 0 {
		return shipment.Job{}, fmt.Errorf("%w: %s", ErrLocked, strings.Join(violations, ", "))
	}
	job.ID = stored.ID
	job.CreatedAt = stored.CreatedAt
	job.UpdatedAt = s.now().UTC()
	job.DeletedAt = nil
	if err := s.save(ctx, &job); err != nil {
		return shipment.Job{}, err
	}
	s.record(ctx, "job.update", "job", job.ID, map[string]any{"jobCode": job.JobCode, "booking": job.Booking})
	return job, nil
}

// save derives computed fields, validates and stores the job. A cost
// breakdown sent with the job moves into the booking store together with the
// job; the job itself keeps only the booking reference.
func (s *Service) save(ctx context.Context, job *shipment.Job) error {
	job.JobCode = strings.TrimSpace(job.JobCode)
	job.Booking = strings.TrimSpace(job.Booking)
	job.DeriveProfit()
	if err := invalid(shipment.ValidateJob(*job)); err != nil {
		return err
	}
	if job.Month != "" {
		if _, err := time.Parse("2006-01", job.Month); err != nil {
			return invalidf("month: must be YYYY-MM")
		}
	}
	details := job.BookingCostDetails
	if details != nil && job.Booking == "" {
		return invalidf("bookingCostDetails: requires a booking")
	}
	job.BookingCostDetails = nil
	if details != nil {
		normalized := details.Normalize()
		details = &normalized
	}
	return s.repo.SaveJob(ctx, *job, details)
}

// DeleteJob soft deletes a job. Its document numbers stay claimed and are
// never handed to an incompatible field again.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.GetJob(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteJob(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	s.logger.Info("job deleted", slog.String("id", id))
	s.record(ctx, "job.delete", "job", id, nil)
	return nil
}

// BookingSummary aggregates the active jobs of a booking with the stored
// cost breakdown.
func (s *Service) BookingSummary(ctx context.Context, bookingID string) (*booking.Summary, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, ErrNotFound
	}
	var (
		jobs    []shipment.Job
		details *shipment.CostDetails
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = s.repo.ListJobs(gctx, JobFilter{Booking: bookingID})
		return err
	})
	g.Go(func() error {
		var err error
		details, err = s.repo.GetCostDetails(gctx, bookingID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	summary := booking.AggregateWith(jobs, bookingID, details)
	if summary == nil {
		return nil, ErrNotFound
	}
	if len(summary.DivergentJobIDs) > 0 {
		s.logger.Warn("booking cost details diverge", slog.String("booking", bookingID), slog.Int("jobs", len(summary.DivergentJobIDs)))
	}
	return summary, nil
}

// SetBookingCostDetails replaces the stored cost breakdown of a booking.
func (s *Service) SetBookingCostDetails(ctx context.Context, bookingID string, details shipment.CostDetails) (shipment.CostDetails, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return shipment.CostDetails{}, invalidf("booking: is required")
	}
	normalized := (&details).Normalize()
	if err := s.repo.SaveCostDetails(ctx, bookingID, normalized, s.now().UTC()); err != nil {
		return shipment.CostDetails{}, err
	}
	s.record(ctx, "booking.cost_details", "booking", bookingID, nil)
	return normalized, nil
}

// PaymentStatus reconciles the money received for a job.
func (s *Service) PaymentStatus(ctx context.Context, id string) (payment.Status, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return payment.Status{}, err
	}
	var (
		all      []shipment.Job
		receipts []shipment.Receipt
		details  *shipment.CostDetails
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.repo.ListJobs(gctx, JobFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		receipts, err = s.repo.ListReceipts(gctx)
		return err
	})
	if job.Booking != "" {
		g.Go(func() error {
			var err error
			details, err = s.repo.GetCostDetails(gctx, job.Booking)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return payment.Status{}, err
	}
	var summary *booking.Summary
	if job.Booking != "" {
		summary = booking.AggregateWith(all, job.Booking, details)
	}
	return payment.EvaluateSummary(job, summary, all, receipts), nil
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z]{1,10}$`)

// NextDocNoRequest selects the sequence to draw from. Prefix wins over Kind.
type NextDocNoRequest struct {
	Kind     string   `json:"kind"`
	Prefix   string   `json:"prefix"`
	Width    int      `json:"width"`
	Reserved []string `json:"reserved"`
}

// NextDocNoResult is an allocated document number.
type NextDocNoResult struct {
	DocNo    string `json:"docNo"`
	Prefix   string `json:"prefix"`
	Reserved bool   `json:"reserved"`
}

// NextDocNo returns the next free document number for a prefix. Deleted jobs
// and external receipts count as used. With a Reserver configured the number
// is also reserved so concurrent callers never receive the same one.
func (s *Service) NextDocNo(ctx context.Context, req NextDocNoRequest) (NextDocNoResult, error) {
	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		kind, err := shipment.ParseVoucherKind(req.Kind)
		if err != nil {
			return NextDocNoResult{}, invalidf("kind: %v", err)
		}
		prefix = kind.Prefix()
	}
	if !prefixPattern.MatchString(prefix) {
		return NextDocNoResult{}, invalidf("prefix: must be 1 to 10 letters")
	}
	prefix = strings.ToUpper(prefix)
	width := req.Width
	if width == 0 {
		width = s.width
	}
	if width < 1 || width > 12 {
		return NextDocNoResult{}, invalidf("width: must be between 1 and 12")
	}

	var (
		jobs     []shipment.Job
		receipts []shipment.Receipt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = s.repo.ListJobs(gctx, JobFilter{IncludeDeleted: true})
		return err
	})
	g.Go(func() error {
		var err error
		receipts, err = s.repo.ListReceipts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return NextDocNoResult{}, err
	}

	reserved := append(append([]string{}, req.Reserved...), docno.ReceiptDocNos(receipts)...)
	floor := docno.MaxSuffix(jobs, prefix, reserved...)

	result := NextDocNoResult{Prefix: prefix}
	n := floor + 1
	mode := "scan"
	if s.reserver != nil {
		reservedN, err := s.reserver.Reserve(ctx, prefix, floor)
		if err != nil {
			s.logger.Warn("docno reservation unavailable, falling back to scan",
				slog.String("prefix", prefix), slog.Any("error", err))
		} else {
			n = reservedN
			mode = "reserved"
			result.Reserved = true
		}
	}
	result.DocNo = docno.Format(prefix, n, width)
	s.observer.DocNoAllocated(prefix, mode)
	return result, nil
}

// CreateReceipt stores an external receipt.
func (s *Service) CreateReceipt(ctx context.Context, r shipment.Receipt) (shipment.Receipt, error) {
	r.ID = uuid.NewString()
	r.DocNo = strings.TrimSpace(r.DocNo)
	r.CreatedAt = s.now().UTC()
	if err := invalid(shipment.ValidateReceipt(r)); err != nil {
		return shipment.Receipt{}, err
	}
	if err := s.repo.SaveReceipt(ctx, r); err != nil {
		return shipment.Receipt{}, err
	}
	s.record(ctx, "receipt.create", "receipt", r.ID, map[string]any{"docNo": r.DocNo, "amount": r.Amount.String()})
	return r, nil
}

// ListReceipts returns every external receipt.
func (s *Service) ListReceipts(ctx context.Context) ([]shipment.Receipt, error) {
	return s.repo.ListReceipts(ctx)
}

// AuditDocNos reports document numbers reused in incompatible places. Numbers
// left on deleted jobs are included because they were issued.
func (s *Service) AuditDocNos(ctx context.Context) (map[string][]docno.Usage, error) {
	jobs, err := s.repo.ListJobs(ctx, JobFilter{IncludeDeleted: true})
	if err != nil {
		return nil, err
	}
	receipts, err := s.repo.ListReceipts(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := docno.Conflicts(jobs, receipts)
	s.observer.DocNoConflicts(len(conflicts))
	return conflicts, nil
}

// DivergentBookings lists bookings whose jobs carry a cost breakdown copy
// that disagrees with the stored breakdown, or with the first member's copy
// when the booking has none stored.
func (s *Service) DivergentBookings(ctx context.Context) (map[string][]string, error) {
	jobs, err := s.repo.ListJobs(ctx, JobFilter{})
	if err != nil {
		return nil, err
	}
	stored := make(map[string]*shipment.CostDetails)
	for _, job := range jobs {
		if job.Booking == "" {
			continue
		}
		if _, ok := stored[job.Booking]; ok {
			continue
		}
		details, err := s.repo.GetCostDetails(ctx, job.Booking)
		if err != nil {
			return nil, fmt.Errorf("cost details %s: %w", job.Booking, err)
		}
		stored[job.Booking] = details
	}
	return booking.Divergent(jobs, stored), nil
}

// record writes an audit entry after a committed change. Failures are logged
// and never undo the change.
func (s *Service) record(ctx context.Context, action, entity, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Meta:     meta,
		At:       s.now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.String("id", id), slog.Any("error", err))
	}
}
