package backoffice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/freightdesk/freightdesk/internal/docno"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

type memoryRepo struct {
	mu       sync.Mutex
	jobs     map[string]shipment.Job
	order    []string
	details  map[string]shipment.CostDetails
	receipts []shipment.Receipt
	claims   map[string][]docno.Usage
	failList error
	// failDetails makes every cost breakdown write fail.
	failDetails error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		jobs:    make(map[string]shipment.Job),
		details: make(map[string]shipment.CostDetails),
		claims:  make(map[string][]docno.Usage),
	}
}

func (m *memoryRepo) ListJobs(ctx context.Context, filter JobFilter) ([]shipment.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var out []shipment.Job
	for _, id := range m.order {
		job := m.jobs[id]
		if !filter.IncludeDeleted && !job.Active() {
			continue
		}
		if filter.Month != "" && job.Month != filter.Month {
			continue
		}
		if filter.Booking != "" && job.Booking != filter.Booking {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (m *memoryRepo) GetJob(ctx context.Context, id string) (shipment.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return shipment.Job{}, ErrNotFound
	}
	return job, nil
}

func (m *memoryRepo) SaveJob(ctx context.Context, job shipment.Job, details *shipment.CostDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if details != nil && m.failDetails != nil {
		return m.failDetails
	}
	for id, other := range m.jobs {
		if id != job.ID && other.Active() && other.JobCode == job.JobCode {
			return fmt.Errorf("%w: %s", ErrDuplicate, job.JobCode)
		}
	}
	if err := m.replaceClaims(jobOwner(job.ID), jobClaims(&job)); err != nil {
		return err
	}
	if _, ok := m.jobs[job.ID]; !ok {
		m.order = append(m.order, job.ID)
	}
	m.jobs[job.ID] = job
	if details != nil {
		m.details[job.Booking] = *details
	}
	return nil
}

func (m *memoryRepo) DeleteJob(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || !job.Active() {
		return ErrNotFound
	}
	job.DeletedAt = &at
	m.jobs[id] = job
	return nil
}

func (m *memoryRepo) GetCostDetails(ctx context.Context, booking string) (*shipment.CostDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	details, ok := m.details[booking]
	if !ok {
		return nil, nil
	}
	return &details, nil
}

func (m *memoryRepo) SaveCostDetails(ctx context.Context, booking string, details shipment.CostDetails, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDetails != nil {
		return m.failDetails
	}
	m.details[booking] = details
	return nil
}

func (m *memoryRepo) ListReceipts(ctx context.Context) ([]shipment.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]shipment.Receipt(nil), m.receipts...), nil
}

func (m *memoryRepo) SaveReceipt(ctx context.Context, r shipment.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.replaceClaims(receiptOwner(r.ID), receiptClaims(r)); err != nil {
		return err
	}
	m.receipts = append(m.receipts, r)
	return nil
}

func (m *memoryRepo) replaceClaims(owner string, incoming []Claim) error {
	held := make(map[string][]docno.Usage)
	for _, docNo := range claimDocNos(incoming) {
		for _, use := range m.claims[docNo] {
			if use.Owner != owner {
				held[docNo] = append(held[docNo], use)
			}
		}
	}
	if err := checkClaims(incoming, held); err != nil {
		return err
	}
	m.dropClaims(owner)
	for _, c := range incoming {
		m.claims[c.DocNo] = append(m.claims[c.DocNo], c.Usage)
	}
	return nil
}

func (m *memoryRepo) dropClaims(owner string) {
	for docNo, list := range m.claims {
		kept := list[:0]
		for _, use := range list {
			if use.Owner != owner {
				kept = append(kept, use)
			}
		}
		if len(kept) == 0 {
			delete(m.claims, docNo)
			continue
		}
		m.claims[docNo] = kept
	}
}

func (m *memoryRepo) claimedBy(docNo string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owners []string
	for _, use := range m.claims[strings.ToUpper(docNo)] {
		owners = append(owners, use.Owner)
	}
	sort.Strings(owners)
	return owners
}
