package masterdata

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk/internal/shared"
)

// Service validates master data before it reaches the repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) ListCustomers(ctx context.Context, filters ListFilters) (Page[Customer], error) {
	filters = filters.normalize()
	items, total, err := s.repo.ListCustomers(ctx, filters)
	if err != nil {
		return Page[Customer]{}, err
	}
	if items == nil {
		items = []Customer{}
	}
	return Page[Customer]{Items: items, Pagination: shared.NewPagination(filters.Page, filters.Limit, total)}, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	c = trimCustomer(c)
	if err := check(c); err != nil {
		return Customer{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now().UTC()
	c.UpdatedAt = c.CreatedAt
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, c Customer) (Customer, error) {
	stored, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	c = trimCustomer(c)
	if err := check(c); err != nil {
		return Customer{}, err
	}
	c.ID = stored.ID
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) ListLines(ctx context.Context, filters ListFilters) (Page[Line], error) {
	filters = filters.normalize()
	items, total, err := s.repo.ListLines(ctx, filters)
	if err != nil {
		return Page[Line]{}, err
	}
	if items == nil {
		items = []Line{}
	}
	return Page[Line]{Items: items, Pagination: shared.NewPagination(filters.Page, filters.Limit, total)}, nil
}

func (s *Service) GetLine(ctx context.Context, id string) (Line, error) {
	return s.repo.GetLine(ctx, id)
}

func (s *Service) CreateLine(ctx context.Context, l Line) (Line, error) {
	l.Code = strings.ToUpper(strings.TrimSpace(l.Code))
	l.Name = strings.TrimSpace(l.Name)
	if err := check(l); err != nil {
		return Line{}, err
	}
	l.ID = uuid.NewString()
	l.CreatedAt = s.now().UTC()
	l.UpdatedAt = l.CreatedAt
	if err := s.repo.CreateLine(ctx, l); err != nil {
		return Line{}, err
	}
	return l, nil
}

func (s *Service) UpdateLine(ctx context.Context, id string, l Line) (Line, error) {
	stored, err := s.repo.GetLine(ctx, id)
	if err != nil {
		return Line{}, err
	}
	l.Code = strings.ToUpper(strings.TrimSpace(l.Code))
	l.Name = strings.TrimSpace(l.Name)
	if err := check(l); err != nil {
		return Line{}, err
	}
	l.ID = stored.ID
	l.CreatedAt = stored.CreatedAt
	l.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateLine(ctx, l); err != nil {
		return Line{}, err
	}
	return l, nil
}

func (s *Service) DeleteLine(ctx context.Context, id string) error {
	return s.repo.DeleteLine(ctx, id)
}

func trimCustomer(c Customer) Customer {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	c.TaxCode = strings.TrimSpace(c.TaxCode)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	return c
}
