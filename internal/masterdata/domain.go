// Package masterdata keeps the customers and shipping lines that jobs refer
// to for display.
package masterdata

import (
	"fmt"
	"time"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/shared"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 200
)

var (
	ErrNotFound  = fmt.Errorf("masterdata: %w", httpx.ErrNotFound)
	ErrDuplicate = fmt.Errorf("masterdata: code %w", httpx.ErrDuplicate)
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

// Offset returns the row offset of the page.
func (f ListFilters) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

func (f ListFilters) normalize() ListFilters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Customer is a shipper or consignee billed for jobs.
type Customer struct {
	ID        string    `json:"id"`
	Code      string    `json:"code" validate:"required,max=32"`
	Name      string    `json:"name" validate:"required,max=255"`
	TaxCode   string    `json:"taxCode" validate:"max=32"`
	Address   string    `json:"address" validate:"max=500"`
	Email     string    `json:"email" validate:"omitempty,email"`
	Phone     string    `json:"phone" validate:"max=32"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Line is a shipping line (carrier).
type Line struct {
	ID        string    `json:"id"`
	Code      string    `json:"code" validate:"required,max=32"`
	Name      string    `json:"name" validate:"required,max=255"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is one page of a list.
type Page[T any] struct {
	Items []T `json:"items"`
	shared.Pagination
}
