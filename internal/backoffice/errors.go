package backoffice

import (
	"errors"
	"fmt"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

var (
	// ErrNotFound is returned for unknown or deleted jobs and unknown bookings.
	ErrNotFound = fmt.Errorf("backoffice: %w", httpx.ErrNotFound)
	// ErrDuplicate is returned when an active job already uses the job code.
	ErrDuplicate = fmt.Errorf("backoffice: job code %w", httpx.ErrDuplicate)
	// ErrLocked is returned when an update touches fields frozen by a recorded voucher.
	ErrLocked = fmt.Errorf("backoffice: locked by recorded voucher: %w", httpx.ErrConflict)
	// ErrDocNoTaken is returned when a document number is already held elsewhere.
	ErrDocNoTaken = fmt.Errorf("backoffice: document number taken: %w", httpx.ErrConflict)
)

// invalid maps domain validation failures onto the transport sentinel while
// keeping the per-field messages reachable.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shipment.ErrInvalid) {
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	return err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", httpx.ErrValidation, fmt.Sprintf(format, args...))
}
