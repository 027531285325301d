// Package booking groups jobs that share a shipping-line booking and totals them.
package booking

import (
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk/internal/shipment"
)

// Summary is the derived view of one booking. It is rebuilt from a job
// snapshot on every request and never stored.
type Summary struct {
	Booking     string                `json:"booking"`
	Month       string                `json:"month"`
	Line        string                `json:"line"`
	JobCount    int                   `json:"jobCount"`
	TotalCost   decimal.Decimal       `json:"totalCost"`
	TotalSell   decimal.Decimal       `json:"totalSell"`
	TotalProfit decimal.Decimal       `json:"totalProfit"`
	TotalCont20 int                   `json:"totalCont20"`
	TotalCont40 int                   `json:"totalCont40"`
	Jobs        []shipment.Job        `json:"jobs"`
	CostDetails shipment.CostDetails  `json:"costDetails"`
	// DivergentJobIDs lists members whose own cost breakdown copy disagrees
	// with the one used for CostDetails.
	DivergentJobIDs []string `json:"divergentJobIds,omitempty"`
}

// Aggregate builds the summary of the jobs whose Booking equals booking
// exactly. The first matching job supplies month, line and the cost
// breakdown. It returns nil when no job matches.
func Aggregate(jobs []shipment.Job, booking string) *Summary {
	return AggregateWith(jobs, booking, nil)
}

// AggregateWith is Aggregate with an authoritative cost breakdown kept
// outside the jobs. When details is nil the first member's copy is used.
func AggregateWith(jobs []shipment.Job, booking string, details *shipment.CostDetails) *Summary {
	var summary *Summary
	for i := range jobs {
		job := jobs[i]
		if job.Booking != booking {
			continue
		}
		if summary == nil {
			source := details
			if source == nil {
				source = job.BookingCostDetails
			}
			summary = &Summary{
				Booking:     booking,
				Month:       job.Month,
				Line:        job.Line,
				TotalCost:   decimal.Zero,
				TotalSell:   decimal.Zero,
				TotalProfit: decimal.Zero,
				CostDetails: source.Normalize(),
			}
		}
		summary.JobCount++
		summary.TotalCost = summary.TotalCost.Add(job.Cost)
		summary.TotalSell = summary.TotalSell.Add(job.Sell)
		summary.TotalProfit = summary.TotalProfit.Add(job.Profit)
		summary.TotalCont20 += job.Cont20
		summary.TotalCont40 += job.Cont40
		summary.Jobs = append(summary.Jobs, job)

		if job.BookingCostDetails != nil && !job.BookingCostDetails.Equal(&summary.CostDetails) {
			summary.DivergentJobIDs = append(summary.DivergentJobIDs, job.ID)
		}
	}
	return summary
}

// LocalChargeInvoiced is the booking's invoiced local charge: the main
// invoice plus every additional local charge.
func (s *Summary) LocalChargeInvoiced() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s.CostDetails.LocalChargeTotal()
}

// DepositTotal is the sum of the deposits recorded for the booking.
func (s *Summary) DepositTotal() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s.CostDetails.DepositTotal()
}

// HasDeposits reports whether any deposit was recorded for the booking.
func (s *Summary) HasDeposits() bool {
	return s != nil && len(s.CostDetails.Deposits) > 0
}

// Divergent lists every booking in the snapshot whose members carry a cost
// breakdown copy that disagrees with the authoritative one, mapped to the
// offending job IDs. stored holds the breakdown kept outside the jobs per
// booking; bookings missing from it fall back to the first member's copy.
func Divergent(jobs []shipment.Job, stored map[string]*shipment.CostDetails) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]bool)
	for _, job := range jobs {
		if job.Booking == "" || seen[job.Booking] {
			continue
		}
		seen[job.Booking] = true
		if summary := AggregateWith(jobs, job.Booking, stored[job.Booking]); summary != nil && len(summary.DivergentJobIDs) > 0 {
			out[job.Booking] = summary.DivergentJobIDs
		}
	}
	return out
}
