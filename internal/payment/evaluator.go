// Package payment reconciles the money received for a job against what was
// invoiced or expected.
package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk/internal/booking"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

// Tolerance is the largest absolute difference treated as rounding noise.
var Tolerance = decimal.NewFromInt(1)

// Status is the reconciliation result of one job. A positive diff is a
// surplus, a negative diff a shortfall.
type Status struct {
	HasMismatch     bool            `json:"hasMismatch"`
	LCDiff          decimal.Decimal `json:"lcDiff"`
	DepositDiff     decimal.Decimal `json:"depositDiff"`
	LCExpected      decimal.Decimal `json:"lcExpected"`
	LCReceived      decimal.Decimal `json:"lcReceived"`
	DepositExpected decimal.Decimal `json:"depositExpected"`
	DepositReceived decimal.Decimal `json:"depositReceived"`
}

// Evaluate reconciles job against its booking built from all (the job alone
// when all is empty) and the external receipts. It never fails: without
// booking context or invoice data there is nothing to reconcile.
func Evaluate(job shipment.Job, all []shipment.Job, receipts []shipment.Receipt) Status {
	var summary *booking.Summary
	if job.Booking != "" {
		pool := all
		if len(pool) == 0 {
			pool = []shipment.Job{job}
		}
		summary = booking.Aggregate(pool, job.Booking)
	}
	return EvaluateSummary(job, summary, all, receipts)
}

// EvaluateSummary is Evaluate with a booking summary the caller already built,
// for example one using the stored authoritative cost breakdown.
func EvaluateSummary(job shipment.Job, summary *booking.Summary, all []shipment.Job, receipts []shipment.Receipt) Status {
	st := Status{
		LCDiff:          decimal.Zero,
		DepositDiff:     decimal.Zero,
		LCExpected:      decimal.Zero,
		LCReceived:      decimal.Zero,
		DepositExpected: decimal.Zero,
		DepositReceived: decimal.Zero,
	}

	if expected, ok := expectedLocalCharge(job, summary); ok {
		received := merged(job, all, receipts, job.LocalChargeTotal, func(j *shipment.Job) (*shipment.Voucher, decimal.Decimal) {
			return j.LocalChargeReceipt, j.LocalChargeTotal
		})
		st.LCExpected = expected
		st.LCReceived = received
		st.LCDiff = settle(received.Sub(expected))
	}

	if summary.HasDeposits() {
		received := merged(job, all, receipts, job.DepositAmount, func(j *shipment.Job) (*shipment.Voucher, decimal.Decimal) {
			return j.DepositReceipt, j.DepositAmount
		})
		st.DepositExpected = summary.DepositTotal()
		st.DepositReceived = received
		st.DepositDiff = settle(received.Sub(st.DepositExpected))
	}

	st.HasMismatch = !st.LCDiff.IsZero() || !st.DepositDiff.IsZero()
	return st
}

// expectedLocalCharge returns the invoiced local charge and whether there is
// any invoice data to reconcile against.
func expectedLocalCharge(job shipment.Job, summary *booking.Summary) (decimal.Decimal, bool) {
	if summary != nil {
		details := summary.CostDetails
		if !hasInvoiceData(&details) {
			return decimal.Zero, false
		}
		return summary.LocalChargeInvoiced(), true
	}
	if strings.TrimSpace(job.LocalChargeInvoice) == "" {
		return decimal.Zero, false
	}
	return job.Cost, true
}

func hasInvoiceData(details *shipment.CostDetails) bool {
	if len(details.AdditionalLocalCharges) > 0 {
		return true
	}
	lc := details.LocalCharge
	return lc != nil && (strings.TrimSpace(lc.Invoice) != "" || !lc.Amount().IsZero())
}

// merged adds to own the amounts of sibling jobs and external receipts that
// share the job's recorded receipt document: one receipt can settle several
// jobs.
func merged(job shipment.Job, all []shipment.Job, receipts []shipment.Receipt, own decimal.Decimal, slot func(*shipment.Job) (*shipment.Voucher, decimal.Decimal)) decimal.Decimal {
	total := own
	voucher, _ := slot(&job)
	if voucher.State() != shipment.VoucherRecorded {
		return total
	}
	docNo := strings.TrimSpace(voucher.DocNo)
	for i := range all {
		sibling := &all[i]
		if sibling.ID == job.ID {
			continue
		}
		v, amount := slot(sibling)
		if v.State() == shipment.VoucherRecorded && strings.EqualFold(strings.TrimSpace(v.DocNo), docNo) {
			total = total.Add(amount)
		}
	}
	for _, r := range receipts {
		if strings.EqualFold(strings.TrimSpace(r.DocNo), docNo) {
			total = total.Add(r.Amount)
		}
	}
	return total
}

func settle(diff decimal.Decimal) decimal.Decimal {
	if diff.Abs().LessThan(Tolerance) {
		return decimal.Zero
	}
	return diff
}
