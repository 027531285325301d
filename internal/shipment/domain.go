package shipment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fee is one line of a job's fee breakdown.
type Fee struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Extension is an extension charge (container detention) billed after the job.
type Extension struct {
	Invoice     string          `json:"invoice"`
	InvoiceDate string          `json:"invoiceDate"`
	Net         decimal.Decimal `json:"net"`
	Vat         decimal.Decimal `json:"vat"`
	Total       decimal.Decimal `json:"total"`
	AmisDocNo   string          `json:"amisDocNo,omitempty"`
	AmisDesc    string          `json:"amisDesc,omitempty"`
	AmisDate    string          `json:"amisDate,omitempty"`
}

// Paid reports whether an accounting document has been issued for the extension.
func (e Extension) Paid() bool {
	return e.AmisDocNo != ""
}

// Job is one shipment record.
type Job struct {
	ID         string `json:"id"`
	JobCode    string `json:"jobCode" validate:"required,nowhitespace,max=64"`
	Month      string `json:"month"`
	Booking    string `json:"booking"`
	Line       string `json:"line"`
	CustomerID string `json:"customerId"`

	Cost   decimal.Decimal `json:"cost"`
	Sell   decimal.Decimal `json:"sell"`
	Profit decimal.Decimal `json:"profit"`
	Cont20 int             `json:"cont20" validate:"min=0"`
	Cont40 int             `json:"cont40" validate:"min=0"`
	Fees   []Fee           `json:"fees,omitempty"`

	LocalChargeInvoice string          `json:"localChargeInvoice"`
	LocalChargeDate    string          `json:"localChargeDate"`
	LocalChargeTotal   decimal.Decimal `json:"localChargeTotal"`
	Bank               string          `json:"bank"`

	DepositCustomerID string          `json:"maKhCuocId"`
	DepositAmount     decimal.Decimal `json:"thuCuoc"`
	DepositDate       string          `json:"ngayThuCuoc"`
	DepositRefundDate string          `json:"ngayThuHoan"`

	Extensions []Extension `json:"extensions,omitempty" validate:"dive"`

	LocalChargeReceipt *Voucher  `json:"amisLcVoucher,omitempty"`
	DepositReceipt     *Voucher  `json:"amisDepositVoucher,omitempty"`
	PaymentOut         *Voucher  `json:"amisPaymentVoucher,omitempty"`
	DepositOut         *Voucher  `json:"amisDepositOutVoucher,omitempty"`
	DepositRefund      *Voucher  `json:"amisDepositRefundVoucher,omitempty"`
	ExtensionPayment   *Voucher  `json:"amisExtensionPaymentVoucher,omitempty"`
	Refunds            []Voucher `json:"refunds,omitempty"`
	AdditionalReceipts []Voucher `json:"additionalReceipts,omitempty"`

	BookingCostDetails *CostDetails `json:"bookingCostDetails,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Active reports whether the job has not been soft deleted.
func (j Job) Active() bool {
	return j.DeletedAt == nil
}

// DeriveProfit recomputes Profit from Sell and Cost.
func (j *Job) DeriveProfit() {
	j.Profit = j.Sell.Sub(j.Cost)
}

// LocalChargePaid reports whether the local charge has been collected. A
// recorded receipt voucher is authoritative; legacy records only carry the
// receiving bank and the collection date.
func (j Job) LocalChargePaid() bool {
	if j.LocalChargeReceipt.State() == VoucherRecorded {
		return true
	}
	return j.Bank != "" && j.LocalChargeDate != ""
}

// DepositCollected reports whether the container deposit has been received.
func (j Job) DepositCollected() bool {
	if j.DepositReceipt.State() == VoucherRecorded {
		return true
	}
	return j.DepositDate != "" && j.DepositAmount.IsPositive()
}

// Receipt is a standalone receipt that is not tied to a job ("thu khác").
type Receipt struct {
	ID          string          `json:"id"`
	DocNo       string          `json:"docNo" validate:"required,nowhitespace,max=32"`
	Date        string          `json:"date" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	CustomerID  string          `json:"customerId"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}
