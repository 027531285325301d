package shipment

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Invoice is a supplier invoice line of a booking cost breakdown.
type Invoice struct {
	Invoice   string          `json:"invoice"`
	Date      string          `json:"date"`
	Net       decimal.Decimal `json:"net"`
	Vat       decimal.Decimal `json:"vat"`
	Total     decimal.Decimal `json:"total"`
	NoInvoice bool            `json:"noInvoice,omitempty"`
}

// Amount is the invoiced figure: net plus VAT, or the flat total when the
// charge was explicitly recorded without an invoice.
func (i Invoice) Amount() decimal.Decimal {
	if i.NoInvoice {
		return i.Total
	}
	return i.Net.Add(i.Vat)
}

// Deposit is a container deposit paid for the booking.
type Deposit struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Note   string          `json:"note,omitempty"`
}

// CostDetails is the cost breakdown shared by every job of a booking.
type CostDetails struct {
	LocalCharge            *Invoice  `json:"localCharge"`
	AdditionalLocalCharges []Invoice `json:"additionalLocalCharges"`
	ExtensionCosts         []Invoice `json:"extensionCosts"`
	Deposits               []Deposit `json:"deposits"`
}

// EmptyLocalCharge is the zero local charge used when none was recorded.
func EmptyLocalCharge() Invoice {
	return Invoice{Net: decimal.Zero, Vat: decimal.Zero, Total: decimal.Zero}
}

// Normalize returns a copy with a local charge and non-nil lists. A nil
// receiver yields the empty breakdown.
func (d *CostDetails) Normalize() CostDetails {
	out := CostDetails{
		AdditionalLocalCharges: []Invoice{},
		ExtensionCosts:         []Invoice{},
		Deposits:               []Deposit{},
	}
	lc := EmptyLocalCharge()
	out.LocalCharge = &lc
	if d == nil {
		return out
	}
	if d.LocalCharge != nil {
		lc = *d.LocalCharge
	}
	if d.AdditionalLocalCharges != nil {
		out.AdditionalLocalCharges = append(out.AdditionalLocalCharges, d.AdditionalLocalCharges...)
	}
	if d.ExtensionCosts != nil {
		out.ExtensionCosts = append(out.ExtensionCosts, d.ExtensionCosts...)
	}
	if d.Deposits != nil {
		out.Deposits = append(out.Deposits, d.Deposits...)
	}
	return out
}

// LocalChargeTotal sums the main and additional local charge invoices.
func (d *CostDetails) LocalChargeTotal() decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	total := decimal.Zero
	if d.LocalCharge != nil {
		total = total.Add(d.LocalCharge.Amount())
	}
	for _, inv := range d.AdditionalLocalCharges {
		total = total.Add(inv.Amount())
	}
	return total
}

// DepositTotal sums the recorded booking deposits.
func (d *CostDetails) DepositTotal() decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, dep := range d.Deposits {
		total = total.Add(dep.Amount)
	}
	return total
}

// Equal compares two breakdowns after normalization.
func (d *CostDetails) Equal(other *CostDetails) bool {
	a, b := d.Normalize(), other.Normalize()
	if !a.LocalCharge.equal(*b.LocalCharge) {
		return false
	}
	if !invoicesEqual(a.AdditionalLocalCharges, b.AdditionalLocalCharges) ||
		!invoicesEqual(a.ExtensionCosts, b.ExtensionCosts) {
		return false
	}
	if len(a.Deposits) != len(b.Deposits) {
		return false
	}
	for i := range a.Deposits {
		x, y := a.Deposits[i], b.Deposits[i]
		if !x.Amount.Equal(y.Amount) || x.Date != y.Date || x.Note != y.Note {
			return false
		}
	}
	return true
}

func (i Invoice) equal(o Invoice) bool {
	return i.Invoice == o.Invoice && i.Date == o.Date && i.NoInvoice == o.NoInvoice &&
		i.Net.Equal(o.Net) && i.Vat.Equal(o.Vat) && i.Total.Equal(o.Total)
}

func invoicesEqual(a, b []Invoice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

// UnmarshalJSON decodes leniently: members with an unexpected shape are
// dropped and later replaced by Normalize defaults, so one damaged legacy
// record never makes the whole job unreadable.
func (d *CostDetails) UnmarshalJSON(data []byte) error {
	*d = CostDetails{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if msg, ok := raw["localCharge"]; ok && !isNull(msg) {
		var inv Invoice
		if err := json.Unmarshal(msg, &inv); err == nil {
			d.LocalCharge = &inv
		}
	}
	decodeList(raw["additionalLocalCharges"], &d.AdditionalLocalCharges)
	decodeList(raw["extensionCosts"], &d.ExtensionCosts)
	decodeList(raw["deposits"], &d.Deposits)
	return nil
}

func decodeList[T any](msg json.RawMessage, dst *[]T) {
	if len(msg) == 0 || isNull(msg) {
		return
	}
	var list []T
	if err := json.Unmarshal(msg, &list); err != nil {
		return
	}
	*dst = list
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}
