package shipment

import "fmt"

// LockedFields names the monetary fields frozen once a voucher of the given
// kind carries a document number.
func LockedFields(kind VoucherKind) []string {
	switch kind {
	case KindLocalChargeReceipt:
		return []string{"localChargeTotal"}
	case KindDepositReceipt, KindDepositOut, KindDepositRefund:
		return []string{"thuCuoc"}
	case KindPaymentOut:
		return []string{"cost"}
	case KindExtensionPayment:
		return []string{"extensions"}
	}
	return nil
}

// LockViolations compares an update against the stored job and lists the
// locked fields it would change. Locks come from the stored state: a voucher
// must be cleared in its own save before the amounts it covers can move.
func LockViolations(stored, updated Job) []string {
	var out []string
	seen := map[string]bool{}
	flag := func(field string) {
		if !seen[field] {
			seen[field] = true
			out = append(out, field)
		}
	}
	for _, kind := range VoucherKinds {
		if stored.Voucher(kind).State() != VoucherRecorded {
			continue
		}
		for _, field := range LockedFields(kind) {
			if fieldChanged(field, stored, updated) {
				flag(field)
			}
		}
	}
	for i, ext := range stored.Extensions {
		if !ext.Paid() {
			continue
		}
		if i >= len(updated.Extensions) || !extensionAmountsEqual(ext, updated.Extensions[i]) {
			flag(fmt.Sprintf("extensions[%d]", i))
		}
	}
	return out
}

func fieldChanged(field string, a, b Job) bool {
	switch field {
	case "localChargeTotal":
		return !a.LocalChargeTotal.Equal(b.LocalChargeTotal)
	case "thuCuoc":
		return !a.DepositAmount.Equal(b.DepositAmount)
	case "cost":
		return !a.Cost.Equal(b.Cost)
	case "extensions":
		if len(a.Extensions) != len(b.Extensions) {
			return true
		}
		for i := range a.Extensions {
			if !extensionAmountsEqual(a.Extensions[i], b.Extensions[i]) {
				return true
			}
		}
	}
	return false
}

func extensionAmountsEqual(a, b Extension) bool {
	return a.Net.Equal(b.Net) && a.Vat.Equal(b.Vat) && a.Total.Equal(b.Total)
}
