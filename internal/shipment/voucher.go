package shipment

import (
	"fmt"
	"strings"
)

// Accounting document prefixes understood by AMIS.
const (
	PrefixReceipt = "NTTK"
	PrefixPayment = "UNC"
)

// VoucherState is the lifecycle of an accounting voucher attached to a job.
type VoucherState string

const (
	VoucherNotCreated VoucherState = "NOT_CREATED"
	VoucherPending    VoucherState = "PENDING"
	VoucherRecorded   VoucherState = "RECORDED"
)

// Voucher links a job to an AMIS accounting document.
type Voucher struct {
	DocNo string `json:"docNo,omitempty"`
	Date  string `json:"date,omitempty"`
	Desc  string `json:"desc,omitempty"`
}

// State derives the voucher lifecycle state. A nil voucher was never created.
func (v *Voucher) State() VoucherState {
	switch {
	case v == nil:
		return VoucherNotCreated
	case strings.TrimSpace(v.DocNo) == "":
		return VoucherPending
	default:
		return VoucherRecorded
	}
}

// VoucherKind names one of the voucher slots carried by a job.
type VoucherKind string

const (
	KindLocalChargeReceipt VoucherKind = "lc_receipt"
	KindDepositReceipt     VoucherKind = "deposit_receipt"
	KindPaymentOut         VoucherKind = "payment_out"
	KindDepositOut         VoucherKind = "deposit_out"
	KindDepositRefund      VoucherKind = "deposit_refund"
	KindExtensionPayment   VoucherKind = "extension_payment"
)

// VoucherKinds lists every voucher slot in a stable order.
var VoucherKinds = []VoucherKind{
	KindLocalChargeReceipt,
	KindDepositReceipt,
	KindPaymentOut,
	KindDepositOut,
	KindDepositRefund,
	KindExtensionPayment,
}

// ParseVoucherKind validates a kind received from a client.
func ParseVoucherKind(raw string) (VoucherKind, error) {
	for _, kind := range VoucherKinds {
		if string(kind) == raw {
			return kind, nil
		}
	}
	return "", fmt.Errorf("shipment: unknown voucher kind %q", raw)
}

// Prefix returns the document number prefix used for the kind.
func (k VoucherKind) Prefix() string {
	switch k {
	case KindPaymentOut, KindDepositOut, KindDepositRefund:
		return PrefixPayment
	default:
		return PrefixReceipt
	}
}

// Voucher returns the voucher stored in the given slot, nil when absent.
func (j *Job) Voucher(kind VoucherKind) *Voucher {
	switch kind {
	case KindLocalChargeReceipt:
		return j.LocalChargeReceipt
	case KindDepositReceipt:
		return j.DepositReceipt
	case KindPaymentOut:
		return j.PaymentOut
	case KindDepositOut:
		return j.DepositOut
	case KindDepositRefund:
		return j.DepositRefund
	case KindExtensionPayment:
		return j.ExtensionPayment
	}
	return nil
}

// Reference groups that are not voucher slots.
const (
	GroupExtension         = "extension"
	GroupRefund            = "refund"
	GroupAdditionalReceipt = "additional_receipt"
	GroupExternalReceipt   = "receipt"
)

// DocRef is a document number found on a job, labelled with the field holding
// it. References in the same Group may share one document: a single receipt
// can settle the local charge of several jobs.
type DocRef struct {
	Field string
	Group string
	DocNo string
}

// SharedDocAllowed reports whether references of groups a and b may carry the
// same document number. An external receipt may settle any job voucher, but
// two external receipts never share a number.
func SharedDocAllowed(a, b string) bool {
	if a == b {
		return a != GroupExternalReceipt
	}
	return a == GroupExternalReceipt || b == GroupExternalReceipt
}

// DocRefs lists every non-empty document number held by the job: the voucher
// slots, extension documents, refunds and additional receipts.
func (j *Job) DocRefs() []DocRef {
	var refs []DocRef
	add := func(field, group, docNo string) {
		docNo = strings.TrimSpace(docNo)
		if docNo != "" {
			refs = append(refs, DocRef{Field: field, Group: group, DocNo: docNo})
		}
	}
	for _, kind := range VoucherKinds {
		if v := j.Voucher(kind); v != nil {
			add(string(kind), string(kind), v.DocNo)
		}
	}
	for i, ext := range j.Extensions {
		add(fmt.Sprintf("extensions[%d]", i), GroupExtension, ext.AmisDocNo)
	}
	for i, v := range j.Refunds {
		add(fmt.Sprintf("refunds[%d]", i), GroupRefund, v.DocNo)
	}
	for i, v := range j.AdditionalReceipts {
		add(fmt.Sprintf("additionalReceipts[%d]", i), GroupAdditionalReceipt, v.DocNo)
	}
	return refs
}
