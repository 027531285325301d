package shipment

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestVoucherState(t *testing.T) {
	var missing *Voucher
	require.Equal(t, VoucherNotCreated, missing.State())
	require.Equal(t, VoucherPending, (&Voucher{Desc: "draft"}).State())
	require.Equal(t, VoucherRecorded, (&Voucher{DocNo: "NTTK00001"}).State())
}

func TestVoucherKindPrefix(t *testing.T) {
	require.Equal(t, PrefixReceipt, KindLocalChargeReceipt.Prefix())
	require.Equal(t, PrefixReceipt, KindExtensionPayment.Prefix())
	require.Equal(t, PrefixPayment, KindPaymentOut.Prefix())
	require.Equal(t, PrefixPayment, KindDepositRefund.Prefix())

	kind, err := ParseVoucherKind("deposit_out")
	require.NoError(t, err)
	require.Equal(t, KindDepositOut, kind)
	_, err = ParseVoucherKind("bogus")
	require.Error(t, err)
}

func TestDocRefsCoversEverySource(t *testing.T) {
	job := Job{
		LocalChargeReceipt: &Voucher{DocNo: "NTTK00001"},
		PaymentOut:         &Voucher{DocNo: "UNC00002"},
		DepositReceipt:     &Voucher{},
		Extensions:         []Extension{{AmisDocNo: "NTTK00003"}, {}},
		Refunds:            []Voucher{{DocNo: "UNC00004"}},
		AdditionalReceipts: []Voucher{{DocNo: " NTTK00005 "}},
	}
	refs := job.DocRefs()
	require.Equal(t, []DocRef{
		{Field: "lc_receipt", Group: "lc_receipt", DocNo: "NTTK00001"},
		{Field: "payment_out", Group: "payment_out", DocNo: "UNC00002"},
		{Field: "extensions[0]", Group: GroupExtension, DocNo: "NTTK00003"},
		{Field: "refunds[0]", Group: GroupRefund, DocNo: "UNC00004"},
		{Field: "additionalReceipts[0]", Group: GroupAdditionalReceipt, DocNo: "NTTK00005"},
	}, refs)
}

func TestSharedDocAllowed(t *testing.T) {
	require.True(t, SharedDocAllowed("lc_receipt", "lc_receipt"))
	require.True(t, SharedDocAllowed("lc_receipt", GroupExternalReceipt))
	require.True(t, SharedDocAllowed(GroupExternalReceipt, "deposit_receipt"))
	require.False(t, SharedDocAllowed("lc_receipt", "deposit_receipt"))
	require.False(t, SharedDocAllowed(GroupExternalReceipt, GroupExternalReceipt))
}

func TestLocalChargePaid(t *testing.T) {
	require.False(t, Job{}.LocalChargePaid())
	require.False(t, Job{Bank: "VCB"}.LocalChargePaid())
	require.True(t, Job{Bank: "VCB", LocalChargeDate: "2024-03-01"}.LocalChargePaid())
	require.True(t, Job{LocalChargeReceipt: &Voucher{DocNo: "NTTK00009"}}.LocalChargePaid())
}

func TestInvoiceAmount(t *testing.T) {
	withInvoice := Invoice{Net: decimal.NewFromInt(1000), Vat: decimal.NewFromInt(80), Total: decimal.NewFromInt(5)}
	require.True(t, withInvoice.Amount().Equal(decimal.NewFromInt(1080)))

	flat := Invoice{Net: decimal.NewFromInt(1000), Total: decimal.NewFromInt(700), NoInvoice: true}
	require.True(t, flat.Amount().Equal(decimal.NewFromInt(700)))
}

func TestCostDetailsNormalizeNil(t *testing.T) {
	var details *CostDetails
	got := details.Normalize()
	require.NotNil(t, got.LocalCharge)
	require.Equal(t, "", got.LocalCharge.Invoice)
	require.True(t, got.LocalCharge.Total.IsZero())
	require.NotNil(t, got.ExtensionCosts)
	require.Empty(t, got.ExtensionCosts)
	require.NotNil(t, got.Deposits)
	require.Empty(t, got.Deposits)
}

func TestCostDetailsNormalizeDoesNotAlias(t *testing.T) {
	details := &CostDetails{Deposits: []Deposit{{Amount: decimal.NewFromInt(10)}}}
	got := details.Normalize()
	got.Deposits[0].Amount = decimal.NewFromInt(99)
	require.True(t, details.Deposits[0].Amount.Equal(decimal.NewFromInt(10)))
}

func TestCostDetailsLenientDecode(t *testing.T) {
	raw := `{"id":"j1","jobCode":"J1","booking":"B1","bookingCostDetails":{
		"localCharge":{"invoice":"INV-1","net":1000,"vat":100},
		"extensionCosts":"not-a-list",
		"deposits":[{"amount":500,"date":"2024-01-02"}]
	}}`
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	require.NotNil(t, job.BookingCostDetails)
	require.Equal(t, "INV-1", job.BookingCostDetails.LocalCharge.Invoice)
	require.Nil(t, job.BookingCostDetails.ExtensionCosts)
	require.Len(t, job.BookingCostDetails.Deposits, 1)

	var scalar Job
	require.NoError(t, json.Unmarshal([]byte(`{"jobCode":"J2","bookingCostDetails":"garbage"}`), &scalar))
	normalized := scalar.BookingCostDetails.Normalize()
	require.NotNil(t, normalized.LocalCharge)
}

func TestCostDetailsEqual(t *testing.T) {
	a := &CostDetails{LocalCharge: &Invoice{Invoice: "A", Net: decimal.NewFromInt(10)}}
	b := &CostDetails{LocalCharge: &Invoice{Invoice: "A", Net: decimal.RequireFromString("10.00")}, Deposits: []Deposit{}}
	require.True(t, a.Equal(b))

	c := &CostDetails{LocalCharge: &Invoice{Invoice: "B", Net: decimal.NewFromInt(10)}}
	require.False(t, a.Equal(c))

	var none *CostDetails
	require.True(t, none.Equal(&CostDetails{}))
}

func TestLockViolations(t *testing.T) {
	stored := Job{
		Cost:               decimal.NewFromInt(100),
		LocalChargeTotal:   decimal.NewFromInt(500),
		LocalChargeReceipt: &Voucher{DocNo: "NTTK00001"},
		DepositReceipt:     &Voucher{},
		DepositAmount:      decimal.NewFromInt(10),
		Extensions:         []Extension{{Net: decimal.NewFromInt(5), AmisDocNo: "NTTK00002"}},
	}

	updated := stored
	updated.Cost = decimal.NewFromInt(150)
	updated.DepositAmount = decimal.NewFromInt(20)
	require.Empty(t, LockViolations(stored, updated))

	updated.LocalChargeTotal = decimal.NewFromInt(400)
	updated.Extensions = []Extension{{Net: decimal.NewFromInt(6), AmisDocNo: "NTTK00002"}}
	require.Equal(t, []string{"localChargeTotal", "extensions[0]"}, LockViolations(stored, updated))
}

func TestValidateJob(t *testing.T) {
	require.NoError(t, ValidateJob(Job{JobCode: "HPH-001"}))

	err := ValidateJob(Job{JobCode: "HPH 001", Cont20: -1, Cost: decimal.NewFromInt(-5)})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalid))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "must not contain whitespace", verr.Fields["jobCode"])
	require.Contains(t, verr.Fields, "cont20")
	require.Contains(t, verr.Fields, "cost")

	err = ValidateJob(Job{})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "is required", verr.Fields["jobCode"])
}

func TestValidateReceipt(t *testing.T) {
	require.NoError(t, ValidateReceipt(Receipt{DocNo: "NTTK00010", Date: "2024-02-01", Amount: decimal.NewFromInt(1)}))
	err := ValidateReceipt(Receipt{DocNo: "NTTK 10"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "docNo")
	require.Contains(t, verr.Fields, "date")
	require.Contains(t, verr.Fields, "amount")
}

func TestDeriveProfit(t *testing.T) {
	job := Job{Cost: decimal.NewFromInt(200), Sell: decimal.NewFromInt(350), Profit: decimal.NewFromInt(1)}
	job.DeriveProfit()
	require.True(t, job.Profit.Equal(decimal.NewFromInt(150)))
}
