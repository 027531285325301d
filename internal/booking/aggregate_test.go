package booking

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/shipment"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sampleJobs() []shipment.Job {
	return []shipment.Job{
		{ID: "j1", JobCode: "J1", Booking: "B1", Month: "2024-03", Line: "MSC", Cost: d(100), Sell: d(150), Profit: d(50), Cont20: 1},
		{ID: "j2", JobCode: "J2", Booking: "B9", Month: "2024-03", Line: "ONE", Cost: d(999), Sell: d(999)},
		{ID: "j3", JobCode: "J3", Booking: "B1", Month: "2024-04", Line: "CMA", Cost: d(200), Sell: d(300), Profit: d(100), Cont40: 2},
	}
}

func TestAggregateSums(t *testing.T) {
	summary := Aggregate(sampleJobs(), "B1")
	require.NotNil(t, summary)
	require.Equal(t, 2, summary.JobCount)
	require.True(t, summary.TotalCost.Equal(d(300)))
	require.True(t, summary.TotalSell.Equal(d(450)))
	require.True(t, summary.TotalProfit.Equal(d(150)))
	require.Equal(t, 1, summary.TotalCont20)
	require.Equal(t, 2, summary.TotalCont40)
	require.Equal(t, "2024-03", summary.Month)
	require.Equal(t, "MSC", summary.Line)
	require.Equal(t, []string{"j1", "j3"}, []string{summary.Jobs[0].ID, summary.Jobs[1].ID})
}

func TestAggregateUnknownBooking(t *testing.T) {
	require.Nil(t, Aggregate(sampleJobs(), "NONEXISTENT"))
	require.Nil(t, Aggregate(nil, "B1"))
}

func TestAggregateExactMatchOnly(t *testing.T) {
	require.Nil(t, Aggregate(sampleJobs(), " B1"))
	require.Nil(t, Aggregate(sampleJobs(), "b1"))
}

func TestAggregateDefaultsMissingCostDetails(t *testing.T) {
	jobs := []shipment.Job{{ID: "x", Booking: "B2"}}
	summary := Aggregate(jobs, "B2")
	require.NotNil(t, summary)
	lc := summary.CostDetails.LocalCharge
	require.NotNil(t, lc)
	require.Equal(t, "", lc.Invoice)
	require.Equal(t, "", lc.Date)
	require.True(t, lc.Net.IsZero())
	require.True(t, lc.Vat.IsZero())
	require.True(t, lc.Total.IsZero())
	require.NotNil(t, summary.CostDetails.ExtensionCosts)
	require.Empty(t, summary.CostDetails.ExtensionCosts)
	require.NotNil(t, summary.CostDetails.Deposits)
	require.Empty(t, summary.CostDetails.Deposits)
}

func TestAggregateRepairsMalformedCostDetails(t *testing.T) {
	var job shipment.Job
	raw := `{"id":"m1","booking":"B3","bookingCostDetails":{"extensionCosts":{"a":1},"deposits":"none"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &job))

	summary := Aggregate([]shipment.Job{job}, "B3")
	require.NotNil(t, summary)
	require.NotNil(t, summary.CostDetails.LocalCharge)
	require.Empty(t, summary.CostDetails.ExtensionCosts)
	require.Empty(t, summary.CostDetails.Deposits)
}

func TestAggregateIsDeterministicAndPure(t *testing.T) {
	jobs := sampleJobs()
	jobs[0].BookingCostDetails = &shipment.CostDetails{Deposits: []shipment.Deposit{{Amount: d(5)}}}
	before, err := json.Marshal(jobs)
	require.NoError(t, err)

	first := Aggregate(jobs, "B1")
	second := Aggregate(jobs, "B1")
	require.Equal(t, first, second)

	first.CostDetails.Deposits[0].Amount = d(1000)
	after, err := json.Marshal(jobs)
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestAggregateAppendOnlyAddsThatJob(t *testing.T) {
	jobs := sampleJobs()
	base := Aggregate(jobs, "B1")
	extra := shipment.Job{ID: "j4", Booking: "B1", Cost: d(70), Sell: d(95), Profit: d(25), Cont20: 3, Cont40: 1}
	grown := Aggregate(append(jobs, extra), "B1")

	require.Equal(t, base.JobCount+1, grown.JobCount)
	require.True(t, grown.TotalCost.Sub(base.TotalCost).Equal(extra.Cost))
	require.True(t, grown.TotalSell.Sub(base.TotalSell).Equal(extra.Sell))
	require.True(t, grown.TotalProfit.Sub(base.TotalProfit).Equal(extra.Profit))
	require.Equal(t, extra.Cont20, grown.TotalCont20-base.TotalCont20)
	require.Equal(t, extra.Cont40, grown.TotalCont40-base.TotalCont40)
}

func TestAggregateFirstJobWinsAndDivergenceIsReported(t *testing.T) {
	jobs := []shipment.Job{
		{ID: "a", Booking: "B5", BookingCostDetails: &shipment.CostDetails{LocalCharge: &shipment.Invoice{Invoice: "INV-1", Net: d(1000)}}},
		{ID: "b", Booking: "B5"},
		{ID: "c", Booking: "B5", BookingCostDetails: &shipment.CostDetails{LocalCharge: &shipment.Invoice{Invoice: "INV-2", Net: d(900)}}},
	}
	summary := Aggregate(jobs, "B5")
	require.Equal(t, "INV-1", summary.CostDetails.LocalCharge.Invoice)
	require.Equal(t, []string{"c"}, summary.DivergentJobIDs)
	require.True(t, summary.LocalChargeInvoiced().Equal(d(1000)))
}

func TestAggregateWithAuthoritativeDetails(t *testing.T) {
	jobs := []shipment.Job{
		{ID: "a", Booking: "B6", BookingCostDetails: &shipment.CostDetails{LocalCharge: &shipment.Invoice{Net: d(1)}}},
		{ID: "b", Booking: "B6"},
	}
	stored := &shipment.CostDetails{
		LocalCharge:            &shipment.Invoice{Invoice: "INV-9", Net: d(1000), Vat: d(100)},
		AdditionalLocalCharges: []shipment.Invoice{{Total: d(50), NoInvoice: true}},
		Deposits:               []shipment.Deposit{{Amount: d(300)}, {Amount: d(200)}},
	}
	summary := AggregateWith(jobs, "B6", stored)
	require.Equal(t, "INV-9", summary.CostDetails.LocalCharge.Invoice)
	require.Equal(t, []string{"a"}, summary.DivergentJobIDs)
	require.True(t, summary.LocalChargeInvoiced().Equal(d(1150)))
	require.True(t, summary.DepositTotal().Equal(d(500)))
	require.True(t, summary.HasDeposits())
}

func TestDivergent(t *testing.T) {
	jobs := []shipment.Job{
		{ID: "a", Booking: "B1", BookingCostDetails: &shipment.CostDetails{LocalCharge: &shipment.Invoice{Net: d(1)}}},
		{ID: "b", Booking: "B1", BookingCostDetails: &shipment.CostDetails{LocalCharge: &shipment.Invoice{Net: d(2)}}},
		{ID: "c", Booking: "B2", BookingCostDetails: &shipment.CostDetails{}},
		{ID: "d", Booking: "B2"},
		{ID: "e"},
	}
	require.Equal(t, map[string][]string{"B1": {"b"}}, Divergent(jobs, nil))

	stored := map[string]*shipment.CostDetails{
		"B1": {LocalCharge: &shipment.Invoice{Net: d(2)}},
		"B2": {Deposits: []shipment.Deposit{{Amount: d(7)}}},
	}
	require.Equal(t, map[string][]string{"B1": {"a"}, "B2": {"c"}}, Divergent(jobs, stored))
}
