package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReport_Empty(t *testing.T) {
	report := NewRecorder().Report()

	assert.Zero(t, report.TotalPurchases)
	assert.Empty(t, report.AmountByCurrency)
	assert.Zero(t, report.ProcessingDuration)
}

func TestReport_Aggregates(t *testing.T) {
	r := NewRecorder()
	base := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)

	r.Record(Outcome{Timestamp: base, SagaID: "s1", Committed: true, Amount: 25, Currency: "USD"})
	r.Record(Outcome{Timestamp: base.Add(time.Hour), SagaID: "s2", Committed: true, Amount: 10, Currency: "USD"})
	r.Record(Outcome{Timestamp: base.Add(2 * time.Hour), SagaID: "s3", Committed: true, Amount: 900, Currency: "JPY"})
	r.Record(Outcome{
		Timestamp: base.Add(3 * time.Hour), SagaID: "s4",
		FaultKind: "AlreadyExists", FailedStep: "place-order",
	})
	r.Record(Outcome{
		Timestamp: base.Add(4 * time.Hour), SagaID: "s5",
		FaultKind: "DownstreamServiceError", FailedStep: "place-order", RollbackFailures: 1,
	})

	report := r.Report()

	assert.Equal(t, 5, report.TotalPurchases)
	assert.Equal(t, 3, report.Committed)
	assert.Equal(t, 2, report.RolledBack)
	assert.Equal(t, 35.0, report.AmountByCurrency["USD"])
	assert.Equal(t, 900.0, report.AmountByCurrency["JPY"])
	assert.Equal(t, 1, report.FaultBreakdown["AlreadyExists"])
	assert.Equal(t, 1, report.FaultBreakdown["DownstreamServiceError"])
	assert.Equal(t, 2, report.FailedStepUsage["place-order"])
	assert.Equal(t, 1, report.RollbackFailures)
	assert.Equal(t, base, report.DateFrom)
	assert.Equal(t, base.Add(4*time.Hour), report.DateTo)
	assert.Equal(t, 4*time.Hour, report.ProcessingDuration)
}

func TestReport_FailedAmountsAreNotRevenue(t *testing.T) {
	r := NewRecorder()
	r.Record(Outcome{Timestamp: time.Now(), SagaID: "s1", Amount: 50, Currency: "USD", FaultKind: "PaymentGatewayPaymentError"})

	report := r.Report()

	assert.Zero(t, report.AmountByCurrency["USD"])
	assert.Equal(t, 1, report.RolledBack)
}
