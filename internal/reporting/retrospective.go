// Package reporting aggregates saga outcomes into retrospective reports for
// the admin surface.
package reporting

import (
	"sync"
	"time"
)

// Outcome is one saga run as seen by reporting.
type Outcome struct {
	Timestamp        time.Time `json:"timestamp"`
	SagaID           string    `json:"sagaId"`
	CustomerID       string    `json:"customerId"`
	Committed        bool      `json:"committed"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	FaultKind        string    `json:"faultKind,omitempty"`
	FailedStep       string    `json:"failedStep,omitempty"`
	RollbackFailures int       `json:"rollbackFailures"`
}

// Report summarizes recorded outcomes.
type Report struct {
	TotalPurchases     int                `json:"totalPurchases"`
	Committed          int                `json:"committed"`
	RolledBack         int                `json:"rolledBack"`
	AmountByCurrency   map[string]float64 `json:"amountByCurrency"`
	FaultBreakdown     map[string]int     `json:"faultBreakdown"`
	FailedStepUsage    map[string]int     `json:"failedStepUsage"`
	RollbackFailures   int                `json:"rollbackFailures"`
	DateFrom           time.Time          `json:"dateFrom"`
	DateTo             time.Time          `json:"dateTo"`
	ProcessingDuration time.Duration      `json:"processingDuration"`
}

// Recorder keeps saga outcomes in memory and renders reports on demand.
// Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record stores one outcome.
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

// Report aggregates everything recorded so far.
func (r *Recorder) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := Report{
		AmountByCurrency: make(map[string]float64),
		FaultBreakdown:   make(map[string]int),
		FailedStepUsage:  make(map[string]int),
	}
	for i, o := range r.outcomes {
		report.TotalPurchases++
		if i == 0 || o.Timestamp.Before(report.DateFrom) {
			report.DateFrom = o.Timestamp
		}
		if o.Timestamp.After(report.DateTo) {
			report.DateTo = o.Timestamp
		}
		report.RollbackFailures += o.RollbackFailures

		if o.Committed {
			report.Committed++
			report.AmountByCurrency[o.Currency] += o.Amount
			continue
		}
		report.RolledBack++
		if o.FaultKind != "" {
			report.FaultBreakdown[o.FaultKind]++
		}
		if o.FailedStep != "" {
			report.FailedStepUsage[o.FailedStep]++
		}
	}
	if report.TotalPurchases > 0 {
		report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)
	}
	return report
}
