package commerce

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operatorAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "operator_alerts_total",
	Help: "Operator alerts raised for failures with no automated recovery.",
}, []string{"subject"})

// OperatorAlertsTotal exposes the alert counter for tests.
func OperatorAlertsTotal() *prometheus.CounterVec { return operatorAlertsTotal }

// LogNotifier is the default OperatorNotifier: structured log lines plus an
// alert counter scraped by the operator dashboard.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Alert(ctx context.Context, subject string, err error, details map[string]string) {
	operatorAlertsTotal.WithLabelValues(subject).Inc()
	log.Printf("OPERATOR ALERT [%s]: %v details=%v", subject, err, details)
}
