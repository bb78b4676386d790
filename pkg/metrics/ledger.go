package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records billing ledger activity.
type LedgerMetrics struct {
	paymentsRecorded *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	paymentsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_recorded",
		Help: "Payments recorded against subscriptions.",
	}, []string{"currency"})
	reg.MustRegister(paymentsRecorded)
	return &LedgerMetrics{paymentsRecorded: paymentsRecorded}
}

// IncPaymentRecorded increments the payment counter for the currency.
func (l *LedgerMetrics) IncPaymentRecorded(currency string) {
	if l == nil || l.paymentsRecorded == nil {
		return
	}
	l.paymentsRecorded.WithLabelValues(normalizeLabel(currency)).Inc()
}
