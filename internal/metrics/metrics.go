package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// OrderTransitions counts lifecycle transitions by resulting status.
	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_transitions_total", Help: "Order lifecycle transitions by resulting status."},
		[]string{"status"},
	)
	// WalletTransactions counts ledger entries by type.
	WalletTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wallet_transactions_total", Help: "Wallet ledger entries by type."},
		[]string{"type"},
	)
	// ExpansionTransitions counts matching visibility widenings by target stage.
	ExpansionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_expansion_transitions_total", Help: "Order visibility expansions by target stage."},
		[]string{"stage"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(OrderTransitions)
		Registry.MustRegister(WalletTransactions)
		Registry.MustRegister(ExpansionTransitions)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
