package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "routing_engine", Name: "store_operations_total", Help: "Document store operations by operation, collection and status."},
		[]string{"op", "collection", "status"},
	)
	StoreTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "routing_engine", Name: "store_transactions_total", Help: "Store transactions by outcome (ok, aborted, error)."},
		[]string{"status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(StoreOps)
	reg.MustRegister(StoreTransactions)
}
