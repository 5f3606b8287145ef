package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "branchdesk_store_operations_total",
		Help: "Document store operations by collection, operation and result",
	}, []string{"collection", "op", "result"})

	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "branchdesk_active_subscriptions",
		Help: "Live collection subscriptions currently attached",
	}, []string{"collection"})

	SnapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "branchdesk_snapshots_delivered_total",
		Help: "Full collection snapshots handed to subscribers",
	}, []string{"collection"})

	SubscriptionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "branchdesk_subscription_errors_total",
		Help: "Errors reported by live subscriptions",
	}, []string{"collection"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "branchdesk_uploads_total",
		Help: "Image uploads by result",
	}, []string{"result"})

	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "branchdesk_live_sessions",
		Help: "Connected dashboard sessions",
	})
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
