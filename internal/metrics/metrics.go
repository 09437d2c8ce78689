package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	SyncRuns        *prometheus.CounterVec
	OrdersUpserted  prometheus.Counter
	WalletUpserted  prometheus.Counter
	ItemsSkipped    *prometheus.CounterVec
	ReconcileFlips  *prometheus.CounterVec
	UpstreamErrors  *prometheus.CounterVec
	ContactsSynced  prometheus.Counter
	FetchPages      *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Total sync orchestrator runs by outcome.",
			}, []string{"platform", "outcome"}),
			OrdersUpserted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_upserted_total",
				Help:      "Total fulfillment orders written to the local cache.",
			}),
			WalletUpserted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wallet_movements_upserted_total",
				Help:      "Total wallet movements written to the local cache.",
			}),
			ItemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_items_skipped_total",
				Help:      "Upstream items skipped during sync by reason.",
			}, []string{"kind", "reason"}),
			ReconcileFlips: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_flips_total",
				Help:      "Order flags flipped by reconciliation.",
			}, []string{"flag"}),
			UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Errors talking to third-party APIs.",
			}, []string{"platform", "kind"}),
			ContactsSynced: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contacts_synced_total",
				Help:      "Total CRM contacts written to the local cache.",
			}),
			FetchPages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_pages_total",
				Help:      "Pages fetched from paginated upstream endpoints.",
			}, []string{"platform", "endpoint"}),
		}

		prometheus.MustRegister(
			metricsInstance.SyncRuns,
			metricsInstance.OrdersUpserted,
			metricsInstance.WalletUpserted,
			metricsInstance.ItemsSkipped,
			metricsInstance.ReconcileFlips,
			metricsInstance.UpstreamErrors,
			metricsInstance.ContactsSynced,
			metricsInstance.FetchPages,
		)
	})
	return metricsInstance
}
