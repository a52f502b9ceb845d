package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreRetries counts transactions retried after lock contention.
	StoreRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predlozhka_store_retries_total",
		Help: "Total store transactions retried because the store was busy",
	})

	// StoreUnavailable counts operations that gave up on the store.
	StoreUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predlozhka_store_unavailable_total",
		Help: "Total store operations failed as unavailable by cause",
	}, []string{"cause"})

	PostTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predlozhka_post_transitions_total",
		Help: "Post review attempts by target status and result",
	}, []string{"status", "result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predlozhka_notifications_total",
		Help: "Outbound notifications by kind and result",
	}, []string{"kind", "result"})

	BroadcastDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predlozhka_broadcast_deliveries_total",
		Help: "Mass broadcast deliveries by result",
	}, []string{"result"})

	BotUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predlozhka_bot_updates_total",
		Help: "Handled Telegram updates by handler and result",
	}, []string{"handler", "result"})

	BotUpdateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "predlozhka_bot_update_duration_seconds",
		Help:    "Telegram update handling duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"handler"})
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
