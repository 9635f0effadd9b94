package service

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	OrdersCreated      *prometheus.CounterVec
	OrderCancellations *prometheus.CounterVec
	OrdersMatched      *prometheus.CounterVec
	MatchRunDuration   prometheus.Histogram
	Deposits           *prometheus.CounterVec
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Total order creation attempts.",
			},
			[]string{"side", "status"},
		),
		OrderCancellations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_cancellations_total",
				Help: "Total order cancellation attempts.",
			},
			[]string{"status"},
		),
		OrdersMatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_matched_total",
				Help: "Total orders settled by the matching endpoint.",
			},
			[]string{"side"},
		),
		MatchRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "match_run_duration_seconds",
				Help:    "Duration of a match-orders run in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		Deposits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_deposits_total",
				Help: "Total asset deposit attempts.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.OrdersCreated,
		m.OrderCancellations,
		m.OrdersMatched,
		m.MatchRunDuration,
		m.Deposits,
	)
	return m
}
