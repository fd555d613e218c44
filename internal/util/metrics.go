package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CoinsInsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coins_inserted_total",
		Help: "Total number of coins inserted by customers",
	}, []string{"denomination"})

	OrdersFulfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_fulfilled_total",
		Help: "Total number of items dispensed",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected purchase attempts",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	ChangeCoinsDispensedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_coins_dispensed_total",
		Help: "Total number of coins dispensed as change",
	}, []string{"denomination"})

	PartialChangeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partial_change_total",
		Help: "Total number of purchases where change could not be fully dispensed",
	})

	FulfillmentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_fulfillment_latency_seconds",
		Help:    "Latency of purchase fulfillment",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
