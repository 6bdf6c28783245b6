// Package metrics exposes Prometheus counters and histograms for the
// gateway's auth and workflow traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OTPSent counts issued OTP challenges.
var OTPSent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "stubblex",
	Name:      "otp_sent_total",
	Help:      "Total OTP challenges issued.",
})

// OTPVerifications counts verification attempts by outcome.
var OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stubblex",
	Name:      "otp_verifications_total",
	Help:      "Total OTP verification attempts.",
}, []string{"outcome"})

// Classifications counts classification submissions by outcome.
var Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stubblex",
	Name:      "classifications_total",
	Help:      "Total classification submissions.",
}, []string{"outcome"})

// ClassificationLatency tracks the inference round trip in seconds.
var ClassificationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "stubblex",
	Name:      "classification_latency_seconds",
	Help:      "Classification request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// UploadsRejected counts uploads bounced by the validator.
var UploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stubblex",
	Name:      "uploads_rejected_total",
	Help:      "Total uploads rejected by validation.",
}, []string{"reason"})

// PriceRefreshes counts price estimate refreshes by outcome, including
// responses discarded as stale.
var PriceRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stubblex",
	Name:      "price_refreshes_total",
	Help:      "Total price estimate refreshes.",
}, []string{"outcome"})

// GuardRedirects counts route-guard redirect decisions by kind.
var GuardRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stubblex",
	Name:      "guard_redirects_total",
	Help:      "Total route guard redirects.",
}, []string{"kind"})
