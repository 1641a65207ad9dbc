// Package metrics holds the Prometheus metrics for the vendor
// onboarding workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all workflow metrics. Register once at startup.
type Metrics struct {
	Submissions            *prometheus.CounterVec
	Reviews                *prometheus.CounterVec
	VerificationOutcomes   *prometheus.CounterVec
	VerificationDuration   prometheus.Histogram
	SubmissionsRateLimited prometheus.Counter
	CaptchaFailures        prometheus.Counter
}

// New creates and registers all vendor workflow metrics.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "zerina_vendor_submissions_total",
			Help: "Vendor application submissions by outcome",
		}, []string{"outcome"}),
		Reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "zerina_vendor_reviews_total",
			Help: "Administrative review decisions",
		}, []string{"decision"}),
		VerificationOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "zerina_vendor_verification_outcomes_total",
			Help: "Identity verification outcomes by mapped status",
		}, []string{"status"}),
		VerificationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "zerina_vendor_verification_duration_seconds",
			Help:    "Latency of identity provider submissions",
			Buckets: prometheus.DefBuckets,
		}),
		SubmissionsRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zerina_vendor_submissions_rate_limited_total",
			Help: "Submissions blocked by the rate limiter",
		}),
		CaptchaFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zerina_vendor_captcha_failures_total",
			Help: "Submissions blocked by captcha verification",
		}),
	}
}
