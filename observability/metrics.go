package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type httpMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics

	minterMetricsOnce sync.Once
	minterRegistry    *MinterMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// HTTP returns the lazily-initialised registry for the gateway's API surface.
func HTTP() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "minter",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "minter",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "minter",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected by the rate limiter.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(httpRegistry.requests, httpRegistry.latency, httpRegistry.throttles)
	})
	return httpRegistry
}

// Observe records the outcome of an API request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *httpMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.requests.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable strings
// such as "rate_limit".
func (m *httpMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// MinterMetrics bundles collectors for issuance outcomes and quota utilisation.
type MinterMetrics struct {
	operations  *prometheus.CounterVec
	minted      *prometheus.CounterVec
	truncations prometheus.Counter
	dailyUse    prometheus.Gauge
	dailyRatio  prometheus.Gauge
	active      prometheus.Gauge
}

// Minter returns the singleton metrics registry for the issuance engine.
func Minter() *MinterMetrics {
	minterMetricsOnce.Do(func() {
		minterRegistry = &MinterMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "minter",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Count of gateway operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			minted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "minter",
				Subsystem: "engine",
				Name:      "minted_total",
				Help:      "Total token units granted segmented by share (user or referral).",
			}, []string{"share"}),
			truncations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "minter",
				Subsystem: "engine",
				Name:      "truncations_total",
				Help:      "Count of mints reduced by the per-account cap.",
			}),
			dailyUse: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "minter",
				Subsystem: "engine",
				Name:      "daily_use",
				Help:      "Token units counted against the global cap for the current day.",
			}),
			dailyRatio: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "minter",
				Subsystem: "engine",
				Name:      "daily_utilization_ratio",
				Help:      "Fraction of the global daily cap consumed.",
			}),
			active: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "minter",
				Subsystem: "engine",
				Name:      "active",
				Help:      "1 when minting is enabled, 0 when the admin has deactivated it.",
			}),
		}
		prometheus.MustRegister(
			minterRegistry.operations,
			minterRegistry.minted,
			minterRegistry.truncations,
			minterRegistry.dailyUse,
			minterRegistry.dailyRatio,
			minterRegistry.active,
		)
	})
	return minterRegistry
}

// RecordOperation increments the outcome counter. Outcomes are short stable
// strings such as "ok", "unauthorized" or "quota_exceeded".
func (m *MinterMetrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	if outcome = strings.TrimSpace(outcome); outcome == "" {
		outcome = "unspecified"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordMint adds the granted shares and the truncation flag of one accepted mint.
func (m *MinterMetrics) RecordMint(user, referral *big.Int, truncated bool) {
	if m == nil {
		return
	}
	m.minted.WithLabelValues("user").Add(bigToFloat(user))
	m.minted.WithLabelValues("referral").Add(bigToFloat(referral))
	if truncated {
		m.truncations.Inc()
	}
}

// RecordDailyUse updates the global cap gauges.
func (m *MinterMetrics) RecordDailyUse(used, quota *big.Int) {
	if m == nil {
		return
	}
	usedVal := bigToFloat(used)
	m.dailyUse.Set(usedVal)
	ratio := 0.0
	if quotaVal := bigToFloat(quota); quotaVal > 0 {
		ratio = math.Min(usedVal/quotaVal, 1)
	}
	m.dailyRatio.Set(ratio)
}

// SetActive mirrors the active flag.
func (m *MinterMetrics) SetActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.active.Set(1)
		return
	}
	m.active.Set(0)
}

// LedgerMetrics tracks outbound mint calls to the token ledger.
type LedgerMetrics struct {
	calls      *prometheus.CounterVec
	latency    prometheus.Histogram
	queueDepth prometheus.Gauge
}

// Ledger returns the singleton metrics registry for ledger dispatch.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "minter",
				Subsystem: "ledger",
				Name:      "calls_total",
				Help:      "Outbound ledger mint calls segmented by outcome.",
			}, []string{"outcome"}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "minter",
				Subsystem: "ledger",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for ledger mint calls.",
				Buckets:   prometheus.DefBuckets,
			}),
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "minter",
				Subsystem: "ledger",
				Name:      "queue_depth",
				Help:      "Mint calls waiting for a dispatcher worker.",
			}),
		}
		prometheus.MustRegister(ledgerRegistry.calls, ledgerRegistry.latency, ledgerRegistry.queueDepth)
	})
	return ledgerRegistry
}

// ObserveCall records one dispatched call.
func (m *LedgerMetrics) ObserveCall(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(outcome).Inc()
	m.latency.Observe(d.Seconds())
}

// SetQueueDepth publishes the number of pending calls.
func (m *LedgerMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
