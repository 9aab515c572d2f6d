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

type apiMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	apiMetricsOnce sync.Once
	apiRegistry    *apiMetrics

	cdpMetricsOnce sync.Once
	cdpRegistry    *CDPMetrics

	poolMetricsOnce sync.Once
	poolRegistry    *StabilityPoolMetrics

	oracleMetricsOnce sync.Once
	oracleRegistry    *OracleMetrics
)

// API returns the lazily-initialised metrics registry for the HTTP layer's
// request/error/latency instrumentation.
func API() *apiMetrics {
	apiMetricsOnce.Do(func() {
		apiRegistry = &apiMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "xasset",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total HTTP requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "xasset",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total HTTP errors segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "xasset",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for HTTP handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(apiRegistry.requests, apiRegistry.errors, apiRegistry.latency)
	})
	return apiRegistry
}

// Observe records the outcome of an HTTP request.
func (m *apiMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// CDPMetrics tracks the health of the collateralized debt position engine.
type CDPMetrics struct {
	opened         prometheus.Counter
	frozen         prometheus.Counter
	liquidated     *prometheus.CounterVec
	totalCollateral prometheus.Gauge
	totalDebt      prometheus.Gauge
}

// CDP returns the singleton CDP metrics registry.
func CDP() *CDPMetrics {
	cdpMetricsOnce.Do(func() {
		cdpRegistry = &CDPMetrics{
			opened: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "xasset",
				Subsystem: "cdp",
				Name:      "opened_total",
				Help:      "Count of CDPs opened.",
			}),
			frozen: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "xasset",
				Subsystem: "cdp",
				Name:      "frozen_total",
				Help:      "Count of CDPs frozen due to insolvency.",
			}),
			liquidated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "xasset",
				Subsystem: "cdp",
				Name:      "liquidated_total",
				Help:      "Count of liquidations segmented by whether they fully closed the CDP.",
			}, []string{"closed"}),
			totalCollateral: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "xasset",
				Subsystem: "cdp",
				Name:      "total_collateral",
				Help:      "Sum of collateral locked across all open CDPs, in collateral-asset native units.",
			}),
			totalDebt: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "xasset",
				Subsystem: "cdp",
				Name:      "total_debt",
				Help:      "Sum of outstanding principal plus accrued interest across all open CDPs.",
			}),
		}
		prometheus.MustRegister(
			cdpRegistry.opened,
			cdpRegistry.frozen,
			cdpRegistry.liquidated,
			cdpRegistry.totalCollateral,
			cdpRegistry.totalDebt,
		)
	})
	return cdpRegistry
}

// RecordOpened increments the opened-CDP counter.
func (m *CDPMetrics) RecordOpened() {
	if m == nil {
		return
	}
	m.opened.Inc()
}

// RecordFrozen increments the frozen-CDP counter.
func (m *CDPMetrics) RecordFrozen() {
	if m == nil {
		return
	}
	m.frozen.Inc()
}

// RecordLiquidation increments the liquidation counter, tagged by whether
// the liquidation fully closed the position or left it Frozen with reduced
// debt.
func (m *CDPMetrics) RecordLiquidation(closed bool) {
	if m == nil {
		return
	}
	m.liquidated.WithLabelValues(fmt.Sprintf("%t", closed)).Inc()
}

// SetTotals updates the protocol-wide collateral and debt gauges.
func (m *CDPMetrics) SetTotals(collateral, debt *big.Int) {
	if m == nil {
		return
	}
	m.totalCollateral.Set(bigToFloat(collateral))
	m.totalDebt.Set(bigToFloat(debt))
}

// StabilityPoolMetrics tracks stability-pool depth and epoch churn.
type StabilityPoolMetrics struct {
	totalStaked prometheus.Gauge
	epoch       prometheus.Gauge
	claims      prometheus.Counter
}

// StabilityPool returns the singleton stability-pool metrics registry.
func StabilityPool() *StabilityPoolMetrics {
	poolMetricsOnce.Do(func() {
		poolRegistry = &StabilityPoolMetrics{
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "xasset",
				Subsystem: "stabilitypool",
				Name:      "total_xasset",
				Help:      "Effective synthetic-asset deposits pooled for liquidation absorption.",
			}),
			epoch: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "xasset",
				Subsystem: "stabilitypool",
				Name:      "epoch",
				Help:      "Current reward-distribution epoch, incremented whenever a liquidation fully drains the pool.",
			}),
			claims: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "xasset",
				Subsystem: "stabilitypool",
				Name:      "claims_total",
				Help:      "Count of staker collateral-reward claims.",
			}),
		}
		prometheus.MustRegister(poolRegistry.totalStaked, poolRegistry.epoch, poolRegistry.claims)
	})
	return poolRegistry
}

// SetTotalStaked updates the pool-wide staked-deposit gauge.
func (m *StabilityPoolMetrics) SetTotalStaked(total *big.Int) {
	if m == nil {
		return
	}
	m.totalStaked.Set(bigToFloat(total))
}

// SetEpoch updates the current epoch gauge.
func (m *StabilityPoolMetrics) SetEpoch(epoch uint64) {
	if m == nil {
		return
	}
	m.epoch.Set(float64(epoch))
}

// RecordClaim increments the claim counter.
func (m *StabilityPoolMetrics) RecordClaim() {
	if m == nil {
		return
	}
	m.claims.Inc()
}

// OracleMetrics tracks price-feed freshness for the collateral and pegged
// symbols the CDP engine reads.
type OracleMetrics struct {
	freshness *prometheus.GaugeVec
}

// Oracle returns the singleton oracle metrics registry.
func Oracle() *OracleMetrics {
	oracleMetricsOnce.Do(func() {
		oracleRegistry = &OracleMetrics{
			freshness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "xasset",
				Subsystem: "oracle",
				Name:      "price_age_seconds",
				Help:      "Age in seconds of the last recorded price for a symbol.",
			}, []string{"symbol"}),
		}
		prometheus.MustRegister(oracleRegistry.freshness)
	})
	return oracleRegistry
}

// RecordFreshness records how stale a symbol's last observed price is.
func (m *OracleMetrics) RecordFreshness(symbol string, age time.Duration) {
	if m == nil {
		return
	}
	m.freshness.WithLabelValues(labelSymbol(symbol)).Set(age.Seconds())
}

func labelSymbol(symbol string) string {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
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
