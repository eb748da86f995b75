package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fund engine metrics collector

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all fund metrics
type Collector struct {
	// Submission metrics
	DepositsTotal     prometheus.Counter
	WithdrawalsTotal  prometheus.Counter
	SwapsTotal        prometheus.Counter
	SubmissionErrors  *prometheus.CounterVec
	SubmissionLatency *prometheus.HistogramVec

	// Fund state metrics
	FundValue         prometheus.Gauge
	ShareSupply       prometheus.Gauge
	CreditOutstanding prometheus.Gauge
	LockedShares      prometheus.Gauge

	// Fee metrics
	ProtocolFeesTotal   prometheus.Counter
	ManagementFeeMints  prometheus.Counter
	BuybackFeesTotal    prometheus.Counter

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec
	WSSubscriptions     prometheus.Gauge

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	APIErrorsTotal    *prometheus.CounterVec
	RateLimitHits     *prometheus.CounterVec

	// System metrics
	BlockHeight prometheus.Gauge
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	// Submission metrics
	c.DepositsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "submissions",
			Name:      "deposits_total",
			Help:      "Total number of accepted deposits",
		},
	)

	c.WithdrawalsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "submissions",
			Name:      "withdrawals_total",
			Help:      "Total number of accepted withdrawals",
		},
	)

	c.SwapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "submissions",
			Name:      "swaps_total",
			Help:      "Total number of executed swaps",
		},
	)

	c.SubmissionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "submissions",
			Name:      "errors_total",
			Help:      "Total number of rejected submissions",
		},
		[]string{"operation"},
	)

	c.SubmissionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fundd",
			Subsystem: "submissions",
			Name:      "latency_ms",
			Help:      "Submission processing latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"operation"},
	)

	// Fund state metrics
	c.FundValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundd",
			Subsystem: "fund",
			Name:      "total_value",
			Help:      "Declared fund value in valuation units",
		},
	)

	c.ShareSupply = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundd",
			Subsystem: "fund",
			Name:      "share_supply",
			Help:      "Total share supply",
		},
	)

	c.CreditOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundd",
			Subsystem: "fund",
			Name:      "credit_outstanding",
			Help:      "Native units held as claimable pull-payment credits",
		},
	)

	c.LockedShares = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundd",
			Subsystem: "fund",
			Name:      "locked_shares",
			Help:      "Shares currently under deposit cooldown",
		},
	)

	// Fee metrics
	c.ProtocolFeesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "fees",
			Name:      "protocol_total",
			Help:      "Native units forwarded to the protocol fee vault",
		},
	)

	c.ManagementFeeMints = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "fees",
			Name:      "management_mints_total",
			Help:      "Number of management fee mints",
		},
	)

	c.BuybackFeesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "fees",
			Name:      "buyback_total",
			Help:      "Native units forwarded as buyback fees",
		},
	)

	// WebSocket metrics
	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundd",
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages broadcast",
		},
		[]string{"channel"},
	)

	c.WSSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundd",
			Subsystem: "websocket",
			Name:      "subscriptions",
			Help:      "Number of active channel subscriptions",
		},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fundd",
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.APIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Total API errors",
		},
		[]string{"path", "status"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundd",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"limit_type"},
	)

	// System metrics
	c.BlockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundd",
			Subsystem: "system",
			Name:      "block_height",
			Help:      "Current simulated block height",
		},
	)

	c.register()
	return c
}

// register registers all metrics with the default registry
func (c *Collector) register() {
	prometheus.MustRegister(c.DepositsTotal)
	prometheus.MustRegister(c.WithdrawalsTotal)
	prometheus.MustRegister(c.SwapsTotal)
	prometheus.MustRegister(c.SubmissionErrors)
	prometheus.MustRegister(c.SubmissionLatency)

	prometheus.MustRegister(c.FundValue)
	prometheus.MustRegister(c.ShareSupply)
	prometheus.MustRegister(c.CreditOutstanding)
	prometheus.MustRegister(c.LockedShares)

	prometheus.MustRegister(c.ProtocolFeesTotal)
	prometheus.MustRegister(c.ManagementFeeMints)
	prometheus.MustRegister(c.BuybackFeesTotal)

	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)
	prometheus.MustRegister(c.WSSubscriptions)

	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)
	prometheus.MustRegister(c.APIErrorsTotal)
	prometheus.MustRegister(c.RateLimitHits)

	prometheus.MustRegister(c.BlockHeight)
}

// ============ Recording Helpers ============

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordSubmission records a submission's processing latency
func (c *Collector) RecordSubmission(operation string, latencyMs float64) {
	c.SubmissionLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message broadcast
func (c *Collector) RecordWSMessage(channel string) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
}

// RecordRateLimitHit records a rate-limited request
func (c *Collector) RecordRateLimitHit(limitType string) {
	c.RateLimitHits.WithLabelValues(limitType).Inc()
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
