// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coinfun"

// Trade outcome labels.
const (
	StatusSuccess   = "success"
	StatusRejected  = "rejected"
	StatusBusy      = "busy"
	StatusIntegrity = "integrity"
	StatusFailed    = "failed"
)

// Collector owns the process metrics. Each collector has its own registry so
// several can live in one process (tests, embedded engines).
type Collector struct {
	registry *prometheus.Registry

	trades         *prometheus.CounterVec
	tradeDuration  *prometheus.HistogramVec
	nativeVolume   *prometheus.CounterVec
	fees           *prometheus.CounterVec
	reserveTokens  prometheus.Counter
	graduations    prometheus.Counter
	assetsCreated  prometheus.Counter
	curveNative    *prometheus.GaugeVec
	workerRetries  prometheus.Counter
	integrityFault *prometheus.CounterVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades processed by outcome",
		}, []string{"side", "status"}),
		tradeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_duration_seconds",
			Help:      "Time to price and settle a trade",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"side"}),
		nativeVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "native_volume_total",
			Help:      "Native units traded (gross on buys, net on sells)",
		}, []string{"side"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_total",
			Help:      "Native units collected as fees",
		}, []string{"kind"}),
		reserveTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reserve_tokens_total",
			Help:      "Tokens bought back into the shared reserve",
		}),
		graduations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graduations_total",
			Help:      "Curves that reached the graduation threshold",
		}),
		assetsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_created_total",
			Help:      "Assets created",
		}),
		curveNative: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "curve_real_native_reserves",
			Help:      "Real native reserves per curve",
		}, []string{"mint"}),
		workerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_retries_total",
			Help:      "Trades retried by the runner because the curve was busy",
		}),
		integrityFault: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_faults_total",
			Help:      "Trades aborted because curve backing was inconsistent",
		}, []string{"mint"}),
	}

	c.registry.MustRegister(
		c.trades, c.tradeDuration, c.nativeVolume, c.fees, c.reserveTokens,
		c.graduations, c.assetsCreated, c.curveNative, c.workerRetries, c.integrityFault,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordTrade records the outcome and duration of one trade attempt.
func (c *Collector) RecordTrade(side, status string, duration time.Duration) {
	c.trades.WithLabelValues(side, status).Inc()
	c.tradeDuration.WithLabelValues(side).Observe(duration.Seconds())
}

// RecordSettlement records the value moved by a committed trade.
func (c *Collector) RecordSettlement(side, mint string, native, platformFee, reserveFee, reserveTokens, realNative uint64) {
	c.nativeVolume.WithLabelValues(side).Add(float64(native))
	c.fees.WithLabelValues("platform").Add(float64(platformFee))
	c.fees.WithLabelValues("reserve").Add(float64(reserveFee))
	c.reserveTokens.Add(float64(reserveTokens))
	c.curveNative.WithLabelValues(mint).Set(float64(realNative))
}

func (c *Collector) RecordGraduation()   { c.graduations.Inc() }
func (c *Collector) RecordAssetCreated() { c.assetsCreated.Inc() }
func (c *Collector) RecordRetry()        { c.workerRetries.Inc() }

func (c *Collector) RecordIntegrityFault(mint string) {
	c.integrityFault.WithLabelValues(mint).Inc()
}
