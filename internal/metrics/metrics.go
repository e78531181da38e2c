// Package metrics exposes engine activity as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spot-trading-bot/internal/interfaces"
	"spot-trading-bot/internal/logger"
	"spot-trading-bot/internal/types"
)

const (
	namespace = "spot_trading"
	subsystem = "engine"
)

// Collector is an Observer that records engine events.
type Collector struct {
	reg *prometheus.Registry

	decisions     *prometheus.CounterVec
	trades        *prometheus.CounterVec
	stepResults   *prometheus.CounterVec
	price         *prometheus.GaugeVec
	openPositions prometheus.Gauge
	totalPnL      prometheus.Gauge
	dailyPnL      prometheus.Gauge
	winRate       prometheus.Gauge
	cycleDuration prometheus.Histogram

	mu   sync.Mutex
	open map[string]struct{}
}

var _ interfaces.Observer = (*Collector)(nil)

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		reg: reg,
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decisions_total",
			Help:      "Strategy decisions by symbol",
		}, []string{"symbol", "decision"}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "trades_total",
			Help:      "Executed trades by symbol and kind",
		}, []string{"symbol", "kind", "reason"}),
		stepResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "step_results_total",
			Help:      "Per-symbol cycle outcomes",
		}, []string{"result"}),
		price: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_price",
			Help:      "Last observed price",
		}, []string{"symbol"}),
		openPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "open_positions",
			Help:      "Number of open positions",
		}),
		totalPnL: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "realized_pnl",
			Help:      "Realized PnL since start, quote currency",
		}),
		dailyPnL: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "daily_pnl",
			Help:      "Realized PnL for the current UTC day",
		}),
		winRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "win_rate_percent",
			Help:      "Winning closes as a percentage of all closes",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one engine cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		open: make(map[string]struct{}),
	}
}

func (c *Collector) OnMarketUpdate(_ context.Context, u types.MarketUpdate) {
	c.price.WithLabelValues(u.Symbol).Set(u.Price.InexactFloat64())
	c.decisions.WithLabelValues(u.Symbol, string(u.Signal)).Inc()
}

func (c *Collector) OnPositionUpdate(_ context.Context, symbol string, pos *types.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos == nil {
		delete(c.open, symbol)
	} else {
		c.open[symbol] = struct{}{}
	}
	c.openPositions.Set(float64(len(c.open)))
}

func (c *Collector) OnTrade(_ context.Context, rec types.TradeRecord) {
	c.trades.WithLabelValues(rec.Symbol, string(rec.Kind), rec.Reason).Inc()
}

func (c *Collector) OnPerformance(_ context.Context, m types.PerformanceMetrics) {
	c.totalPnL.Set(m.TotalPnL.InexactFloat64())
	c.dailyPnL.Set(m.Daily.PnL.InexactFloat64())
	c.winRate.Set(m.WinRate.InexactFloat64())
}

// ObserveCycle records one finished cycle.
func (c *Collector) ObserveCycle(results []*types.StepResult, d time.Duration) {
	c.cycleDuration.Observe(d.Seconds())
	for _, r := range results {
		kind := "hold"
		if r.Result != nil {
			kind = string(r.Result.Kind)
		}
		c.stepResults.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
