package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MarketEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_events_total", Help: "Market events applied to instrument state"},
		[]string{"instrument"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Open requests produced by strategies"},
		[]string{"strategy", "side"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Open requests by outcome"},
		[]string{"instrument", "side", "result"},
	)
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "decision_cycles_total", Help: "Decision cycles run"},
	)
)

func init() {
	prometheus.MustRegister(MarketEventsTotal, SignalsTotal, OrdersTotal, CyclesTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
