// metrics — Prometheus-метрики клиента: исходящие запросы и обмен refresh-токена.
//
// Все методы безопасны на nil-получателе: метрики можно не подключать.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skyboot_client"

// Итоги обмена refresh-токена (label result).
const (
	RefreshSuccess  = "success"
	RefreshRejected = "rejected"
	RefreshNoToken  = "no_token"
	RefreshError    = "error"
	RefreshStale    = "stale"
)

type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
	waiters   prometheus.Gauge
}

// New регистрирует коллекторы в reg (nil — prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outgoing API requests by method and response status (0 — transport failure).",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Outgoing API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh-token exchanges and shortcuts by result.",
		}, []string{"result"}),
		waiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_waiters",
			Help:      "Requests currently parked behind an in-flight refresh.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.refreshes, m.waiters)

	return m
}

// ObserveRequest учитывает завершённый запрос; status 0 — ответа не было.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) WaiterAdded() {
	if m == nil {
		return
	}

	m.waiters.Inc()
}

func (m *Metrics) WaitersReleased(n int) {
	if m == nil || n == 0 {
		return
	}

	m.waiters.Sub(float64(n))
}
