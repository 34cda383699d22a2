package interceptors

import (
	"net/http"
	"time"

	"github.com/pribylovaa/skyboot-admin-client/internal/metrics"
)

// WithMetrics учитывает каждый вызов: статус ответа или 0 при ошибке транспорта.
func WithMetrics(m *metrics.Metrics) Interceptor {
	return func(req *http.Request, next Invoker) (*http.Response, error) {
		if m == nil {
			return next(req)
		}

		start := time.Now()
		resp, err := next(req)

		status := 0
		if err == nil && resp != nil {
			status = resp.StatusCode
		}
		m.ObserveRequest(req.Method, status, time.Since(start))

		return resp, err
	}
}
