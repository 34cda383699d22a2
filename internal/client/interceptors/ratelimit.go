package interceptors

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// WithRateLimit ждёт токен лимитера перед отправкой; nil — без ограничения.
// Ожидание прерывается контекстом запроса.
func WithRateLimit(l *rate.Limiter) Interceptor {
	return func(req *http.Request, next Invoker) (*http.Response, error) {
		if l == nil {
			return next(req)
		}

		if err := l.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		return next(req)
	}
}
