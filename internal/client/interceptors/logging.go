package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/redact"
)

// WithLogging — логирование исходящих запросов.
// Поведение:
//   - добавляет поля request_id/method/path, прокладывает логгер в контекст (pkg/log);
//   - на Debug пишет заголовки запроса с замаскированной авторизацией;
//   - пишет одну финальную запись: msg="http" (Info) со status/dur,
//     либо msg="http_failed" (Warn) с ошибкой транспорта.
//
// Тела запросов и ответов не логируются.
func WithLogging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(req *http.Request, next Invoker) (*http.Response, error) {
		start := time.Now()

		l := base.With(
			slog.String("request_id", req.Header.Get(HeaderRequestID)),
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		)
		req = req.WithContext(log.Into(req.Context(), l))

		l.Debug("http_request", slog.Any("headers", redact.Header(req.Header)))

		resp, err := next(req)
		if err != nil {
			l.Warn("http_failed",
				slog.String("err", err.Error()),
				slog.Duration("dur", time.Since(start)),
			)
			return nil, err
		}

		l.Info("http",
			slog.Int("status", resp.StatusCode),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, nil
	}
}
