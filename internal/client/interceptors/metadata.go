package interceptors

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
)

const HeaderRequestID = "X-Request-Id"

// WithMetadata — добавляет в исходящий запрос заголовки:
//   - X-Request-Id: из запроса, иначе из контекста (pkg/log), иначе новый UUID;
//   - User-Agent (если передан параметром);
//   - Accept: application/json (если не задан).
func WithMetadata(userAgent string) Interceptor {
	return func(req *http.Request, next Invoker) (*http.Response, error) {
		if req.Header.Get(HeaderRequestID) == "" {
			rid := log.RequestID(req.Context())
			if rid == "" {
				rid = uuid.NewString()
			}
			req.Header.Set(HeaderRequestID, rid)
		}
		if userAgent != "" {
			req.Header.Set("User-Agent", userAgent)
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}

		return next(req)
	}
}
