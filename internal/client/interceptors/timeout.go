package interceptors

import (
	"context"
	"io"
	"net/http"
	"time"
)

// WithTimeout навешивает таймаут d на запрос, если у контекста ещё нет дедлайна.
//
// Контракт:
//  1. d <= 0 — запрос уходит без изменений;
//  2. у контекста уже есть дедлайн — оставляет как есть;
//  3. иначе — context.WithTimeout; cancel вызывается при закрытии тела ответа
//     (или сразу, если ответа нет), так что дедлайн покрывает и чтение тела.
func WithTimeout(d time.Duration) Interceptor {
	return func(req *http.Request, next Invoker) (*http.Response, error) {
		if d <= 0 {
			return next(req)
		}
		if _, ok := req.Context().Deadline(); ok {
			return next(req)
		}

		ctx, cancel := context.WithTimeout(req.Context(), d)

		resp, err := next(req.WithContext(ctx))
		if err != nil || resp == nil {
			cancel()
			return resp, err
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
