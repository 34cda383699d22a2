package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork — транспортная ошибка: ответа (и статуса) нет.
	ErrNetwork = errors.New("network error")
	// ErrUnauthorized — повторный 401 после refresh: запрос больше не повторяется.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRefreshFailed — обмен refresh-токена не удался.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNoRefreshToken — обменивать нечего.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrSessionExpired — сессия завершена: токены удалены, нужен новый вход.
	ErrSessionExpired = errors.New("session expired")
	// ErrEmptyBody — ответ без JSON-тела, декодировать нечего.
	ErrEmptyBody = errors.New("empty response body")
)

// HTTPError — ответ со статусом >= 400.
type HTTPError struct {
	Status int
	// Message — сообщение сервера (detail/message/error), иначе текст статуса.
	Message  string
	Response *Response
}

func (e *HTTPError) Error() string {
	var method, path string
	if e.Response != nil && e.Response.Request != nil {
		method, path = e.Response.Request.Method, e.Response.Request.Path
	}

	return fmt.Sprintf("%s %s: status %d: %s", method, path, e.Status, e.Message)
}

// StatusCode возвращает статус из цепочки ошибок или 0.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}

	return 0
}

// IsUnauthorized — в цепочке есть ответ 401.
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }

func newHTTPError(resp *Response) *HTTPError {
	msg := serverMessage(resp)
	if msg == "" {
		msg = http.StatusText(resp.Status)
	}

	return &HTTPError{Status: resp.Status, Message: msg, Response: resp}
}

// serverMessage извлекает текст ошибки из распространённых форм тела:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"message": "..."},
// {"error": "..."}, {"error": {"message": "..."}}.
func serverMessage(resp *Response) string {
	if len(resp.JSON) == 0 {
		return resp.Text
	}

	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(resp.JSON, &body); err != nil {
		return ""
	}

	if s := textOf(body.Detail); s != "" {
		return s
	}
	if body.Message != "" {
		return body.Message
	}

	return textOf(body.Error)
}

func textOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var withMsg struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &withMsg) == nil {
		if withMsg.Msg != "" {
			return withMsg.Msg
		}
		return withMsg.Message
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0].Msg
	}

	return ""
}
