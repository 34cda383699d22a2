// errors превращает ошибки клиента в короткие сообщения для пользователя CLI.
//
// На вход — ошибка из client/session/menu, на выход:
//   - HTTP-статус (если он был) или условный код для транспортных сбоев;
//   - стабильный машиночитаемый code;
//   - безопасное человекочитаемое message.
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/skyboot-admin-client/internal/client"
	"github.com/pribylovaa/skyboot-admin-client/internal/menu"
	"github.com/pribylovaa/skyboot-admin-client/internal/session"
)

// StatusClientClosedRequest — нестандартный код для "вызов отменён клиентом".
const StatusClientClosedRequest = 499

// Problem — единый формат ошибки для вывода.
// Code — короткий стабильный код; Message — описание без внутренних деталей.
type Problem struct {
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p Problem) Error() string { return p.Code + ": " + p.Message }

// Classify сопоставляет ошибке Problem.
//
// Порядок:
//   - nil — программная ошибка вызова: internal;
//   - отмена/таймаут контекста — canceled / deadline_exceeded;
//   - ошибки входа — invalid_argument / invalid_credentials;
//   - завершённая сессия и повторный 401 — session_expired / unauthenticated;
//   - транспортный сбой — network;
//   - HTTP-ответ — по статусу через baseFromStatus; для 400/409/422 сохраняется
//     сообщение сервера;
//   - ответ без ожидаемых полей — bad_response;
//   - прочее — internal.
func Classify(err error) Problem {
	switch {
	case err == nil:
		return Problem{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error"}
	case stderrors.Is(err, context.Canceled):
		return Problem{Status: StatusClientClosedRequest, Code: "canceled", Message: "request canceled"}
	case stderrors.Is(err, context.DeadlineExceeded):
		return Problem{Status: http.StatusGatewayTimeout, Code: "deadline_exceeded", Message: "request timed out, try again later"}
	case stderrors.Is(err, session.ErrInvalidArgument):
		return Problem{Status: http.StatusBadRequest, Code: "invalid_argument", Message: "user id and password (at least 4 characters) are required"}
	case stderrors.Is(err, session.ErrInvalidCredentials):
		return Problem{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "invalid user id or password"}
	case stderrors.Is(err, client.ErrSessionExpired):
		return Problem{Status: http.StatusUnauthorized, Code: "session_expired", Message: "session expired, please log in again"}
	case stderrors.Is(err, client.ErrUnauthorized):
		return Problem{Status: http.StatusUnauthorized, Code: "unauthenticated", Message: "not authorized, please log in again"}
	case stderrors.Is(err, client.ErrNetwork):
		return Problem{Code: "network", Message: "network error, check your connection"}
	}

	var herr *client.HTTPError
	if stderrors.As(err, &herr) {
		code, msg := baseFromStatus(herr.Status)
		switch herr.Status {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			if herr.Message != "" {
				msg = herr.Message
			}
		}
		return Problem{Status: herr.Status, Code: code, Message: msg}
	}

	if stderrors.Is(err, session.ErrMalformedResponse) || stderrors.Is(err, menu.ErrMalformed) || stderrors.Is(err, menu.ErrMissingID) {
		return Problem{Status: http.StatusBadGateway, Code: "bad_response", Message: "unexpected response from server"}
	}

	if stderrors.Is(err, client.ErrRefreshFailed) {
		return Problem{Status: http.StatusServiceUnavailable, Code: "unavailable", Message: "could not renew session, try again later"}
	}

	return Problem{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error"}
}

// baseFromStatus — базовый маппинг HTTP-статуса в code/message:
//   - 400 -> invalid_argument
//   - 401 -> unauthenticated
//   - 403 -> permission_denied ("access denied")
//   - 404 -> not_found
//   - 409 -> conflict
//   - 422 -> invalid_argument
//   - 429 -> resource_exhausted
//   - 5xx -> unavailable ("server error, try again later")
//   - прочие 4xx -> failed_request
func baseFromStatus(status int) (string, string) {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return "invalid_argument", "invalid argument"
	case status == http.StatusUnauthorized:
		return "unauthenticated", "not authorized, please log in again"
	case status == http.StatusForbidden:
		return "permission_denied", "access denied"
	case status == http.StatusNotFound:
		return "not_found", "requested resource not found"
	case status == http.StatusConflict:
		return "conflict", "conflict"
	case status == http.StatusTooManyRequests:
		return "resource_exhausted", "too many requests, slow down"
	case status >= http.StatusInternalServerError:
		return "unavailable", "server error, try again later"
	default:
		return "failed_request", "request failed"
	}
}
