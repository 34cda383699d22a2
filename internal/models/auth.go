package models

import (
	"encoding/json"
	"log/slog"

	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/redact"
)

// Credentials — учётные данные для входа.
type Credentials struct {
	UserID   string `json:"user_id" validate:"required,max=20"`
	Password string `json:"password" validate:"required,min=4,max=200"`
}

// LogValue скрывает пароль и маскирует логин при логировании через slog.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", redact.UserID(c.UserID)),
		slog.String("password", redact.Password()),
	)
}

// LoginResponse — ответ эндпоинта входа.
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	UserInfo     json.RawMessage `json:"user_info,omitempty"`
}

// RefreshRequest — тело запроса обмена refresh-токена.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse — ответ обмена. RefreshToken может отсутствовать,
// если сервер не ротирует refresh-токены.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
