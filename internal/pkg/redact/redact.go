// redact предоставляет утилиты редактирования чувствительных данных для логов
// (идентификаторы пользователей, токены, пароли, заголовки авторизации).
package redact

import (
	"net/http"
	"strings"
)

// UserID маскирует логин пользователя: первые два символа (по рунам) + "***".
// Короткие логины (≤ 2 символов) заменяются целиком.
//
// Примеры:
//
//	"admin" -> "ad***"
//	"ab"    -> "***"
//	""      -> "***"
func UserID(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return "***"
	}

	return string(r[:2]) + "***"
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }

// Authorization маскирует значение заголовка Authorization, сохраняя схему.
//
//	"Bearer abc.def" -> "Bearer [REDACTED_TOKEN]"
//	"abc"            -> "[REDACTED_TOKEN]"
func Authorization(v string) string {
	if v == "" {
		return ""
	}

	if scheme, _, ok := strings.Cut(v, " "); ok {
		return scheme + " " + Token()
	}

	return Token()
}

// Header возвращает копию заголовков с замаскированными Authorization и Cookie.
func Header(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}

	if v := out.Get("Authorization"); v != "" {
		out.Set("Authorization", Authorization(v))
	}

	for _, k := range []string{"Cookie", "Set-Cookie"} {
		if out.Get(k) != "" {
			out.Set(k, Token())
		}
	}

	return out
}
