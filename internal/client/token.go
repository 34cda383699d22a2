package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt вычисляет момент истечения access-токена: по expires_in, если он
// задан, иначе по claim exp самого JWT (подпись не проверяется: ключа у
// клиента нет). Нулевое время — срок неизвестен.
func ExpiresAt(now time.Time, expiresIn int64, accessToken string) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second).UTC()
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}

	return claims.ExpiresAt.Time.UTC()
}
