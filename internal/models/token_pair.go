package models

import "time"

// TokenPair — пара токенов текущей сессии.
//
// Описание:
//   - AccessToken — короткоживущий JWT, прикладывается как Bearer;
//   - RefreshToken — секрет для обмена на новую пару;
//   - ExpiresAt — момент истечения access-токена (UTC); нулевое значение
//     означает, что срок не отслеживается.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Complete сообщает, что оба токена присутствуют.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Expired сообщает, истёк ли access-токен к моменту now с учётом запаса leeway.
// Без отслеживаемого срока токен считается действующим.
func (p TokenPair) Expired(now time.Time, leeway time.Duration) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}

	return !now.Add(leeway).Before(p.ExpiresAt)
}
