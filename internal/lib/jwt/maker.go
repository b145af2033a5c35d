// Package jwt выпускает и проверяет JWT токены доступа.
//
// Токен подписывается HS256 и содержит идентификатор пользователя.
// Роль в токен не кладётся: она меняется при оплате подписки,
// поэтому middleware загружает актуального пользователя из хранилища.
package jwt

import (
	"time"
)

// DefaultTTL: время жизни токена по умолчанию.
const DefaultTTL = 7 * 24 * time.Hour

// Maker описывает генерацию и разбор токенов.
type Maker interface {
	GenerateToken(userID string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на секретном ключе.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
}

// NewJWTMaker создаёт MakerImpl. Нулевой ttl заменяется на DefaultTTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
