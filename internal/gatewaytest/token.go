package gatewaytest

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// tokenManager issues and validates the session tokens the fake backend
// hands out at login. The console treats them as opaque strings.
type tokenManager struct {
	secret []byte
	ttl    time.Duration
}

type sessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func newTokenManager(secret string, ttl time.Duration) *tokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &tokenManager{secret: []byte(secret), ttl: ttl}
}

func (tm *tokenManager) issue(userID string) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

func (tm *tokenManager) validate(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token claims")
	}
	return claims.UserID, nil
}
