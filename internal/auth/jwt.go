// Package auth проверяет токены, выданные сервисом аутентификации
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims полезная нагрузка токена. Кафедра приходит либо ссылкой
// (department_id + department_name), либо строкой department
type Claims struct {
	Role           string `json:"role"`
	DepartmentID   string `json:"department_id,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
	Department     string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Requester автор запроса по токену. ID берётся из sub
func (c *Claims) Requester() (model.Requester, error) {
	if c.Subject == "" {
		return model.Requester{}, fmt.Errorf("token without subject: %w", ErrInvalidToken)
	}

	switch model.RequesterKind(c.Role) {
	case model.RequesterAdmin:
		return model.Admin(c.Subject), nil
	case model.RequesterHOD:
		return model.HOD(c.Subject, model.Department{
			ID:      c.DepartmentID,
			Name:    c.DepartmentName,
			Literal: c.Department,
		}), nil
	default:
		return model.Requester{}, fmt.Errorf("role %q: %w", c.Role, ErrInvalidToken)
	}
}

// NewToken подписывает токен. Нужен тестам и утилитам, в проде токены выдаёт
// сервис аутентификации
func NewToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil && ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия токена
func Parse(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
