package middleware

import (
	"net/http"
	"strings"

	"github.com/Freeeeeet/auditorium_booking/internal/auth"
	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requesterKey = "requester"

// ErrorResponse тело любого ответа с ошибкой
type ErrorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// Abort прерывает цепочку обработчиков с ошибкой в общем формате
func Abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{ErrorKind: kind, Message: message})
}

// Authenticate проверяет Bearer-токен и кладёт автора запроса в контекст
func Authenticate(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			Abort(c, http.StatusUnauthorized, "unauthorized", "missing or invalid Authorization header")
			return
		}

		claims, err := auth.Parse(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Debug("Rejected token", zap.String("path", c.FullPath()), zap.Error(err))
			Abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		requester, err := claims.Requester()
		if err != nil {
			Abort(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		c.Set(requesterKey, requester)
		c.Next()
	}
}

// RequireAdmin пропускает только администраторов
func RequireAdmin() gin.HandlerFunc {
	return requireKind(model.RequesterAdmin, "admin access required")
}

// RequireHOD пропускает только заведующих кафедрами
func RequireHOD() gin.HandlerFunc {
	return requireKind(model.RequesterHOD, "HOD access required")
}

func requireKind(kind model.RequesterKind, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, ok := RequesterFrom(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
			return
		}
		if requester.Kind != kind {
			Abort(c, http.StatusForbidden, "forbidden", message)
			return
		}
		c.Next()
	}
}

// RequesterFrom автор запроса, которого положил Authenticate
func RequesterFrom(c *gin.Context) (model.Requester, bool) {
	v, ok := c.Get(requesterKey)
	if !ok {
		return model.Requester{}, false
	}
	requester, ok := v.(model.Requester)
	return requester, ok
}
