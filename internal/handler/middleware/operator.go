package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"sales-recovery/internal/handler/httperr"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

type OperatorMiddleware struct {
	tokens *jwt.Service
}

const ctxOperatorKey = "operator_subject"

func NewOperatorMiddleware(tokens *jwt.Service) *OperatorMiddleware {
	return &OperatorMiddleware{tokens: tokens}
}

func (m *OperatorMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrOperatorTokenRequired, "Operator token required", nil)
			return
		}

		claims, err := m.tokens.ValidateOperator(token)
		if err != nil {
			slog.Warn("operator token rejected", "error", err.Error())
			httperr.AbortWithError(c, http.StatusUnauthorized, errs.Mark(err, errs.ErrOperatorTokenRequired), "Invalid or expired token", nil)
			return
		}

		c.Set(ctxOperatorKey, claims.Subject)
		c.Next()
	}
}

// OptionalOperator marks the request as coming from an operator when a valid
// token is present and never aborts.
func (m *OperatorMiddleware) OptionalOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := m.tokens.ValidateOperator(token); err == nil {
				c.Set(ctxOperatorKey, claims.Subject)
			}
		}
		c.Next()
	}
}

func GetOperator(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxOperatorKey)
	if !exists {
		return "", false
	}
	subject, ok := v.(string)
	return subject, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}
