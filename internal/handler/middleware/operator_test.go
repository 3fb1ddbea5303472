//go:build unit

package middleware_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"sales-recovery/internal/handler/middleware"
	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/jwt"
	"sales-recovery/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOperatorRouter(t *testing.T) (*gin.Engine, *jwt.Service, *clock.MockClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewMockClock(time.Now().UTC())
	tokens := jwt.NewService("operator-secret", time.Hour, clk)
	m := middleware.NewOperatorMiddleware(tokens)

	whoami := func(c *gin.Context) {
		subject, ok := middleware.GetOperator(c)
		c.JSON(http.StatusOK, gin.H{"operator": subject, "ok": ok})
	}
	r := gin.New()
	r.GET("/required", m.RequireOperator(), whoami)
	r.GET("/optional", m.OptionalOperator(), whoami)
	return r, tokens, clk
}

func TestRequireOperator(t *testing.T) {
	r, tokens, clk := newOperatorRouter(t)

	t.Run("valid token", func(t *testing.T) {
		token, err := tokens.GenerateOperatorToken("ops@example.com")
		require.NoError(t, err)

		rec := httptest.PerformRequest(t, r, http.MethodGet, "/required", nil, token)
		var body map[string]any
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &body)
		assert.Equal(t, "ops@example.com", body["operator"])
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/required", nil, "")
		httptest.AssertErrorResponse(t, rec, http.StatusUnauthorized, "Operator token required")
	})

	t.Run("forged token", func(t *testing.T) {
		other := jwt.NewService("other-secret", time.Hour, clk)
		token, err := other.GenerateOperatorToken("ops")
		require.NoError(t, err)

		rec := httptest.PerformRequest(t, r, http.MethodGet, "/required", nil, token)
		httptest.AssertErrorResponse(t, rec, http.StatusUnauthorized, "Invalid or expired token")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := tokens.GenerateOperatorToken("ops")
		require.NoError(t, err)
		clk.Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, r, http.MethodGet, "/required", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalOperator(t *testing.T) {
	r, tokens, _ := newOperatorRouter(t)

	t.Run("anonymous passes through", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/optional", nil, "")
		var body map[string]any
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &body)
		assert.Equal(t, false, body["ok"])
	})

	t.Run("bad token passes through anonymously", func(t *testing.T) {
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/optional", nil, "garbage")
		var body map[string]any
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &body)
		assert.Equal(t, false, body["ok"])
	})

	t.Run("valid token marks operator", func(t *testing.T) {
		token, err := tokens.GenerateOperatorToken("ops")
		require.NoError(t, err)

		rec := httptest.PerformRequest(t, r, http.MethodGet, "/optional", nil, token)
		var body map[string]any
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &body)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "ops", body["operator"])
	})
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(raw))
	})

	rec := httptest.PerformRawRequest(t, r, http.MethodPost, "/echo", []byte("small"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.PerformRawRequest(t, r, http.MethodPost, "/echo", []byte(strings.Repeat("x", 64)), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
