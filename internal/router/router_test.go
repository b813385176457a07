package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"payledger/internal/auth"
	"payledger/internal/config"
	"payledger/internal/handler"
)

func TestHealthzChecksCache(t *testing.T) {
	e := echo.New()
	// A nil cache client reports healthy: the wrapper treats an absent redis
	// as reachable, matching its fail-safe reads.
	Register(
		e,
		&config.Config{},
		nil,
		auth.NewJWTService("secret"),
		handler.NewAuthHandler(nil),
		handler.NewUserHandler(nil),
		handler.NewPaymentHandler(nil),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
