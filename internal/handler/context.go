package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"payledger/internal/auth"
)

// principalFrom extracts the authenticated principal injected by the router's
// principal middleware. Its presence proves the JWT middleware ran.
func principalFrom(c echo.Context) (auth.Principal, error) {
	p, ok := c.Get("principal").(auth.Principal)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
