package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// principal returns the access token principal attached by middleware.Authenticate.
func principal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing principal", domain.ErrUnauthenticated)
	}
	return p, nil
}

func refreshPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.RefreshPrincipalFrom(c)
	if !ok || p.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing refresh principal", domain.ErrUnauthenticated)
	}
	return p, nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// queryInt parses a positive integer query parameter, returning def when it is absent,
// not a number or below 1.
func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// bindAndValidate binds the body into req, normalizes it and validates it.
func bindAndValidate(c echo.Context, req interface{ normalize() }) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	req.normalize()
	return c.Validate(req)
}
