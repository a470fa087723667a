package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// Authorize admits principals whose role is in allowedRoles. It must run after
// Authenticate.
func Authorize(allowedRoles ...string) Stage {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return Stage{
		Name:   "authorize",
		Reason: "forbidden",
		Run: func(c echo.Context, _ *State) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return fmt.Errorf("%w: no principal", domain.ErrUnauthenticated)
			}
			if _, ok := allowed[p.Role]; !ok {
				return fmt.Errorf("%w: role %q", domain.ErrForbidden, p.Role)
			}
			return nil
		},
	}
}

// CanAccess gates a route on the principal's role.
func CanAccess(allowedRoles ...string) echo.MiddlewareFunc {
	return Pipeline(Authorize(allowedRoles...))
}
