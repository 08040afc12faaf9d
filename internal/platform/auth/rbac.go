package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediclear/mediclear/internal/platform/apierror"
)

// RequireRole returns middleware that checks the caller has one of roles.
// Admins pass every role check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return requireRole(apierror.CodeForbidden, roles...)
}

// RequireDoctor guards the clinician surface and answers NEED_DOCTOR.
func RequireDoctor() echo.MiddlewareFunc {
	return requireRole(apierror.CodeNeedDoctor, RoleDoctor)
}

func requireRole(code string, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFromContext(c.Request().Context())
			if !ok {
				return apierror.Unauthorized(apierror.CodeNoToken)
			}
			if id.Role == RoleAdmin {
				return next(c)
			}
			for _, r := range roles {
				if id.Role == r {
					return next(c)
				}
			}
			return apierror.New(http.StatusForbidden, code)
		}
	}
}
