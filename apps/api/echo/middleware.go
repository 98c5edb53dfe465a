package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core/user"
)

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleStaff)
}

// nonAdminMiddleware admits any stored account; the config-only admin is not
// a complaint raiser nor a feedback author.
func nonAdminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleStudent, user.RoleStaff)
}
