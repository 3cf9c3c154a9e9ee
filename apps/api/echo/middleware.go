package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

// roleMiddleware lets through callers whose primary role is one of `roles`.
func roleMiddleware(auth authenticator, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			role := usr.PrimaryRole()
			for _, r := range roles {
				if role == r {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(auth authenticator) echo.MiddlewareFunc {
	return roleMiddleware(auth, user.PrimaryAdmin)
}

// policyMiddleware resolves the caller's read Policy once and stores it in the context.
func policyMiddleware(auth authenticator, svc *vaccination.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			policy, err := svc.PolicyFor(ctx.Request().Context(), usr)
			if err != nil {
				return errors.Wrap(err, "resolving policy")
			}
			ctx.Set(contextPolicyKey, policy)
			return next(ctx)
		}
	}
}

func getContextPolicy(ctx echo.Context) (*vaccination.Policy, error) {
	if policy, ok := ctx.Get(contextPolicyKey).(*vaccination.Policy); ok {
		return policy, nil
	}
	return nil, errors.New("policy not found in echo.Context")
}
