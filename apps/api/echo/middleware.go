package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const contextObjectKey = "object"

var errObjectNotFoundInCtx = errors.New("object not found in echo.Context")

// adminMiddleware lets admins through; when roles are given, the admin must also hold one of them.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := contextClaims(ctx)
			if err != nil {
				return err
			}
			if !claims.IsAdmin || (len(roles) > 0 && !lo.Some(claims.Roles, roles)) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func isContextAdmin(ctx echo.Context) bool {
	claims, err := contextClaims(ctx)
	return err == nil && claims.IsAdmin
}

// detailMiddleware loads the object named by the :id param into the context.
// Missing objects, and objects the caller may not see, are reported as 404.
func detailMiddleware[T any](
	get func(ctx context.Context, id string) (T, error),
	notFound error,
	visible func(ctx echo.Context, obj T) (bool, error),
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == notFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "loading detail object")
			}
			ok, err := visible(ctx, obj)
			if err != nil {
				return err
			}
			if !ok {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

func contextObject[T any](ctx echo.Context) (T, error) {
	obj, ok := ctx.Get(contextObjectKey).(T)
	if !ok {
		return obj, errors.Wrapf(errObjectNotFoundInCtx, "retrieving %T", obj)
	}
	return obj, nil
}
