package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errInvalidSnapshot      = echo.NewHTTPError(http.StatusUnprocessableEntity, "unable to determine completeness")
)

// notFoundErrs are domain errors answered with a plain 404.
var notFoundErrs = []error{user.ErrNotFound, discipline.ErrNotFound, discipline.ErrContentNotFound}

// newAppHTTPErrorHandler returns an echo.HTTPErrorHandler translating domain errors into JSON responses.
// Unexpected errors are reported to the logger; core shutdown errors also trigger signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)
		if code == http.StatusInternalServerError {
			reportServerError(ctx, logger, err)
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// errorResponse maps err to a status code and a body: either a string or a field -> message map.
func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	cause := errors.Cause(err)
	if lo.Contains(notFoundErrs, cause) {
		cause = errHttpNotFound
	} else if errors.Is(err, discipline.ErrInvalidSnapshot) {
		cause = errInvalidSnapshot
	}

	switch e := cause.(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, e.Message
		}
		if inner, ok := e.Internal.(*echo.HTTPError); ok {
			e = inner
		}
		return e.Code, e.Message
	case validator.ValidationErrors:
		return http.StatusBadRequest, lo.SliceToMap(e, func(fe validator.FieldError) (string, string) {
			return fe.Field(), fe.Translate(translator)
		})
	case *core.ValidationError:
		if e.Fields == nil {
			return http.StatusBadRequest, e.Error()
		}
		return http.StatusBadRequest, lo.SliceToMap(e.Fields, func(fe core.FieldError) (string, string) {
			return fe.Field, fe.Error
		})
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func reportServerError(ctx echo.Context, logger core.Logger, err error) {
	msg := http.StatusText(http.StatusInternalServerError)
	var usr user.User
	if claims, cErr := contextClaims(ctx); cErr == nil {
		usr.ID, usr.Username, usr.Email = claims.Subject, claims.Username, claims.Email
	}
	logger.Error(msg, errors.Wrap(err, msg), usr)
}
