package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")

	// kindStatus maps workflow error kinds (see core.ErrorKind) to response codes.
	kindStatus = map[string]int{
		"not_found":     http.StatusNotFound,
		"authorization": http.StatusForbidden,
		"invalid_state": http.StatusConflict,
		"precondition":  http.StatusConflict,
		"duplicate":     http.StatusConflict,
	}
)

// errorResponse turns `err` into a response code and body; ok is false for server errors.
func errorResponse(err error, translator ut.Translator) (code int, message interface{}, ok bool) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message, true
		}
		if herr, isHTTP := origErr.Internal.(*echo.HTTPError); isHTTP {
			origErr = herr
		}
		return origErr.Code, origErr.Message, true
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs, true
	case *core.ValidationError:
		if origErr.Fields == nil {
			return http.StatusBadRequest, origErr.Error(), true
		}
		fldErrs := make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		return http.StatusBadRequest, fldErrs, true
	}

	code, known := kindStatus[core.ErrorKind(err)]
	if !known {
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
	}
	if core.IsDuplicate(err) {
		return code, echo.Map{"error": errors.Cause(err).Error(), "keys": core.DuplicateKeys(err)}, true
	}
	return code, errors.Cause(err).Error(), true
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message, ok := errorResponse(err, translator)
		if !ok {
			var usr user.User
			extras := map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Request().URL.Path,
			}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
				extras["role"] = claims.Role
			}
			logger.Error(message.(string), errors.Wrap(err, "handling "+ctx.Path()), extras, usr)

			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}
		if m, isStr := message.(string); isStr {
			message = echo.Map{"error": m}
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
