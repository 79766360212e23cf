package echoapi

import (
	"net/http"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/user"
)

const headerRateLimitRemaining = "X-RateLimit-Remaining"

var (
	errUnauthorized         = core.NewAuthError("user not authenticated")
	errAuthenticationFailed = core.NewAuthError("invalid email or password")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// already handled further down the middleware chain (by middleware.Logger for instance)
		if ctx.Response().Committed {
			return
		}

		code := errorStatusCode(err)
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok && origErr != middleware.ErrJWTMissing {
				origErr = herr
			}
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
		case *core.NotFoundError, *core.ConflictError, *core.AuthError:
			message = origErr.Error()
		case *core.RateLimitError:
			ctx.Response().Header().Set(headerRateLimitRemaining, "0")
			ctx.Response().Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(origErr.ResetAt).Seconds())+1, 10))
			message = origErr.Error()
		default: // any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Name = claims.Name
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
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

// errorStatusCode returns the status code the error handler answers err with.
func errorStatusCode(err error) int {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			return herr.Code
		}
		return origErr.Code
	case validator.ValidationErrors, *core.ValidationError:
		return http.StatusBadRequest
	case *core.NotFoundError:
		return http.StatusNotFound
	case *core.ConflictError:
		return http.StatusConflict
	case *core.AuthError:
		return http.StatusUnauthorized
	case *core.RateLimitError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
