package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided")
	errTokenRevoked       = echo.NewHTTPError(http.StatusUnauthorized, "Token has been revoked")
	errLoginFailed        = echo.NewHTTPError(http.StatusUnauthorized, "Login failed")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "Account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "Refresh has expired")
	errInvalidToken       = echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	errTooManyAttempts    = echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts, please try again later")
	errInvalidBody        = echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
)

// errorResponse is the envelope of every failed request.
type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func fieldErrors(flds []core.FieldError) map[string]string {
	if len(flds) == 0 {
		return nil
	}
	errs := make(map[string]string, len(flds))
	for _, fErr := range flds {
		errs[fErr.Field] = fErr.Error
	}
	return errs
}

// errorKey turns "NewSheet.records[0].student" into "records[0].student".
func errorKey(vErr validator.FieldError) string {
	ns := vErr.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return vErr.Field()
}

func capitalize(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		resp := errorResponse{}
		var code int

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				origErr = errUnauthorized
			} else if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				} else if origErr.Code == http.StatusBadRequest {
					// binding failed; the decoder's message stays in the logs
					logger.Debug(fmt.Sprintf("binding request: %v", origErr.Internal))
					origErr = errInvalidBody
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				resp.Message = capitalize(msg)
			} else {
				resp.Message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			resp.Message = "Validation failed"
			resp.Errors = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				resp.Errors[errorKey(vErr)] = vErr.Translate(translator)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Message = capitalize(origErr.Error())
			if resp.Message == "" {
				resp.Message = "Validation failed"
			}
			resp.Errors = fieldErrors(origErr.Fields)
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Message = capitalize(origErr.Error())
		case *core.ConflictError:
			code = http.StatusConflict
			resp.Message = capitalize(origErr.Error())
			resp.Errors = fieldErrors(origErr.Fields)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			resp.Message = http.StatusText(code)

			o, ok := ctx.Get(contextOwnerKey).(owner.Owner)
			if claims, cErr := getContextClaims(ctx); !ok && cErr == nil {
				o.ID = claims.Subject
				o.Phone = claims.Phone
			}
			logger.Error(resp.Message, errors.Wrap(err, resp.Message), o)

			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
