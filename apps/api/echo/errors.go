package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/services/portalapi"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errSessionExpired   = echo.NewHTTPError(http.StatusUnauthorized, portalapi.ErrSessionExpired.Error())
	errAPIUnreachable   = echo.NewHTTPError(http.StatusBadGateway, "the attendance service is unreachable, please try again")
	errLeaveUnavailable = echo.NewHTTPError(http.StatusConflict, attendance.ErrLeaveUnavailable.Error())
)

// domainErrors maps attendance and program errors to HTTP errors.
var domainErrors = []struct {
	err  error
	herr *echo.HTTPError
}{
	{attendance.ErrRestricted, echo.NewHTTPError(http.StatusForbidden, attendance.ErrRestricted.Error())},
	{attendance.ErrOutOfRange, echo.NewHTTPError(http.StatusUnprocessableEntity, attendance.ErrOutOfRange.Error())},
	{attendance.ErrBusy, echo.NewHTTPError(http.StatusConflict, attendance.ErrBusy.Error())},
	{attendance.ErrNothingToSubmit, echo.NewHTTPError(http.StatusConflict, attendance.ErrNothingToSubmit.Error())},
	{attendance.ErrLeaveUnavailable, errLeaveUnavailable},
	{portalapi.ErrSessionExpired, errSessionExpired},
	{program.ErrAnnouncementNotFound, echo.NewHTTPError(http.StatusNotFound, program.ErrAnnouncementNotFound.Error())},
}

func httpErrorFor(cause error) (*echo.HTTPError, bool) {
	for _, de := range domainErrors {
		if cause == de.err {
			return de.herr, true
		}
	}
	return nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if herr, ok := httpErrorFor(cause); ok {
			cause = herr
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, fErr := range core.FieldErrors(origErr, translator) {
				fldErrs[fErr.Field] = fErr.Error
			}
			code = http.StatusBadRequest
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
			code = http.StatusBadRequest
		case *portalapi.APIError:
			code = origErr.StatusCode
			if len(origErr.Fields) > 0 && origErr.Detail == "" {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.UserMessage()
			}
		case *portalapi.NetworkError:
			logger.Warn(err.Error(), err, contextUser(ctx))
			code = errAPIUnreachable.Code
			message = errAPIUnreachable.Message
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			logger.Error(msg, errors.Wrap(err, msg), contextUser(ctx))
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
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
