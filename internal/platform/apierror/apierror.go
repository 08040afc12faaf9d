// Package apierror maps failures to the public {"error": CODE} response body.
// The public code travels as the echo.HTTPError message; the underlying cause,
// if any, is attached as Internal so it is logged but never sent to clients.
package apierror

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

const (
	CodeMissingFields      = "MISSING_FIELDS"
	CodeMissingPatient     = "MISSING_PATIENT"
	CodeInvalidBody        = "INVALID_BODY"
	CodeInvalidID          = "INVALID_ID"
	CodeInvalidRole        = "INVALID_ROLE"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeNoToken            = "NO_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNeedDoctor         = "NEED_DOCTOR"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeDupEmail           = "DUP_EMAIL"
	CodeConflict           = "CONFLICT"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeDBError            = "DB_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnavailable        = "UNAVAILABLE"
)

var codePattern = regexp.MustCompile(`^[A-Z][A-Z_]*$`)

// New returns an HTTP error carrying a public code.
func New(status int, code string) *echo.HTTPError {
	return echo.NewHTTPError(status, code)
}

// Wrap returns an HTTP error carrying a public code and a private cause.
func Wrap(status int, code string, cause error) *echo.HTTPError {
	return echo.NewHTTPError(status, code).SetInternal(cause)
}

func BadRequest(code string) *echo.HTTPError   { return New(http.StatusBadRequest, code) }
func Unauthorized(code string) *echo.HTTPError { return New(http.StatusUnauthorized, code) }
func Forbidden(code string) *echo.HTTPError    { return New(http.StatusForbidden, code) }
func Conflict(code string) *echo.HTTPError     { return New(http.StatusConflict, code) }

// Storage reports an unexpected persistence failure as DB_ERROR.
func Storage(cause error) *echo.HTTPError {
	return Wrap(http.StatusInternalServerError, CodeDBError, cause)
}

// InvalidBody reports a request body that could not be decoded.
func InvalidBody(cause error) *echo.HTTPError {
	return Wrap(http.StatusBadRequest, CodeInvalidBody, cause)
}

// Resolve returns the status and public code for err.
func Resolve(err error) (int, string) {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return http.StatusInternalServerError, CodeInternal
	}
	if msg, ok := he.Message.(string); ok && codePattern.MatchString(msg) {
		return he.Code, msg
	}
	return he.Code, defaultCode(he.Code)
}

func defaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeInvalidToken
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusConflict:
		return CodeConflict
	case http.StatusRequestEntityTooLarge:
		return CodePayloadTooLarge
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Handler is installed as echo's HTTPErrorHandler.
func Handler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, code := Resolve(err)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, map[string]string{"error": code})
	}
}
