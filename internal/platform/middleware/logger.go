package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mediclear/mediclear/internal/platform/apierror"
)

// Logger writes one structured line per request. Failed requests are logged
// with the public error code and, when present, the internal cause that the
// client never sees.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			status := c.Response().Status
			evt := logger.Info()
			if err != nil {
				var code string
				status, code = apierror.Resolve(err)
				evt = logger.Warn()
				if status >= 500 {
					evt = logger.Error()
				}
				evt = evt.Str("code", code)
				if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
					evt = evt.AnErr("cause", he.Internal)
				} else if !ok {
					evt = evt.Err(err)
				}
			}

			if email, ok := c.Get("user_email").(string); ok {
				evt = evt.Str("user", email)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
