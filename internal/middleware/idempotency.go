package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/idempotency"
)

// HeaderIdempotencyKey carries the client-chosen deduplication token.
const HeaderIdempotencyKey = "Idempotency-Key"

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key already used by the same user.  Requests without the
// header, or with the store disabled, pass through.  Only 2xx and 4xx
// answers are remembered; a 5xx releases the key so the client may retry.
func Idempotency(store *idempotency.Store, logger *zap.Logger) echo.MiddlewareFunc {
	if !store.Enabled() {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(HeaderIdempotencyKey)
			if token == "" {
				return next(c)
			}
			key := subject(c) + ":" + c.Request().Method + ":" + c.Path() + ":" + token
			ctx := c.Request().Context()

			prev, err := store.Begin(ctx, key)
			switch {
			case errors.Is(err, idempotency.ErrInFlight):
				return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "idempotency_in_flight"})
			case err != nil:
				logger.Warn("idempotency lookup failed, continuing without it", zap.Error(err))
				return next(c)
			case prev != nil:
				c.Response().Header().Set("Idempotent-Replayed", "true")
				return c.JSONBlob(prev.Status, prev.Body)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			herr := next(c)

			bg := context.Background()
			if herr != nil || cw.status >= 500 {
				if err := store.Abort(bg, key); err != nil {
					logger.Warn("idempotency abort failed", zap.Error(err))
				}
				return herr
			}
			body := append([]byte(nil), cw.buf.Bytes()...)
			if len(body) == 0 {
				body = []byte("null")
			}
			res := idempotency.Result{Status: cw.status, Body: body}
			if err := store.Complete(bg, key, res); err != nil {
				logger.Warn("idempotency store failed", zap.Error(err))
			}
			return nil
		}
	}
}
