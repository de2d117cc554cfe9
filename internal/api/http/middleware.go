package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/observability"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// RegisterMiddlewares attaches the global chain: per-request deadline, panic
// recovery with the domain error envelope, then request logging. Order
// matters, the deadline must be set before any handler reads UserContext.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(withRequestDeadline(timeout))
	}
	app.Use(renderDomainErrors(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

// withRequestDeadline bounds each request so a stalled resolution cannot
// hold a connection forever. Handlers propagate UserContext into services,
// which is how the agent's tool calls observe the deadline.
func withRequestDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// renderDomainErrors converts any error (or panic) escaping a handler into
// the JSON error envelope, keyed by the domain error code.
func renderDomainErrors(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			domainErr := apperrors.ToDomainError(err)
			if metrics != nil {
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
			}
			if domainErr.HTTPStatus >= 500 {
				logger.Error("request failed",
					zap.String("path", c.Path()),
					zap.String("code", domainErr.Code),
					zap.Error(domainErr))
			}

			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(errorEnvelope(domainErr))
			err = nil
		}()
		return c.Next()
	}
}

func errorEnvelope(domainErr *apperrors.DomainError) fiber.Map {
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	return fiber.Map{"error": body}
}
