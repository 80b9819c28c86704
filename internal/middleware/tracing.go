package middleware

import (
	"strconv"

	"chronicle/internal/observability"
	"chronicle/internal/pagination"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request. The span is renamed to the
// matched route once routing is done and carries the post, group, author and
// page the request addressed, plus the authenticated user.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Method()),
				semconv.URLPath(c.Path()),
				semconv.ClientAddress(c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		if requestID, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(semconv.HTTPRoute(route))
		span.SetAttributes(routeAttributes(c)...)
		if userID, ok := CurrentUserID(c); ok {
			span.SetAttributes(observability.AttrUserID.Int64(int64(userID)))
		}

		status := c.Response().StatusCode()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
		return err
	}
}

// routeAttributes maps the path parameters of the matched route to entity attributes.
func routeAttributes(c *fiber.Ctx) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if raw := c.Params("id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			attrs = append(attrs, observability.AttrPostID.Int64(int64(id)))
		}
	}
	if slug := c.Params("slug"); slug != "" {
		attrs = append(attrs, observability.AttrGroupSlug.String(slug))
	}
	if username := c.Params("username"); username != "" {
		attrs = append(attrs, observability.AttrAuthor.String(username))
	}
	if raw := c.Query("page"); raw != "" {
		attrs = append(attrs, observability.AttrFeedPage.Int(pagination.ParseNumber(raw)))
	}
	return attrs
}
