// Package observability provides metrics and tracing.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys describing blog entities.
const (
	AttrUserID    = attribute.Key("chronicle.user.id")
	AttrPostID    = attribute.Key("chronicle.post.id")
	AttrGroupSlug = attribute.Key("chronicle.group.slug")
	AttrAuthor    = attribute.Key("chronicle.author.username")
	AttrFeed      = attribute.Key("chronicle.feed")
	AttrFeedPage  = attribute.Key("chronicle.feed.page")
	AttrCacheName = attribute.Key("chronicle.cache")
	AttrMediaRoot = attribute.Key("chronicle.media_root")
	AttrPageSize  = attribute.Key("chronicle.page_size")
)

const defaultService = "chronicle"

// Tracer is swapped by InitTracing once a provider is installed.
var Tracer trace.Tracer = otel.Tracer(defaultService)

// TracingConfig selects the exporter and describes the running deployment.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	// Exporter is "otlp" or "stdout"; anything else means stdout.
	Exporter     string
	OTLPEndpoint string
	SamplerRatio float64
	// PageSize and MediaRoot are recorded on the resource so traces from
	// differently configured instances can be told apart.
	PageSize  int
	MediaRoot string
}

func (cfg TracingConfig) serviceName() string {
	if cfg.ServiceName == "" {
		return defaultService
	}
	return cfg.ServiceName
}

// InitTracing installs a tracer provider for the blog service and returns its shutdown.
// With tracing disabled the global no-op provider is used.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		Tracer = otel.Tracer(cfg.serviceName())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s trace exporter: %w", cfg.Exporter, err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	Tracer = tp.Tracer(cfg.serviceName())
	return tp.Shutdown, nil
}

func newExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == "otlp" {
		return otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

func newResource(cfg TracingConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.serviceName()),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	}
	if cfg.PageSize > 0 {
		attrs = append(attrs, AttrPageSize.Int(cfg.PageSize))
	}
	if cfg.MediaRoot != "" {
		attrs = append(attrs, AttrMediaRoot.String(cfg.MediaRoot))
	}
	return resource.New(context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithHost(),
	)
}

// newSampler keeps every trace at ratio >= 1 and drops all at ratio <= 0.
// Child spans follow their parent's decision.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// StartSpan starts an internal span named "<component>.<method>".
// Call the returned function with the operation's error to end it.
func StartSpan(ctx context.Context, component, method string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := Tracer.Start(ctx, component+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// FeedAttributes describes one requested feed page.
func FeedAttributes(feed string, page int) []attribute.KeyValue {
	return []attribute.KeyValue{AttrFeed.String(feed), AttrFeedPage.Int(page)}
}
