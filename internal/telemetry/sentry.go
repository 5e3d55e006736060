// Package telemetry wraps Sentry tracing and error reporting for the
// ingest, advisory, query, and research pipelines.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	serverName   = "guardian"
	flushTimeout = 5 * time.Second
	healthTxName = "GET /health"
)

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init starts the Sentry client and returns a function that flushes pending
// events. Without a DSN both are no-ops, and a client that fails to start is
// logged and ignored so the API keeps serving.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Debug:            cfg.Debug,
		ServerName:       serverName,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    traceSampler(cfg.TracesSampleRate),
	})
	if err != nil {
		log.Printf("sentry: init failed, tracing disabled: %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing enabled (environment=%s rate=%.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// traceSampler drops health probes, lets child spans inherit the parent's
// decision and samples root transactions at rate.
func traceSampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span == nil {
			return rate
		}
		if ctx.Span.Name == healthTxName {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are the tags attached to a pipeline span.
type SpanAttributes struct {
	SourceID  string
	DocType   string
	Backend   string
	Operation string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	tags := map[string]string{
		"source_id":      a.SourceID,
		"doc_type":       a.DocType,
		"vector_backend": a.Backend,
	}
	for k, v := range tags {
		if v != "" {
			span.SetTag(k, v)
		}
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is a nil-safe handle on a Sentry span.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s == nil || s.inner == nil {
		return
	}
	s.inner.Finish()
}

// SetError marks the span failed and reports err to the span's hub.
func (s *Span) SetError(err error) {
	if s == nil || s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// SetData records a value such as a chunk or batch count on the span.
func (s *Span) SetData(key string, value any) {
	if s == nil || s.inner == nil {
		return
	}
	s.inner.SetData(key, value)
}

// StartSpan opens a child of the span already in ctx, or a new transaction
// when there is none (CLI indexing runs outside any HTTP request).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureError reports err on the request's hub, falling back to the global one.
func CaptureError(ctx context.Context, err error) {
	hubFor(ctx).CaptureException(err)
}

// CaptureMessage reports a non-error event such as an unknown document type.
func CaptureMessage(ctx context.Context, message string) {
	hubFor(ctx).CaptureMessage(message)
}

// AddBreadcrumb records an info-level breadcrumb under category.
func AddBreadcrumb(ctx context.Context, category, message string) {
	hubFor(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}
