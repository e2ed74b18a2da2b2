package xexport

import (
	"context"
	"log/slog"
	"sync/atomic"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/resilience/xbreaker"
)

// breakerExporter 在熔断器打开时丢弃批次。
type breakerExporter struct {
	next    sdktrace.SpanExporter
	breaker *xbreaker.Breaker
	dropped *atomic.Int64
}

func newBreakerExporter(next sdktrace.SpanExporter, o *options, dropped *atomic.Int64) *breakerExporter {
	b := xbreaker.New("span-exporter",
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(o.breakerFailures)),
		xbreaker.WithTimeout(o.breakerOpen),
		xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
			xlog.Warn(context.Background(), "xexport: circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		}),
	)
	return &breakerExporter{next: next, breaker: b, dropped: dropped}
}

func (e *breakerExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	err := e.breaker.Do(ctx, func() error {
		return e.next.ExportSpans(ctx, spans)
	})
	if err == nil {
		return nil
	}
	e.dropped.Add(int64(len(spans)))
	if xbreaker.IsBreakerError(err) {
		return nil
	}
	return err
}

func (e *breakerExporter) Shutdown(ctx context.Context) error {
	return e.next.Shutdown(ctx)
}

// countingExporter 未启用熔断时只统计导出失败的 span 数。
type countingExporter struct {
	next    sdktrace.SpanExporter
	dropped *atomic.Int64
}

func (e *countingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	err := e.next.ExportSpans(ctx, spans)
	if err != nil {
		e.dropped.Add(int64(len(spans)))
	}
	return err
}

func (e *countingExporter) Shutdown(ctx context.Context) error {
	return e.next.Shutdown(ctx)
}
