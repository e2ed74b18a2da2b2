package xexport

//go:generate mockgen -destination=mock_span_exporter_test.go -package=xexport go.opentelemetry.io/otel/sdk/trace SpanExporter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
	"github.com/omeyang/tracekit/pkg/resilience/xbreaker"
)

// ErrNilSpanExporter NewWithSpanExporter 收到 nil。
var ErrNilSpanExporter = errors.New("xexport: nil span exporter")

// Exporter 实现 xspan.Exporter，并发安全。
type Exporter struct {
	kind      Kind
	processor sdktrace.SpanProcessor
	resource  *resource.Resource
	breaker   *xbreaker.Breaker
	dropped   atomic.Int64
	closed    atomic.Bool
}

// New 按 kind 创建导出器。ctx 只用于建立导出器，不约束其生命周期。
func New(ctx context.Context, kind Kind, opts ...Option) (*Exporter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch kind {
	case KindNone:
		return &Exporter{kind: KindNone}, nil
	case KindOTLPGRPC:
		exp, err = newOTLPGRPC(ctx, o)
	case KindOTLPHTTP:
		exp, err = newOTLPHTTP(ctx, o)
	case KindStdout:
		exp, err = newStdout(o)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("xexport: create %s exporter: %w", kind, err)
	}
	e := newExporter(exp, o)
	e.kind = kind
	return e, nil
}

// NewWithSpanExporter 使用调用方提供的 SpanExporter，例如 tracetest.InMemoryExporter。
func NewWithSpanExporter(exp sdktrace.SpanExporter, opts ...Option) (*Exporter, error) {
	if exp == nil {
		return nil, ErrNilSpanExporter
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return newExporter(exp, o), nil
}

func newExporter(exp sdktrace.SpanExporter, o *options) *Exporter {
	e := &Exporter{resource: newResource(o.serviceName)}
	if o.breakerFailures > 0 {
		be := newBreakerExporter(exp, o, &e.dropped)
		e.breaker = be.breaker
		exp = be
	} else {
		exp = &countingExporter{next: exp, dropped: &e.dropped}
	}
	if o.sync {
		e.processor = sdktrace.NewSimpleSpanProcessor(exp)
	} else {
		e.processor = sdktrace.NewBatchSpanProcessor(exp, sdktrace.WithExportTimeout(o.timeout))
	}
	return e
}

func newResource(serviceName string) *resource.Resource {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(serviceName)))
	if err != nil {
		// schema URL 冲突时仍保留服务名
		return resource.NewSchemaless(semconv.ServiceName(serviceName))
	}
	return res
}

func newOTLPGRPC(ctx context.Context, o *options) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(o.endpoint),
		otlptracegrpc.WithTimeout(o.timeout),
	}
	if o.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func newOTLPHTTP(ctx context.Context, o *options) (sdktrace.SpanExporter, error) {
	endpoint, insecure := splitHTTPEndpoint(o.endpoint)
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithTimeout(o.timeout),
	}
	if insecure || o.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// splitHTTPEndpoint 去掉协议前缀与路径，返回 host:port 以及是否为明文 http。
func splitHTTPEndpoint(endpoint string) (string, bool) {
	insecure := false
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, insecure = rest, true
	} else if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = rest
	}
	if i := strings.IndexByte(endpoint, '/'); i >= 0 {
		endpoint = endpoint[:i]
	}
	return endpoint, insecure
}

func newStdout(o *options) (sdktrace.SpanExporter, error) {
	var opts []stdouttrace.Option
	if o.writer != nil {
		opts = append(opts, stdouttrace.WithWriter(o.writer))
	} else {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	return stdouttrace.New(opts...)
}

// ExportSpan 实现 xspan.Exporter，只做入队，不阻塞调用方。
// Shutdown 之后的调用被忽略。
func (e *Exporter) ExportSpan(ctx context.Context, r xspan.Record) {
	if e == nil || e.processor == nil || e.closed.Load() {
		return
	}
	e.processor.OnEnd(ReadOnly(r, e.resource))
}

// Kind 导出器类型，NewWithSpanExporter 创建的导出器返回空值。
func (e *Exporter) Kind() Kind { return e.kind }

// Dropped 因导出失败或熔断被丢弃的 span 数，是否启用熔断都会计数。
func (e *Exporter) Dropped() int64 { return e.dropped.Load() }

// BreakerState 熔断器状态，未启用熔断时总是 Closed。
func (e *Exporter) BreakerState() xbreaker.State {
	if e.breaker == nil {
		return xbreaker.StateClosed
	}
	return e.breaker.State()
}

// ForceFlush 导出缓冲中的全部 span。
func (e *Exporter) ForceFlush(ctx context.Context) error {
	if e.processor == nil {
		return nil
	}
	return e.processor.ForceFlush(ctx)
}

// Shutdown 刷新缓冲并关闭底层导出器，可重复调用。
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.processor == nil || !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.processor.Shutdown(ctx)
}

var _ xspan.Exporter = (*Exporter)(nil)
