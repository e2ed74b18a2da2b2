package mqcore

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/context/xctx"
	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/observability/xspan"
	"github.com/omeyang/tracekit/pkg/observability/xtrace"
)

// Option 配置 Tracer。
type Option func(*Tracer)

// WithSpanTracer 指定创建 span 的 xspan.Tracer，未指定时每次使用 xspan.Default()。
func WithSpanTracer(t *xspan.Tracer) Option {
	return func(tr *Tracer) { tr.spans = t }
}

// WithHeaderNames 自定义消息头名称，空字段保持默认值。
func WithHeaderNames(names HeaderNames) Option {
	return func(tr *Tracer) { tr.names = names.withDefaults() }
}

// Tracer 为消息生产与消费创建 PRODUCER / CONSUMER span。
// 零值不可用，请使用 NewTracer；nil *Tracer 的方法按默认配置工作。
type Tracer struct {
	spans *xspan.Tracer
	names HeaderNames
}

// NewTracer 创建 Tracer。
func NewTracer(opts ...Option) *Tracer {
	t := &Tracer{names: DefaultHeaderNames()}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

var defaultTracer = NewTracer()

func (t *Tracer) orDefault() *Tracer {
	if t == nil {
		return defaultTracer
	}
	return t
}

// HeaderNames 返回使用中的消息头名称。
func (t *Tracer) HeaderNames() HeaderNames { return t.orDefault().names }

func (t *Tracer) spanTracer() *xspan.Tracer {
	if t.spans != nil {
		return t.spans
	}
	return xspan.Default()
}

// =============================================================================
// PRODUCER
// =============================================================================

// Publish 为一次发布创建 PRODUCER span，把 span 上下文写入 msg.Headers 后立即结束 span。
//
// 父 span 取自 ctx 的活动 span context。写入 traceparent 以及原始 traceId、spanId 三个头，
// 同名头被覆盖。msg.Headers 为 nil 时只创建 span 不写入。
// 返回携带 PRODUCER span 上下文的 ctx；PRODUCER 被禁用时原样返回 ctx 且不修改消息头。
//
// 实际发送是异步的，span 不覆盖发送耗时，投递回执也不会再修改该 span。
func (t *Tracer) Publish(ctx context.Context, msg Message) context.Context {
	t = t.orDefault()
	if ctx == nil {
		ctx = context.Background()
	}

	spanCtx, span := xtrace.Begin(ctx, t.spanTracer(), xtrace.Boundary{
		Variant: xtrace.VariantProducer,
		Name:    msg.System + " publish " + msg.Destination,
		Parent:  trace.SpanContextFromContext(ctx),
		Enrich: func(span *xspan.Span) {
			enrichMessage(span, msg, "publish")
		},
	})
	if span == nil {
		return ctx
	}
	t.inject(span.SpanContext(), msg.Headers)
	xtrace.Finish(span, xtrace.Outcome{})
	return spanCtx
}

// Inject 把 ctx 的活动 span context 写入 headers，不创建 span。
// ctx 没有有效 span context 或 headers 为 nil 时不写入。
func (t *Tracer) Inject(ctx context.Context, headers map[string]string) {
	if ctx == nil {
		return
	}
	t.orDefault().inject(trace.SpanContextFromContext(ctx), headers)
}

func (t *Tracer) inject(sc trace.SpanContext, headers map[string]string) {
	if headers == nil || !sc.IsValid() {
		return
	}
	headers[t.names.Traceparent] = xtrace.Encode(sc)
	headers[t.names.TraceID] = sc.TraceID().String()
	headers[t.names.SpanID] = sc.SpanID().String()
}

// =============================================================================
// CONSUMER
// =============================================================================

// Extract 按回退链从消息头解析父 span context：
//
//  1. traceparent 可解码时使用它；
//  2. 否则 traceId 与 spanId 同时存在且有效时使用它们（flags 为 00）；
//  3. 否则返回 false，调用方开始新的 trace。
//
// 解析失败只在 debug 级别记录。
func (t *Tracer) Extract(ctx context.Context, headers map[string]string) (trace.SpanContext, bool) {
	t = t.orDefault()
	if ctx == nil {
		ctx = context.Background()
	}
	if len(headers) == 0 {
		return trace.SpanContext{}, false
	}

	if raw := headers[t.names.Traceparent]; raw != "" {
		sc, err := xtrace.Decode(raw)
		if err == nil {
			return sc, true
		}
		xlog.Debug(ctx, "mqcore: ignoring malformed traceparent header",
			slog.String("header", t.names.Traceparent), xlog.Err(err))
	}

	tid, sid := headers[t.names.TraceID], headers[t.names.SpanID]
	if tid == "" || sid == "" {
		return trace.SpanContext{}, false
	}
	sc, err := xspan.NewRemoteSpanContext(tid, sid, 0)
	if err != nil {
		xlog.Debug(ctx, "mqcore: ignoring invalid raw trace headers",
			slog.String("trace_id", tid), slog.String("span_id", sid), xlog.Err(err))
		return trace.SpanContext{}, false
	}
	return sc, true
}

// Consume 为收到的一条消息创建 CONSUMER span 并立即结束。
//
// 返回携带 CONSUMER span 上下文的 ctx，供后续处理与日志使用；
// CONSUMER 被禁用时返回的 ctx 携带解析出的父 span context（若有）。
func (t *Tracer) Consume(ctx context.Context, msg Message) context.Context {
	t = t.orDefault()
	if ctx == nil {
		ctx = context.Background()
	}
	parent, ok := t.Extract(ctx, msg.Headers)

	spanCtx, span := xtrace.Begin(ctx, t.spanTracer(), xtrace.Boundary{
		Variant: xtrace.VariantConsumer,
		Name:    msg.System + " consume " + msg.Destination,
		Parent:  parent,
		Enrich: func(span *xspan.Span) {
			enrichMessage(span, msg, "consume")
		},
	})
	if span == nil {
		if ok {
			return trace.ContextWithRemoteSpanContext(ctx, parent)
		}
		return ctx
	}
	xtrace.Finish(span, xtrace.Outcome{})
	return spanCtx
}

// Process 消费一条消息：创建 CONSUMER span，在诊断上下文中写入 traceId、spanId，
// 执行 fn，退出时清理诊断上下文（包括 fn panic 的情况）。
func (t *Tracer) Process(ctx context.Context, msg Message, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilHandler
	}
	ctx = t.Consume(ctx, msg)
	return xctx.Run(ctx, func(ctx context.Context, scope *xctx.Scope) error {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			scope.Set(xctx.KeyTraceID, sc.TraceID().String())
			scope.Set(xctx.KeySpanID, sc.SpanID().String())
		}
		return fn(ctx)
	})
}

// =============================================================================
// 属性
// =============================================================================

func enrichMessage(span *xspan.Span, msg Message, operation string) {
	_ = span.SetAttribute(AttrMessagingSystem, msg.System)
	_ = span.SetAttribute(AttrMessagingDestination, msg.Destination)
	_ = span.SetAttribute(AttrMessagingOperation, operation)
	if msg.Partition != NoPartition {
		_ = span.SetAttribute(systemAttr(msg.System, "partition"), int64(msg.Partition))
	}
	if operation != "consume" {
		return
	}
	if msg.Offset != NoOffset {
		_ = span.SetAttribute(systemAttr(msg.System, "offset"), msg.Offset)
	}
	if msg.Key != "" {
		_ = span.SetAttribute(systemAttr(msg.System, "message_key"), msg.Key)
	}
}
