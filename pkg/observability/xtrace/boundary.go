package xtrace

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

// =============================================================================
// 边界 span 生命周期
//
// 三类边界共用一个例程：Begin 创建并丰富 span，Finish 映射状态并结束。
// 状态机 CREATED → ENRICHED → ENDED，Finish 只在 defer 中调用。
// =============================================================================

// Variant 边界类型。
type Variant int

const (
	// VariantServer 同步请求/响应入口。
	VariantServer Variant = iota
	// VariantProducer 异步发布。
	VariantProducer
	// VariantConsumer 异步消费（每条消息一个 span）。
	VariantConsumer
)

func (v Variant) String() string {
	switch v {
	case VariantServer:
		return "server"
	case VariantProducer:
		return "producer"
	case VariantConsumer:
		return "consumer"
	default:
		return "Variant(" + strconv.Itoa(int(v)) + ")"
	}
}

// Kind 返回边界对应的 span 类型。
func (v Variant) Kind() xspan.Kind {
	switch v {
	case VariantProducer:
		return xspan.KindProducer
	case VariantConsumer:
		return xspan.KindConsumer
	default:
		return xspan.KindServer
	}
}

// Boundary 描述一次边界穿越。
type Boundary struct {
	Variant Variant
	Name    string
	// Parent 父 span context，无效时创建根 span。
	Parent trace.SpanContext
	// Enrich 在 span 创建后立即调用，用于设置各变体的属性。
	// Enrich 中的 panic 被捕获并在 debug 级别记录，已写入的属性保留。
	Enrich func(span *xspan.Span)
}

// Begin 创建边界 span 并把它的上下文设为返回 ctx 的活动 span context。
//
// tracer 为 nil 时使用 xspan.Default()。该边界类型被禁用时返回原 ctx 和 nil span，
// nil span 上的所有操作以及 Finish 都是空操作。
func Begin(ctx context.Context, tracer *xspan.Tracer, b Boundary) (context.Context, *xspan.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = xspan.Default()
	}
	kind := b.Variant.Kind()
	if !tracer.Enabled(kind) {
		return ctx, nil
	}

	span := tracer.Start(ctx, b.Name, kind, b.Parent)
	if b.Enrich != nil {
		enrich(ctx, span, b.Enrich)
	}
	return xspan.ContextWithSpan(ctx, span), span
}

func enrich(ctx context.Context, span *xspan.Span, fn func(*xspan.Span)) {
	defer func() {
		if p := recover(); p != nil {
			xlog.Debug(ctx, "xtrace: span enrichment failed",
				slog.String("span", span.Name()),
				slog.String("panic", fmt.Sprint(p)))
		}
	}()
	fn(span)
}

// Outcome 工作单元的结果。
type Outcome struct {
	// Err 处理返回的错误。
	Err error
	// Panic recover 得到的值，nil 表示没有 panic。
	Panic any
	// StatusCode HTTP 状态码，0 表示不适用（gRPC、消息）。
	StatusCode int
}

// Finish 根据结果设置状态并结束 span，返回 End 的结果。
//
// SERVER：
//   - panic 或 err：ERROR，描述为 panic 值或错误信息
//   - 状态码 >= 500：ERROR，描述为 "HTTP <code>"
//   - 状态码 >= 400：UNSET（客户端错误不算服务端失败）
//   - 其余：OK
//
// PRODUCER / CONSUMER：只有 err 或 panic 时设为 ERROR，否则保持 UNSET。
func Finish(span *xspan.Span, out Outcome) bool {
	if span == nil {
		return false
	}
	if out.StatusCode > 0 {
		_ = span.SetAttribute(AttrHTTPStatusCode, out.StatusCode)
	}

	if msg, failed := out.failure(); failed {
		span.SetStatus(codes.Error, msg)
		return span.End()
	}

	if span.Kind() == xspan.KindServer {
		switch {
		case out.StatusCode >= 500:
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(out.StatusCode))
		case out.StatusCode >= 400:
		default:
			span.SetStatus(codes.Ok, "")
		}
	}
	return span.End()
}

func (o Outcome) failure() (string, bool) {
	if o.Panic != nil {
		return fmt.Sprint(o.Panic), true
	}
	if o.Err != nil {
		return o.Err.Error(), true
	}
	return "", false
}

// FinishDeferred 供 defer 直接调用：捕获 panic，记录到 span 后结束，再重新抛出。
//
//	ctx, span := xtrace.Begin(ctx, tracer, b)
//	defer xtrace.FinishDeferred(span, func() xtrace.Outcome { return xtrace.Outcome{StatusCode: rec.status} })
//
// outcome 在 span 结束前调用，用于读取处理结束时的状态码或错误。
func FinishDeferred(span *xspan.Span, outcome func() Outcome) {
	p := recover()
	var out Outcome
	if outcome != nil {
		out = outcome()
	}
	if p != nil {
		out.Panic = p
	}
	Finish(span, out)
	if p != nil {
		panic(p)
	}
}
