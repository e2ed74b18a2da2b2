package xtrace

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
)

// HeaderTraceparent W3C traceparent 头名称。
const HeaderTraceparent = "traceparent"

// Inject 将 ctx 中活动 span context 编码为 traceparent 写入 carrier，已有值被覆盖。
// ctx 中没有有效 span context 时不写入。
func Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	InjectKey(ctx, carrier, HeaderTraceparent)
}

// InjectKey 同 Inject，使用自定义 key。
func InjectKey(ctx context.Context, carrier propagation.TextMapCarrier, key string) {
	if ctx == nil || carrier == nil {
		return
	}
	if tp := Encode(trace.SpanContextFromContext(ctx)); tp != "" {
		carrier.Set(key, tp)
	}
}

// Extract 从 carrier 的 traceparent 解析父 span context。
//
// 缺失返回 false；解析失败在 debug 级别记录后返回 false，不向调用方传播错误。
func Extract(ctx context.Context, carrier propagation.TextMapCarrier) (trace.SpanContext, bool) {
	return ExtractKey(ctx, carrier, HeaderTraceparent)
}

// ExtractKey 同 Extract，使用自定义 key。
func ExtractKey(ctx context.Context, carrier propagation.TextMapCarrier, key string) (trace.SpanContext, bool) {
	if carrier == nil {
		return trace.SpanContext{}, false
	}
	raw := carrier.Get(key)
	if raw == "" {
		return trace.SpanContext{}, false
	}
	sc, err := Decode(raw)
	if err != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		xlog.Debug(ctx, "xtrace: ignoring malformed traceparent",
			slog.String("header", key), xlog.Err(err))
		return trace.SpanContext{}, false
	}
	return sc, true
}

// InjectToRequest 将 ctx 中的 span context 写入出站 HTTP 请求的 traceparent 头。
func InjectToRequest(ctx context.Context, req *http.Request) {
	if req == nil {
		return
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	Inject(ctx, propagation.HeaderCarrier(req.Header))
}
