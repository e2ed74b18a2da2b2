package xlog

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/context/xctx"
)

// ErrNilHandler NewEnrichHandler 的 base 为 nil。
var ErrNilHandler = errors.New("xlog: base handler is nil")

// EnrichHandler 从 ctx 提取追踪信息注入日志。
//
// 注入内容：
//   - trace_id, span_id, trace_flags：ctx 中存在有效 span context 时
//   - 诊断上下文的全部条目（按 key 排序）：includeStore 为 true 时
//
// 缺失的字段直接跳过，不影响日志写出。
// 对带 enrich 的 handler 调用 WithGroup 后，注入字段会落到该分组下，这是 slog 的分组语义。
type EnrichHandler struct {
	base         slog.Handler
	includeTrace bool
	includeStore bool
}

// EnrichOption 配置 EnrichHandler。
type EnrichOption func(*EnrichHandler)

// WithDiagnostic 是否注入诊断上下文条目。
func WithDiagnostic(include bool) EnrichOption {
	return func(h *EnrichHandler) { h.includeStore = include }
}

// WithTrace 是否注入 trace_id/span_id/trace_flags，默认开启。
func WithTrace(include bool) EnrichOption {
	return func(h *EnrichHandler) { h.includeTrace = include }
}

// NewEnrichHandler 创建 EnrichHandler。
func NewEnrichHandler(base slog.Handler, opts ...EnrichOption) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	h := &EnrichHandler{base: base, includeTrace: true}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// 栈上缓冲的容量：三个 trace 字段加上常见规模的诊断上下文
const enrichBufSize = 16

// Handle 按 slog 契约先 Clone record 再追加属性。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.base.Handle(ctx, r)
	}
	var buf [enrichBufSize]slog.Attr
	attrs := buf[:0]
	if h.includeTrace {
		attrs = AppendTraceAttrs(attrs, ctx)
	}
	if h.includeStore {
		attrs = xctx.AppendStoreAttrs(attrs, ctx)
	}
	if len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs), includeTrace: h.includeTrace, includeStore: h.includeStore}
}

func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name), includeTrace: h.includeTrace, includeStore: h.includeStore}
}

// AppendTraceAttrs 追加 ctx 中活动 span context 的 trace_id、span_id、trace_flags。
func AppendTraceAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return attrs
	}
	return append(attrs,
		slog.String(KeyTraceID, sc.TraceID().String()),
		slog.String(KeySpanID, sc.SpanID().String()),
		slog.String(KeyTraceFlags, sc.TraceFlags().String()),
	)
}
