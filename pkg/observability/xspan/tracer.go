package xspan

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/observability/xsampling"
)

// Option 配置 Tracer。
type Option func(*Tracer)

// WithSampler 设置根 span 的采样器，nil 被忽略。
func WithSampler(s xsampling.Sampler) Option {
	return func(t *Tracer) {
		if s != nil {
			t.SetSampler(s)
		}
	}
}

// WithExporter 设置导出器，nil 被忽略。
func WithExporter(e Exporter) Option {
	return func(t *Tracer) {
		if e != nil {
			t.exporter = e
		}
	}
}

// WithIDGenerator 设置标识符生成器，nil 被忽略。
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracer) {
		if g != nil {
			t.ids = g
		}
	}
}

// WithClock 设置时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(t *Tracer) {
		if now != nil {
			t.now = now
		}
	}
}

// samplerBox 让 atomic.Pointer 持有接口值
type samplerBox struct{ xsampling.Sampler }

// Tracer 创建 span 并在结束时交给 Exporter。
//
// 采样器与各 Kind 的启用开关可在运行时原子修改，配置热更新不需要重建 Tracer。
type Tracer struct {
	sampler  atomic.Pointer[samplerBox]
	exporter Exporter
	ids      IDGenerator
	now      func() time.Time
	disabled [numKinds]atomic.Bool
}

// NewTracer 创建 Tracer。默认全采样、丢弃导出、crypto/rand 标识符。
func NewTracer(opts ...Option) *Tracer {
	t := &Tracer{
		exporter: NoopExporter{},
		ids:      NewIDGenerator(),
		now:      time.Now,
	}
	t.sampler.Store(&samplerBox{xsampling.Always()})
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// SetSampler 原子替换采样器，nil 被忽略。只影响之后创建的根 span。
func (t *Tracer) SetSampler(s xsampling.Sampler) {
	if s == nil {
		return
	}
	t.sampler.Store(&samplerBox{s})
}

// Sampler 返回当前采样器。
func (t *Tracer) Sampler() xsampling.Sampler { return t.sampler.Load().Sampler }

// SetEnabled 开关某一类 span。关闭的类型由边界层直接放行，不创建 span。
func (t *Tracer) SetEnabled(kind Kind, enabled bool) {
	if kind.valid() {
		t.disabled[kind].Store(!enabled)
	}
}

// Enabled 报告某一类 span 是否启用。
func (t *Tracer) Enabled(kind Kind) bool {
	return kind.valid() && !t.disabled[kind].Load()
}

// Start 创建 span。
//
// parent 有效时新 span 沿用其 trace id 并继承 sampled 标志；
// 否则生成新 trace id，由采样器按该 trace id 决策。
// Start 不检查 Enabled，是否创建由调用方决定。
func (t *Tracer) Start(ctx context.Context, name string, kind Kind, parent trace.SpanContext) *Span {
	if ctx == nil {
		ctx = context.Background()
	}
	if !kind.valid() {
		kind = KindInternal
	}

	var cfg trace.SpanContextConfig
	if parent.IsValid() {
		cfg.TraceID = parent.TraceID()
		cfg.SpanID = t.ids.NewSpanID(ctx, parent.TraceID())
		cfg.TraceFlags = parent.TraceFlags()
		cfg.TraceState = parent.TraceState()
	} else {
		parent = trace.SpanContext{}
		cfg.TraceID, cfg.SpanID = t.ids.NewIDs(ctx)
		if t.shouldSample(ctx, cfg.TraceID) {
			cfg.TraceFlags = trace.FlagsSampled
		}
	}

	return &Span{
		tracer: t,
		name:   name,
		kind:   kind,
		sc:     trace.NewSpanContext(cfg),
		parent: parent,
		start:  t.now(),
	}
}

// shouldSample 把待定的 trace id 放进 ctx 交给采样器（见 xsampling.TraceIDKey）
func (t *Tracer) shouldSample(ctx context.Context, tid trace.TraceID) bool {
	pending := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid})
	return t.Sampler().ShouldSample(trace.ContextWithSpanContext(ctx, pending))
}

func (t *Tracer) export(r Record) {
	defer func() {
		if p := recover(); p != nil {
			xlog.Warn(context.Background(), "xspan: exporter panicked, span dropped",
				slog.String("span", r.Name),
				slog.String("panic", fmt.Sprint(p)))
		}
	}()
	t.exporter.ExportSpan(context.Background(), r)
}

// =============================================================================
// 全局 Tracer
// =============================================================================

var defaultTracer atomic.Pointer[Tracer]

// Default 返回全局 Tracer，未设置时惰性创建一个丢弃导出的 Tracer。
func Default() *Tracer {
	if t := defaultTracer.Load(); t != nil {
		return t
	}
	defaultTracer.CompareAndSwap(nil, NewTracer())
	return defaultTracer.Load()
}

// SetDefault 替换全局 Tracer，nil 被忽略。
func SetDefault(t *Tracer) {
	if t != nil {
		defaultTracer.Store(t)
	}
}

// ContextWithSpan 将 span 的上下文设为 ctx 的活动 span context。nil span 时原样返回。
func ContextWithSpan(ctx context.Context, s *Span) context.Context {
	if s == nil {
		return ctx
	}
	return trace.ContextWithSpanContext(ctx, s.SpanContext())
}
