package xsetup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/omeyang/tracekit/pkg/context/xcorrelate"
	"github.com/omeyang/tracekit/pkg/observability/xexport"
	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/observability/xrotate"
	"github.com/omeyang/tracekit/pkg/observability/xsampling"
	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

// Option 配置 Setup。
type Option func(*options)

type options struct {
	logOutput      io.Writer
	exporterWriter io.Writer
	noGlobals      bool
}

// WithLogOutput 日志输出目标，logging.file 非空时被忽略。
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithExporterWriter stdout 导出器的输出目标。
func WithExporterWriter(w io.Writer) Option {
	return func(o *options) { o.exporterWriter = w }
}

// WithoutGlobals 不注册全局 Logger、Tracer 与 otel 错误处理器。
func WithoutGlobals() Option {
	return func(o *options) { o.noGlobals = true }
}

// Runtime 按 Properties 组装好的组件。
type Runtime struct {
	logger     xlog.LoggerWithLevel
	logCleanup func() error
	exporter   *xexport.Exporter
	tracer     *xspan.Tracer
	policy     *xcorrelate.Policy

	mu    sync.Mutex
	props Properties
}

// Setup 校验配置并构建 Runtime。失败时已创建的资源会被释放。
func Setup(ctx context.Context, props Properties, opts ...Option) (*Runtime, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	logger, cleanup, err := buildLogger(props, o.logOutput)
	if err != nil {
		return nil, fmt.Errorf("xsetup: build logger: %w", err)
	}
	props = clampSampling(ctx, logger, props)

	exp, err := buildExporter(ctx, props, o.exporterWriter)
	if err != nil {
		_ = cleanup()
		return nil, err
	}

	policy, err := xcorrelate.New(policyOptions(props)...)
	if err != nil {
		_ = exp.Shutdown(ctx)
		_ = cleanup()
		return nil, fmt.Errorf("xsetup: build correlation policy: %w", err)
	}

	rt := &Runtime{
		logger:     logger,
		logCleanup: cleanup,
		exporter:   exp,
		tracer:     xspan.NewTracer(xspan.WithExporter(exp)),
		policy:     policy,
		props:      props,
	}
	rt.applyTracing(props.Tracing)

	if !o.noGlobals {
		xlog.SetDefault(logger)
		xspan.SetDefault(rt.tracer)
		otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
			xlog.Warn(context.Background(), "xsetup: span export failed", xlog.Err(err))
		}))
	}

	logger.Info(ctx, "xsetup: observability ready",
		slog.String("service", props.ServiceName),
		slog.String("exporter", string(exp.Kind())),
		slog.Bool("tracing", props.Tracing.Enabled),
		slog.Float64("sampling_ratio", props.Tracing.SamplingRatio))
	return rt, nil
}

func buildLogger(props Properties, out io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	l := props.Logging
	b := xlog.New().
		SetLevelString(l.Level).
		SetFormat(strings.ToLower(l.Format)).
		SetIncludeDiagnostic(l.IncludeMDC).
		SetAttrs(slog.String("service", props.ServiceName))
	switch {
	case l.File != "":
		b.SetRotation(l.File,
			xrotate.WithMaxSize(l.MaxSizeMB),
			xrotate.WithMaxBackups(l.MaxBackups),
			xrotate.WithMaxAge(l.MaxAgeDays),
			xrotate.WithCompress(l.Compress))
	case out != nil:
		b.SetOutput(out)
	}
	return b.Build()
}

func buildExporter(ctx context.Context, props Properties, w io.Writer) (*xexport.Exporter, error) {
	t := props.Tracing
	kind, err := xexport.ParseKind(t.Exporter)
	if err != nil {
		return nil, err
	}
	opts := []xexport.Option{
		xexport.WithServiceName(props.ServiceName),
		xexport.WithEndpoint(t.Endpoint),
		xexport.WithInsecure(t.Insecure),
		xexport.WithTimeout(time.Duration(t.ExporterTimeoutMS) * time.Millisecond),
		xexport.WithBreaker(t.Breaker.Failures, time.Duration(t.Breaker.OpenTimeoutMS)*time.Millisecond),
	}
	if w != nil {
		opts = append(opts, xexport.WithWriter(w))
	}
	return xexport.New(ctx, kind, opts...)
}

func policyOptions(props Properties) []xcorrelate.Option {
	c, l := props.Correlation, props.Logging
	return []xcorrelate.Option{
		xcorrelate.WithRequestIDSource(xcorrelate.RequestIDSource(c.RequestID)),
		xcorrelate.WithShortIDLength(c.ShortIDLength),
		xcorrelate.WithTraceHeader(c.TraceHeader),
		xcorrelate.WithSpanHeader(c.SpanHeader),
		xcorrelate.WithRequestInfo(l.IncludeRequestInfo),
		xcorrelate.WithHeaders(l.IncludeHeaders, xcorrelate.ParseHeaderFilter(l.HeaderFilter)...),
		xcorrelate.WithCustomFields(l.CustomFields),
	}
}

// clampSampling 把越界的采样率钳制到 [0, 1] 并记录 warn。
func clampSampling(ctx context.Context, logger xlog.Logger, props Properties) Properties {
	ratio := props.Tracing.SamplingRatio
	clamped := xsampling.ClampRatio(ratio)
	if clamped != ratio {
		logger.Warn(ctx, "xsetup: sampling ratio out of range, clamped",
			slog.Float64("configured", ratio),
			slog.Float64("effective", clamped))
		props.Tracing.SamplingRatio = clamped
	}
	return props
}

// applyTracing 更新采样器与边界开关，调用方持有 mu 或尚未发布 Runtime
func (r *Runtime) applyTracing(t TracingProperties) {
	r.tracer.SetSampler(xsampling.FromRatio(t.SamplingRatio))
	r.tracer.SetEnabled(xspan.KindServer, t.Enabled && t.Boundaries.Server)
	r.tracer.SetEnabled(xspan.KindProducer, t.Enabled && t.Boundaries.Producer)
	r.tracer.SetEnabled(xspan.KindConsumer, t.Enabled && t.Boundaries.Consumer)
}

// =============================================================================
// 热更新
// =============================================================================

// Apply 热更新采样率、追踪开关、边界开关与日志级别。
//
// 配置非法时返回错误且不做任何修改。其余键的变化只记录 warn 日志，重启后生效。
func (r *Runtime) Apply(props Properties) error {
	if err := props.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	props = clampSampling(context.Background(), r.logger, props)
	r.applyTracing(props.Tracing)
	level, _ := xlog.ParseLevel(props.Logging.Level)
	r.logger.SetLevel(level)

	if changed := restartKeys(r.props, props); len(changed) > 0 {
		r.logger.Warn(context.Background(), "xsetup: changes require restart",
			slog.String("keys", strings.Join(changed, ",")))
	}
	// 需要重启的键保持运行中的值
	applied := r.props
	applied.Tracing.Enabled = props.Tracing.Enabled
	applied.Tracing.SamplingRatio = props.Tracing.SamplingRatio
	applied.Tracing.Boundaries = props.Tracing.Boundaries
	applied.Logging.Level = props.Logging.Level
	r.props = applied

	r.logger.Info(context.Background(), "xsetup: properties applied",
		slog.Bool("tracing", props.Tracing.Enabled),
		slog.Float64("sampling_ratio", props.Tracing.SamplingRatio),
		slog.String("level", props.Logging.Level))
	return nil
}

func restartKeys(old, cur Properties) []string {
	var keys []string
	check := func(key string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			keys = append(keys, key)
		}
	}
	check("service-name", old.ServiceName, cur.ServiceName)
	check("tracing.exporter", old.Tracing.Exporter, cur.Tracing.Exporter)
	check("tracing.endpoint", old.Tracing.Endpoint, cur.Tracing.Endpoint)
	check("tracing.insecure", old.Tracing.Insecure, cur.Tracing.Insecure)
	check("tracing.exporter-timeout-ms", old.Tracing.ExporterTimeoutMS, cur.Tracing.ExporterTimeoutMS)
	check("tracing.breaker", old.Tracing.Breaker, cur.Tracing.Breaker)

	oldLog, curLog := old.Logging, cur.Logging
	oldLog.Level, curLog.Level = "", ""
	check("logging", oldLog, curLog)
	check("correlation", old.Correlation, cur.Correlation)
	return keys
}

// Properties 返回当前生效的配置。
func (r *Runtime) Properties() Properties {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.props
}

// Logger 返回构建的 Logger。
func (r *Runtime) Logger() xlog.LoggerWithLevel { return r.logger }

// Tracer 返回构建的 Tracer。
func (r *Runtime) Tracer() *xspan.Tracer { return r.tracer }

// Exporter 返回 span 导出器。
func (r *Runtime) Exporter() *xexport.Exporter { return r.exporter }

// Policy 返回关联标识策略。
func (r *Runtime) Policy() *xcorrelate.Policy { return r.policy }

// Shutdown 刷新并关闭导出器，然后关闭日志文件。
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	if err := r.exporter.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("xsetup: shutdown exporter: %w", err))
	}
	if err := r.logCleanup(); err != nil {
		errs = append(errs, fmt.Errorf("xsetup: close log output: %w", err))
	}
	return errors.Join(errs...)
}
