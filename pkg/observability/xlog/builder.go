package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/omeyang/tracekit/pkg/observability/xrotate"
)

// 输出格式
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ReplaceAttrFunc 属性替换函数，返回空 Key 的 Attr 表示移除该属性。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Builder 日志构建器。
type Builder struct {
	output            io.Writer
	levelVar          *slog.LevelVar
	format            string
	addSource         bool
	enrich            bool
	includeDiagnostic bool
	attrs             []slog.Attr
	replaceAttr       ReplaceAttrFunc
	rotator           xrotate.Rotator
	onError           func(error)
	err               error
}

// New 创建构建器：stderr、Info、text、启用 trace 注入、注入诊断上下文。
func New() *Builder {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)
	return &Builder{
		output:            os.Stderr,
		levelVar:          lv,
		format:            FormatText,
		enrich:            true,
		includeDiagnostic: true,
	}
}

func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 解析失败时错误延迟到 Build 返回。
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.err = err
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式 text 或 json，空值保持默认。
func (b *Builder) SetFormat(format string) *Builder {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
	case FormatText, FormatJSON:
		b.format = f
	default:
		b.err = fmt.Errorf("xlog: unknown format %q", format)
	}
	return b
}

func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否注入 trace_id/span_id/trace_flags。
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enrich = enable
	return b
}

// SetIncludeDiagnostic 是否注入诊断上下文条目（requestId、traceId、header.* 等）。
func (b *Builder) SetIncludeDiagnostic(enable bool) *Builder {
	b.includeDiagnostic = enable
	return b
}

// SetAttrs 追加固定属性，例如服务名。
func (b *Builder) SetAttrs(attrs ...slog.Attr) *Builder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// SetRotation 输出到按大小轮转的文件。
func (b *Builder) SetRotation(filename string, opts ...xrotate.Option) *Builder {
	r, err := xrotate.NewLumberjack(filename, opts...)
	if err != nil {
		b.err = err
		return b
	}
	b.rotator = r
	b.output = r
	return b
}

// SetOnError 设置 handler 写出失败时的回调，回调在日志调用方 goroutine 中同步执行。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// Build 构建 Logger，返回的 cleanup 关闭轮转文件（幂等）。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{Level: b.levelVar, AddSource: b.addSource}
	if b.replaceAttr != nil {
		opts.ReplaceAttr = b.replaceAttr
	}

	var handler slog.Handler
	if b.format == FormatJSON {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}

	if b.enrich || b.includeDiagnostic {
		eh, err := NewEnrichHandler(handler, WithTrace(b.enrich), WithDiagnostic(b.includeDiagnostic))
		if err != nil {
			return nil, nil, err
		}
		handler = eh
	}
	if len(b.attrs) > 0 {
		handler = handler.WithAttrs(b.attrs)
	}

	logger := &xlogger{
		handler: handler,
		state: &loggerState{
			levelVar:  b.levelVar,
			onError:   b.onError,
			addSource: b.addSource,
		},
	}
	return logger, b.cleanup(), nil
}

func (b *Builder) cleanup() func() error {
	var once sync.Once
	rotator := b.rotator
	return func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
}
