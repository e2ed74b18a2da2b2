package xtrace

import "github.com/omeyang/tracekit/pkg/observability/xspan"

// Option 中间件/拦截器选项，HTTP、gin、gRPC 共用。
type Option func(*config)

type config struct {
	tracer         *xspan.Tracer
	traceparentKey string
}

// WithTracer 指定 Tracer。未指定时每次请求使用 xspan.Default()，
// 因此启动后通过 xspan.SetDefault 替换的 Tracer 会立即生效。
func WithTracer(t *xspan.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

// WithTraceparentHeader 自定义入站 traceparent 头名称。空值被忽略。
func WithTraceparentHeader(name string) Option {
	return func(c *config) {
		if name != "" {
			c.traceparentKey = name
		}
	}
}

func applyOptions(opts []Option) *config {
	c := &config{traceparentKey: HeaderTraceparent}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *config) getTracer() *xspan.Tracer {
	if c.tracer != nil {
		return c.tracer
	}
	return xspan.Default()
}
