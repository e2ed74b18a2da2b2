package xcorrelate

import (
	"maps"
	"strings"

	"github.com/omeyang/tracekit/pkg/util/xid"
)

// Option 配置 Policy。
type Option func(*Policy)

// WithRequestIDSource 设置 requestId 来源，默认 [RequestIDUUID]。
func WithRequestIDSource(src RequestIDSource) Option {
	return func(p *Policy) {
		if src != "" {
			p.source = src
		}
	}
}

// WithGenerator 使用指定的 sonyflake 生成器，同时把来源设为 [RequestIDSonyflake]。
func WithGenerator(g *xid.Generator) Option {
	return func(p *Policy) {
		if g != nil {
			p.generator = g
			p.source = RequestIDSonyflake
		}
	}
}

// WithShortIDLength 设置生成的 spanId 长度，非正值被忽略。
func WithShortIDLength(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.shortIDLength = n
		}
	}
}

// WithTraceHeader 自定义 traceId 头名称，空值被忽略。
func WithTraceHeader(name string) Option {
	return func(p *Policy) {
		if name != "" {
			p.traceHeader = name
		}
	}
}

// WithSpanHeader 自定义 spanId 头名称，空值被忽略。
func WithSpanHeader(name string) Option {
	return func(p *Policy) {
		if name != "" {
			p.spanHeader = name
		}
	}
}

// WithAliasHeader 自定义 traceId 别名头，传入空值关闭别名。
func WithAliasHeader(name string) Option {
	return func(p *Policy) { p.aliasHeader = name }
}

// WithRequestInfo 是否写入 httpMethod 与 requestUri。
func WithRequestInfo(include bool) Option {
	return func(p *Policy) { p.includeRequestInfo = include }
}

// WithHeaders 写入请求头 header.<小写名>。allow 为空时写入全部请求头，
// 否则只写入名单内的（大小写不敏感）。
func WithHeaders(include bool, allow ...string) Option {
	return func(p *Policy) {
		p.includeHeaders = include
		p.headerFilter = nil
		for _, name := range allow {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if p.headerFilter == nil {
				p.headerFilter = make(map[string]struct{}, len(allow))
			}
			p.headerFilter[name] = struct{}{}
		}
	}
}

// WithCustomFields 每个请求都写入的静态字段。
func WithCustomFields(fields map[string]string) Option {
	return func(p *Policy) { p.customFields = maps.Clone(fields) }
}
