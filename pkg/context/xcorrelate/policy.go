package xcorrelate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/omeyang/tracekit/pkg/context/xctx"
	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/util/xid"
)

// =============================================================================
// 常量
// =============================================================================

const (
	// HeaderTraceID 入站 traceId 头，同时用于回传。
	HeaderTraceID = "X-Trace-Id"
	// HeaderSpanID 入站 spanId 头。
	HeaderSpanID = "X-Span-Id"
	// HeaderCorrelationID X-Trace-Id 缺失时接受的别名。
	HeaderCorrelationID = "X-Correlation-Id"
)

// 诊断上下文中的请求信息键。
const (
	KeyHTTPMethod   = "httpMethod"
	KeyRequestURI   = "requestUri"
	HeaderKeyPrefix = "header."
)

// RequestIDSource 选择 requestId 的生成方式。
type RequestIDSource string

const (
	// RequestIDUUID 随机 UUID，默认值。
	RequestIDUUID RequestIDSource = "uuid"
	// RequestIDSonyflake 时间有序的 sonyflake ID（base36）。
	RequestIDSonyflake RequestIDSource = "sonyflake"
)

// ErrUnknownRequestIDSource 未知的 requestId 来源。
var ErrUnknownRequestIDSource = errors.New("xcorrelate: unknown request id source")

// =============================================================================
// 类型
// =============================================================================

// Identifiers 一个工作单元的关联标识，入口处派生一次。
type Identifiers struct {
	RequestID string
	TraceID   string
	SpanID    string
}

// Inbound 描述一次入站请求中与关联策略有关的部分。
// Headers 的 key 大小写不限，http.Header 与 metadata.MD 都可以直接转换。
type Inbound struct {
	TraceID       string
	CorrelationID string
	SpanID        string
	Method        string
	URI           string
	Headers       map[string][]string
}

// Policy 关联标识策略，创建后只读，可并发使用。
type Policy struct {
	source        RequestIDSource
	generator     *xid.Generator
	shortIDLength int
	traceHeader   string
	spanHeader    string
	aliasHeader   string

	includeRequestInfo bool
	includeHeaders     bool
	headerFilter       map[string]struct{}
	customFields       map[string]string
}

// New 创建策略。默认 UUID requestId、8 位 spanId、包含请求信息、不包含请求头。
func New(opts ...Option) (*Policy, error) {
	p := &Policy{
		source:             RequestIDUUID,
		shortIDLength:      xid.DefaultShortIDLength,
		traceHeader:        HeaderTraceID,
		spanHeader:         HeaderSpanID,
		aliasHeader:        HeaderCorrelationID,
		includeRequestInfo: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	switch p.source {
	case RequestIDUUID:
	case RequestIDSonyflake:
		if p.generator == nil {
			gen, err := xid.NewGenerator()
			if err != nil {
				return nil, fmt.Errorf("xcorrelate: create id generator: %w", err)
			}
			p.generator = gen
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequestIDSource, p.source)
	}
	return p, nil
}

// TraceHeader 入站与回传的 traceId 头名称。
func (p *Policy) TraceHeader() string { return p.traceHeader }

// SpanHeader 入站 spanId 头名称。
func (p *Policy) SpanHeader() string { return p.spanHeader }

// AliasHeader traceId 的别名头名称。
func (p *Policy) AliasHeader() string { return p.aliasHeader }

// Resolve 按策略派生标识，不写诊断上下文。
func (p *Policy) Resolve(ctx context.Context, in Inbound) Identifiers {
	ids := Identifiers{RequestID: p.newRequestID(ctx)}

	switch {
	case !isBlank(in.TraceID):
		ids.TraceID = in.TraceID
	case !isBlank(in.CorrelationID):
		ids.TraceID = in.CorrelationID
	default:
		ids.TraceID = ids.RequestID
	}

	if !isBlank(in.SpanID) {
		ids.SpanID = in.SpanID
	} else {
		ids.SpanID = xid.ShortID(p.shortIDLength)
	}
	return ids
}

// Enter 派生标识并写入诊断上下文，返回的 Scope 必须在工作单元结束时 Release：
//
//	ctx, scope, ids := p.Enter(ctx, in)
//	defer scope.Release()
func (p *Policy) Enter(ctx context.Context, in Inbound) (context.Context, *xctx.Scope, Identifiers) {
	ids := p.Resolve(ctx, in)
	ctx, scope := xctx.Acquire(ctx)

	scope.Set(xctx.KeyRequestID, ids.RequestID)
	scope.Set(xctx.KeyTraceID, ids.TraceID)
	scope.Set(xctx.KeySpanID, ids.SpanID)

	if p.includeRequestInfo {
		scope.Set(KeyHTTPMethod, in.Method)
		scope.Set(KeyRequestURI, in.URI)
	}
	if p.includeHeaders {
		for name, values := range in.Headers {
			lower := strings.ToLower(name)
			if !p.allowHeader(lower) || len(values) == 0 {
				continue
			}
			scope.Set(HeaderKeyPrefix+lower, values[0])
		}
	}
	for k, v := range p.customFields {
		scope.Set(k, v)
	}
	return ctx, scope, ids
}

func (p *Policy) allowHeader(lower string) bool {
	if len(p.headerFilter) == 0 {
		return true
	}
	_, ok := p.headerFilter[lower]
	return ok
}

func (p *Policy) newRequestID(ctx context.Context) string {
	if p.source != RequestIDSonyflake {
		return xid.NewUUID()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := p.generator.NewWithRetry(ctx)
	if err != nil {
		xlog.Warn(ctx, "xcorrelate: sonyflake id unavailable, using uuid", xlog.Err(err))
		return xid.NewUUID()
	}
	return strconv.FormatInt(id, 36)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ParseHeaderFilter 解析逗号分隔的请求头白名单，去空白并转为小写。
// 空字符串表示不过滤。
func ParseHeaderFilter(filter string) []string {
	var names []string
	for part := range strings.SplitSeq(filter, ",") {
		if name := strings.ToLower(strings.TrimSpace(part)); name != "" {
			names = append(names, name)
		}
	}
	return names
}
