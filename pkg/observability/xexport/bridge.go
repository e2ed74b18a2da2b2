package xexport

import (
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

// ScopeName 导出 span 的 instrumentation scope 名称。
const ScopeName = "github.com/omeyang/tracekit"

// Stub 将 span 记录转换为 SDK 的 SpanStub。res 为 nil 时不设置 resource。
func Stub(r xspan.Record, res *resource.Resource) tracetest.SpanStub {
	return tracetest.SpanStub{
		Name:        r.Name,
		SpanContext: r.SpanContext,
		Parent:      r.Parent,
		SpanKind:    r.Kind.SpanKind(),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Attributes:  r.Attributes,
		Status: sdktrace.Status{
			Code:        r.Status,
			Description: r.StatusMessage,
		},
		Resource:             res,
		InstrumentationScope: instrumentation.Scope{Name: ScopeName},
	}
}

// ReadOnly 将 span 记录转换为 SpanProcessor 可接受的 ReadOnlySpan。
func ReadOnly(r xspan.Record, res *resource.Resource) sdktrace.ReadOnlySpan {
	return Stub(r, res).Snapshot()
}
