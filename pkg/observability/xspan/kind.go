package xspan

import (
	"strconv"

	"go.opentelemetry.io/otel/trace"
)

// Kind span 类型。
type Kind int

const (
	KindInternal Kind = iota
	KindServer
	KindClient
	KindProducer
	KindConsumer

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "INTERNAL"
	case KindServer:
		return "SERVER"
	case KindClient:
		return "CLIENT"
	case KindProducer:
		return "PRODUCER"
	case KindConsumer:
		return "CONSUMER"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// SpanKind 转换为 OpenTelemetry 的 span kind，未知值映射为 Internal。
func (k Kind) SpanKind() trace.SpanKind {
	switch k {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	case KindProducer:
		return trace.SpanKindProducer
	case KindConsumer:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

func (k Kind) valid() bool { return k >= KindInternal && k < numKinds }
