package mqcore

const (
	// NoPartition 分区未知。
	NoPartition int32 = -1
	// NoOffset offset 未知。
	NoOffset int64 = -1
)

// Message 描述一条消息中与追踪相关的部分。
type Message struct {
	// System 消息系统，如 "kafka"、"pulsar"。
	System string
	// Destination topic 名称。
	Destination string
	// Partition 分区号，NoPartition 表示未知。
	Partition int32
	// Offset 消息 offset，NoOffset 表示未知（仅消费端）。
	Offset int64
	// Key 消息 key，空值不记录（仅消费端）。
	Key string
	// Headers 消息头。生产端注入时写入，消费端只读。
	Headers map[string]string
}

// NewMessage 创建分区与 offset 均未知的消息描述。
func NewMessage(system, destination string, headers map[string]string) Message {
	return Message{
		System:      system,
		Destination: destination,
		Partition:   NoPartition,
		Offset:      NoOffset,
		Headers:     headers,
	}
}

// HeaderNames 消息头中追踪字段的名称。
type HeaderNames struct {
	Traceparent string
	TraceID     string
	SpanID      string
}

// DefaultHeaderNames 返回默认头名称：traceparent、traceId、spanId。
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		Traceparent: "traceparent",
		TraceID:     "traceId",
		SpanID:      "spanId",
	}
}

func (n HeaderNames) withDefaults() HeaderNames {
	def := DefaultHeaderNames()
	if n.Traceparent == "" {
		n.Traceparent = def.Traceparent
	}
	if n.TraceID == "" {
		n.TraceID = def.TraceID
	}
	if n.SpanID == "" {
		n.SpanID = def.SpanID
	}
	return n
}

// 消息 span 属性名
const (
	AttrMessagingSystem      = "messaging.system"
	AttrMessagingDestination = "messaging.destination"
	AttrMessagingOperation   = "messaging.operation"
)

func systemAttr(system, field string) string {
	return "messaging." + system + "." + field
}
