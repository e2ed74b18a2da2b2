package xkafka

import (
	"context"
	"maps"
	"slices"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/tracekit/internal/mqcore"
)

const system = "kafka"

// headersToMap 转换消息头，同名头以最后一个为准。
func headersToMap(headers []kafka.Header) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}

// setHeader 删除所有同名头后追加一个新值。
func setHeader(msg *kafka.Message, key, value string) {
	kept := make([]kafka.Header, 0, len(msg.Headers)+1)
	for _, h := range msg.Headers {
		if h.Key != key {
			kept = append(kept, h)
		}
	}
	msg.Headers = append(kept, kafka.Header{Key: key, Value: []byte(value)})
}

func topicOf(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}

// describe 生成消息描述。offset 仅对已消费的消息有意义。
func describe(msg *kafka.Message, consumed bool) mqcore.Message {
	m := mqcore.NewMessage(system, topicOf(msg), nil)
	if p := msg.TopicPartition.Partition; p != kafka.PartitionAny {
		m.Partition = p
	}
	if consumed {
		m.Headers = headersToMap(msg.Headers)
		if off := msg.TopicPartition.Offset; off >= 0 {
			m.Offset = int64(off)
		}
		if len(msg.Key) > 0 {
			m.Key = string(msg.Key)
		}
	}
	return m
}

// InjectTrace 为即将发送的消息创建 PRODUCER span 并写入追踪头，同名头被替换。
// 返回携带 PRODUCER span 上下文的 ctx。tracer 为 nil 时使用默认配置。
func InjectTrace(ctx context.Context, tracer *Tracer, msg *kafka.Message) context.Context {
	if msg == nil {
		return ctx
	}
	desc := describe(msg, false)
	// 只接收注入结果，再逐个替换到消息头
	desc.Headers = make(map[string]string, 3)
	ctx = tracer.Publish(ctx, desc)
	for _, key := range slices.Sorted(maps.Keys(desc.Headers)) {
		setHeader(msg, key, desc.Headers[key])
	}
	return ctx
}

// ExtractTrace 为收到的消息创建 CONSUMER span，返回携带其上下文的 ctx。
func ExtractTrace(ctx context.Context, tracer *Tracer, msg *kafka.Message) context.Context {
	if msg == nil {
		return ctx
	}
	return tracer.Consume(ctx, describe(msg, true))
}
