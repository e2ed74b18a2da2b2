package xpulsar

import (
	"context"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/omeyang/tracekit/internal/mqcore"
)

const system = "pulsar"

// InjectTrace 为即将发送的消息创建 PRODUCER span，把追踪字段写入 msg.Properties。
// 返回携带 PRODUCER span 上下文的 ctx。
func InjectTrace(ctx context.Context, tracer *Tracer, topic string, msg *pulsar.ProducerMessage) context.Context {
	if msg == nil {
		return ctx
	}
	if msg.Properties == nil {
		msg.Properties = make(map[string]string, 3)
	}
	return tracer.Publish(ctx, mqcore.NewMessage(system, topic, msg.Properties))
}

// ExtractTrace 为收到的消息创建 CONSUMER span，返回携带其上下文的 ctx。
// fallbackTopic 在消息未携带 topic 时使用。
func ExtractTrace(ctx context.Context, tracer *Tracer, fallbackTopic string, msg pulsar.Message) context.Context {
	if msg == nil {
		return ctx
	}
	return tracer.Consume(ctx, describe(msg, fallbackTopic))
}

func describe(msg pulsar.Message, fallbackTopic string) mqcore.Message {
	topic := msg.Topic()
	if topic == "" {
		topic = fallbackTopic
	}
	m := mqcore.NewMessage(system, topic, msg.Properties())
	m.Key = msg.Key()
	if id := msg.ID(); id != nil {
		if p := id.PartitionIdx(); p >= 0 {
			m.Partition = p
		}
		m.Offset = id.EntryID()
	}
	return m
}
