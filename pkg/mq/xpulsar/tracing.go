package xpulsar

import (
	"context"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/omeyang/tracekit/internal/mqcore"
)

// MessageHandler 处理一条消息。ctx 携带 CONSUMER span 上下文与诊断上下文。
type MessageHandler func(ctx context.Context, msg pulsar.Message) error

// =============================================================================
// Producer
// =============================================================================

// TracingProducer 在发送前注入追踪信息，其余方法来自嵌入的 pulsar.Producer。
type TracingProducer struct {
	pulsar.Producer
	tracer *Tracer
	topic  string
}

// WrapProducer 包装 Producer。topic 为空时取 producer.Topic()。
func WrapProducer(producer pulsar.Producer, topic string, tracer *Tracer) (*TracingProducer, error) {
	if producer == nil {
		return nil, ErrNilProducer
	}
	if topic == "" {
		topic = producer.Topic()
	}
	return &TracingProducer{Producer: producer, tracer: tracer, topic: topic}, nil
}

// Send 注入追踪信息后同步发送。
func (p *TracingProducer) Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = InjectTrace(ctx, p.tracer, p.topic, msg)
	return p.Producer.Send(ctx, msg)
}

// SendAsync 注入追踪信息后异步发送，callback 原样传给底层 Producer。
func (p *TracingProducer) SendAsync(ctx context.Context, msg *pulsar.ProducerMessage, callback func(pulsar.MessageID, *pulsar.ProducerMessage, error)) {
	if msg == nil {
		if callback != nil {
			callback(nil, nil, ErrNilMessage)
		}
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = InjectTrace(ctx, p.tracer, p.topic, msg)
	p.Producer.SendAsync(ctx, msg, callback)
}

// =============================================================================
// Consumer
// =============================================================================

// TracingConsumer 为每条收到的消息创建 CONSUMER span，其余方法来自嵌入的 pulsar.Consumer。
type TracingConsumer struct {
	pulsar.Consumer
	tracer  *Tracer
	topic   string
	backoff BackoffPolicy
}

// WrapConsumer 包装 Consumer。topic 仅在消息未携带 topic 时用作 span 的目的地。
func WrapConsumer(consumer pulsar.Consumer, topic string, tracer *Tracer) (*TracingConsumer, error) {
	if consumer == nil {
		return nil, ErrNilConsumer
	}
	return &TracingConsumer{
		Consumer: consumer,
		tracer:   tracer,
		topic:    topic,
		backoff:  mqcore.DefaultBackoff(),
	}, nil
}

// SetBackoff 设置 ConsumeLoop 的退避策略，nil 被忽略。
func (c *TracingConsumer) SetBackoff(b BackoffPolicy) {
	if b != nil {
		c.backoff = b
	}
}

// ReceiveWithContext 接收一条消息并创建 CONSUMER span。
func (c *TracingConsumer) ReceiveWithContext(ctx context.Context) (context.Context, pulsar.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	msg, err := c.Receive(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return ExtractTrace(ctx, c.tracer, c.topic, msg), msg, nil
}

// Consume 接收一条消息并执行 handler，成功 Ack，失败 Nack。
//
// handler 执行期间诊断上下文包含 traceId、spanId，返回后清理。
// Ack 失败不作为错误返回，客户端会在后台重试。
func (c *TracingConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if ctx == nil {
		ctx = context.Background()
	}
	msg, err := c.Receive(ctx)
	if err != nil {
		return err
	}

	err = c.tracer.Process(ctx, describe(msg, c.topic), func(ctx context.Context) error {
		return handler(ctx, msg)
	})
	if err != nil {
		c.Nack(msg)
		return err
	}
	_ = c.Ack(msg)
	return nil
}

// ConsumeLoop 循环消费直到 ctx 取消。
func (c *TracingConsumer) ConsumeLoop(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return mqcore.RunConsumeLoop(ctx,
		func(ctx context.Context) error { return c.Consume(ctx, handler) },
		mqcore.WithBackoff(c.backoff),
	)
}
