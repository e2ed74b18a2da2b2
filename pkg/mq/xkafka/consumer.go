package xkafka

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/tracekit/internal/mqcore"
)

// MessageHandler 处理一条消息。ctx 携带 CONSUMER span 上下文与诊断上下文。
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// messageReader 是 *kafka.Consumer 中本包用到的部分。
type messageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	StoreMessage(msg *kafka.Message) ([]kafka.TopicPartition, error)
	Commit() ([]kafka.TopicPartition, error)
	Close() error
}

// TracingConsumer 为每条收到的消息创建 CONSUMER span。
type TracingConsumer struct {
	reader   messageReader
	consumer *kafka.Consumer
	options  *consumerOptions

	// closeMu 让 Close 等待进行中的 Consume（含 StoreMessage）完成
	closeMu sync.RWMutex
	closed  atomic.Bool
	errors  atomic.Int64
}

// NewTracingConsumer 创建 TracingConsumer 并订阅 topics。
// config 必须包含 "bootstrap.servers" 和 "group.id"；enable.auto.offset.store 被强制设为 false。
func NewTracingConsumer(config *kafka.ConfigMap, topics []string, opts ...ConsumerOption) (*TracingConsumer, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if len(topics) == 0 {
		return nil, ErrEmptyTopics
	}
	cloned := maps.Clone(*config)
	if err := cloned.SetKey("enable.auto.offset.store", false); err != nil {
		return nil, fmt.Errorf("xkafka: configure consumer: %w", err)
	}

	consumer, err := kafka.NewConsumer(&cloned)
	if err != nil {
		return nil, fmt.Errorf("xkafka: create consumer: %w", err)
	}
	if err := consumer.SubscribeTopics(topics, nil); err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("xkafka: subscribe %v: %w", topics, err)
	}

	c := newTracingConsumer(consumer, opts...)
	c.consumer = consumer
	return c, nil
}

func newTracingConsumer(r messageReader, opts ...ConsumerOption) *TracingConsumer {
	o := defaultConsumerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &TracingConsumer{reader: r, options: o}
}

// Consumer 返回底层 *kafka.Consumer。
func (c *TracingConsumer) Consumer() *kafka.Consumer { return c.consumer }

// Errors 返回 ConsumeLoop 中失败的次数。
func (c *TracingConsumer) Errors() int64 { return c.errors.Load() }

// ReadMessage 读取下一条消息并创建 CONSUMER span，轮询超时会继续等待直到 ctx 取消。
func (c *TracingConsumer) ReadMessage(ctx context.Context) (context.Context, *kafka.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	msg, err := c.next(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return ExtractTrace(ctx, c.options.tracer, msg), msg, nil
}

// Consume 读取一条消息并执行 handler。
//
// handler 执行期间诊断上下文包含 traceId、spanId，返回后清理。
// handler 成功后才 StoreMessage（StoreMessage 内部会把 offset 加一）。
func (c *TracingConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if ctx == nil {
		ctx = context.Background()
	}

	msg, err := c.next(ctx)
	if err != nil {
		return err
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed.Load() {
		return ErrClosed
	}

	err = c.options.tracer.Process(ctx, describe(msg, true), func(ctx context.Context) error {
		return handler(ctx, msg)
	})
	if err != nil {
		return err
	}
	if _, err := c.reader.StoreMessage(msg); err != nil {
		return fmt.Errorf("xkafka: store offset: %w", err)
	}
	return nil
}

// next 读取下一条消息，跳过轮询超时。
func (c *TracingConsumer) next(ctx context.Context) (*kafka.Message, error) {
	for {
		if c.closed.Load() {
			return nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := c.reader.ReadMessage(c.options.pollTimeout)
		if err == nil {
			return msg, nil
		}
		var kafkaErr kafka.Error
		if !errors.As(err, &kafkaErr) || kafkaErr.Code() != kafka.ErrTimedOut {
			return nil, err
		}
	}
}

// ConsumeLoop 循环消费直到 ctx 取消，失败时按退避策略等待。
func (c *TracingConsumer) ConsumeLoop(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return mqcore.RunConsumeLoop(ctx,
		func(ctx context.Context) error { return c.Consume(ctx, handler) },
		mqcore.WithBackoff(c.options.backoff),
		mqcore.WithOnError(func(error) { c.errors.Add(1) }),
	)
}

// Close 等待进行中的 Consume 完成，提交已存储的 offset 后关闭。重复调用返回 ErrClosed。
func (c *TracingConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	_, commitErr := c.reader.Commit()
	var kafkaErr kafka.Error
	if errors.As(commitErr, &kafkaErr) && kafkaErr.Code() == kafka.ErrNoOffset {
		commitErr = nil
	}
	closeErr := c.reader.Close()
	if commitErr != nil {
		commitErr = fmt.Errorf("xkafka: commit on close: %w", commitErr)
	}
	return errors.Join(commitErr, closeErr)
}
