package xkafka

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// messageWriter 是 *kafka.Producer 中本包用到的部分。
type messageWriter interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// TracingProducer 在发送前为每条消息创建 PRODUCER span 并注入追踪头。
type TracingProducer struct {
	writer   messageWriter
	producer *kafka.Producer
	options  *producerOptions

	// mu 保护 Flush/Close，Produce 本身是线程安全的
	mu     sync.Mutex
	closed atomic.Bool
}

// NewTracingProducer 创建 TracingProducer。config 必须包含 "bootstrap.servers"，调用方的 ConfigMap 不会被修改。
func NewTracingProducer(config *kafka.ConfigMap, opts ...ProducerOption) (*TracingProducer, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	cloned := maps.Clone(*config)
	producer, err := kafka.NewProducer(&cloned)
	if err != nil {
		return nil, fmt.Errorf("xkafka: create producer: %w", err)
	}
	p := newTracingProducer(producer, opts...)
	p.producer = producer
	return p, nil
}

func newTracingProducer(w messageWriter, opts ...ProducerOption) *TracingProducer {
	o := defaultProducerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &TracingProducer{writer: w, options: o}
}

// Producer 返回底层 *kafka.Producer，供使用原生 API。
func (p *TracingProducer) Producer() *kafka.Producer { return p.producer }

// Produce 注入追踪头后把消息交给底层 Producer 入队。
// 入队是异步的，投递结果通过 deliveryChan 返回，不影响已结束的 PRODUCER span。
func (p *TracingProducer) Produce(ctx context.Context, msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if msg == nil {
		return ErrNilMessage
	}
	if p.closed.Load() {
		return ErrClosed
	}
	InjectTrace(ctx, p.options.tracer, msg)
	if err := p.writer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("xkafka: produce to %q: %w", topicOf(msg), err)
	}
	return nil
}

// Close 刷新队列后关闭。重复调用返回 ErrClosed。
func (p *TracingProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	remaining := p.writer.Flush(int(p.options.flushTimeout.Milliseconds()))
	p.writer.Close()
	if remaining > 0 {
		return fmt.Errorf("%w: %d messages still in queue", ErrFlushTimeout, remaining)
	}
	return nil
}
