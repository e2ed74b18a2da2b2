package xkafka

import (
	"time"

	"github.com/omeyang/tracekit/internal/mqcore"
)

// Tracer 消息追踪器，见 NewTracer。
type Tracer = mqcore.Tracer

// TracerOption 配置 Tracer。
type TracerOption = mqcore.Option

// HeaderNames 消息头中追踪字段的名称。
type HeaderNames = mqcore.HeaderNames

// BackoffPolicy 消费循环的退避策略。
type BackoffPolicy = mqcore.BackoffPolicy

// NewTracer 创建消息追踪器。
var NewTracer = mqcore.NewTracer

// WithSpanTracer 指定创建 span 的 xspan.Tracer。
var WithSpanTracer = mqcore.WithSpanTracer

// WithHeaderNames 自定义追踪头名称。
var WithHeaderNames = mqcore.WithHeaderNames

// =============================================================================
// Producer 选项
// =============================================================================

type producerOptions struct {
	tracer       *Tracer
	flushTimeout time.Duration
}

func defaultProducerOptions() *producerOptions {
	return &producerOptions{flushTimeout: 10 * time.Second}
}

// ProducerOption 配置 TracingProducer。
type ProducerOption func(*producerOptions)

// WithProducerTracer 设置追踪器，未设置时使用默认头名称与 xspan.Default()。
func WithProducerTracer(t *Tracer) ProducerOption {
	return func(o *producerOptions) { o.tracer = t }
}

// WithProducerFlushTimeout 设置关闭时的刷新超时。
func WithProducerFlushTimeout(d time.Duration) ProducerOption {
	return func(o *producerOptions) {
		if d > 0 {
			o.flushTimeout = d
		}
	}
}

// =============================================================================
// Consumer 选项
// =============================================================================

type consumerOptions struct {
	tracer      *Tracer
	pollTimeout time.Duration
	backoff     BackoffPolicy
}

func defaultConsumerOptions() *consumerOptions {
	return &consumerOptions{
		pollTimeout: 100 * time.Millisecond,
		backoff:     mqcore.DefaultBackoff(),
	}
}

// ConsumerOption 配置 TracingConsumer。
type ConsumerOption func(*consumerOptions)

// WithConsumerTracer 设置追踪器。
func WithConsumerTracer(t *Tracer) ConsumerOption {
	return func(o *consumerOptions) { o.tracer = t }
}

// WithConsumerPollTimeout 设置单次轮询超时。
func WithConsumerPollTimeout(d time.Duration) ConsumerOption {
	return func(o *consumerOptions) {
		if d > 0 {
			o.pollTimeout = d
		}
	}
}

// WithConsumerBackoff 设置 ConsumeLoop 的退避策略。
func WithConsumerBackoff(b BackoffPolicy) ConsumerOption {
	return func(o *consumerOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}
