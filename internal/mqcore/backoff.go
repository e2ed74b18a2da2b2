package mqcore

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// ConsumeFunc 单次消费。返回 error 时触发退避，返回 nil 时重置退避。
type ConsumeFunc func(ctx context.Context) error

// BackoffPolicy 退避策略。attempt 从 1 开始。
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// BackoffFunc 函数适配器。
type BackoffFunc func(attempt int) time.Duration

// NextDelay 实现 BackoffPolicy。
func (f BackoffFunc) NextDelay(attempt int) time.Duration { return f(attempt) }

// ExponentialBackoff 指数退避：
// delay = min(initial * multiplier^(attempt-1) * (1 ± jitter), max)
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultBackoff 返回默认退避：100ms 起，2 倍增长，上限 30s，10% 抖动。
func DefaultBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Initial:    100 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

// NextDelay 实现 BackoffPolicy。
func (b ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if j := min(max(b.Jitter, 0), 1); j > 0 {
		delay *= 1 + (rand.Float64()*2-1)*j
	}
	// attempt 很大时 Pow 溢出为 +Inf，比较对 NaN 恒为 false
	if math.IsNaN(delay) || delay < 0 || delay >= float64(b.Max) {
		return b.Max
	}
	return time.Duration(delay)
}

// LoopOption 配置 RunConsumeLoop。
type LoopOption func(*loopOptions)

type loopOptions struct {
	backoff BackoffPolicy
	onError func(error)
}

// WithBackoff 设置退避策略，nil 被忽略。
func WithBackoff(b BackoffPolicy) LoopOption {
	return func(o *loopOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithOnError 设置每次消费失败时的回调。
func WithOnError(fn func(error)) LoopOption {
	return func(o *loopOptions) { o.onError = fn }
}

// RunConsumeLoop 循环调用 consume 直到 ctx 取消，返回 ctx.Err()。
// 失败时按退避策略等待后重试，成功后重置退避计数。
func RunConsumeLoop(ctx context.Context, consume ConsumeFunc, opts ...LoopOption) error {
	if consume == nil {
		return ErrNilHandler
	}
	o := &loopOptions{backoff: DefaultBackoff()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := consume(ctx)
		if err == nil {
			attempt = 0
			continue
		}

		attempt++
		if o.onError != nil {
			o.onError(err)
		}
		timer := time.NewTimer(o.backoff.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
