package xbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// =============================================================================
// 默认值
// =============================================================================

const (
	// DefaultFailures 默认的连续失败阈值。
	DefaultFailures = 5
	// DefaultTimeout Open 到 HalfOpen 的默认等待时间。
	DefaultTimeout = 30 * time.Second
)

// ErrNilFunc 传入的操作函数为 nil。
var ErrNilFunc = errors.New("xbreaker: function cannot be nil")

// Breaker 熔断器，并发安全。
type Breaker struct {
	name          string
	tripPolicy    TripPolicy
	timeout       time.Duration
	interval      time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)
	isSuccessful  func(err error) bool

	cb *gobreaker.CircuitBreaker[any]
}

// Option 熔断器配置选项。
type Option func(*Breaker)

// WithTripPolicy 设置熔断判定策略，默认连续失败 5 次。
func WithTripPolicy(p TripPolicy) Option {
	return func(b *Breaker) {
		if p != nil {
			b.tripPolicy = p
		}
	}
}

// WithTimeout 设置 Open 状态持续时间，默认 30s。
func WithTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithInterval 设置 Closed 状态下清除计数的周期，默认 0 表示不清除。
func WithInterval(d time.Duration) Option {
	return func(b *Breaker) {
		if d >= 0 {
			b.interval = d
		}
	}
}

// WithMaxRequests 设置 HalfOpen 状态允许通过的请求数，默认 1。
func WithMaxRequests(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调。回调在熔断器内部锁中同步执行，不应阻塞。
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// WithSuccessPolicy 自定义成功判定，默认 err == nil。
// 例如调用方取消的 context 不应计为后端失败。
func WithSuccessPolicy(fn func(err error) bool) Option {
	return func(b *Breaker) { b.isSuccessful = fn }
}

// New 创建熔断器。name 用于日志与错误信息。
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:        name,
		tripPolicy:  NewConsecutiveFailures(DefaultFailures),
		timeout:     DefaultTimeout,
		maxRequests: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	st := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.maxRequests,
		Interval:    b.interval,
		Timeout:     b.timeout,
		ReadyToTrip: b.tripPolicy.ReadyToTrip,
	}
	if b.isSuccessful != nil {
		st.IsSuccessful = b.isSuccessful
	}
	if b.onStateChange != nil {
		st.OnStateChange = b.onStateChange
	}
	b.cb = gobreaker.NewCircuitBreaker[any](st)
	return b
}

// Do 在熔断器保护下执行 fn。
//
// ctx 已结束时直接返回 ctx 的错误，不计入统计。
// 熔断器拒绝执行时返回 *BreakerError（可用 IsOpen / IsTooManyRequests 判断）。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return wrapBreakerError(err, b.name)
}

// Execute 泛型版本的 Do。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, wrapBreakerError(err, b.name)
	}
	typed, _ := result.(T)
	return typed, nil
}

// State 当前状态。
func (b *Breaker) State() State { return b.cb.State() }

// Name 熔断器名称。
func (b *Breaker) Name() string { return b.name }

// Counts 当前统计计数。
func (b *Breaker) Counts() Counts { return b.cb.Counts() }

// =============================================================================
// 错误
// =============================================================================

// BreakerError 熔断器拒绝执行时返回的错误。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error { return e.Err }

// wrapBreakerError 只包装本熔断器直接返回的 sentinel，状态由错误类型推导。
func wrapBreakerError(err error, name string) error {
	switch {
	case err == nil:
		return nil
	case err == gobreaker.ErrOpenState: //nolint:errorlint // 只匹配直接返回的 sentinel
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case err == gobreaker.ErrTooManyRequests: //nolint:errorlint // 同上
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsOpen 判断 err 是否为熔断器打开错误。
func IsOpen(err error) bool { return errors.Is(err, gobreaker.ErrOpenState) }

// IsTooManyRequests 判断 err 是否为半开状态请求过多错误。
func IsTooManyRequests(err error) bool { return errors.Is(err, gobreaker.ErrTooManyRequests) }

// IsBreakerError 判断 err 是否由熔断器拒绝产生。
func IsBreakerError(err error) bool { return IsOpen(err) || IsTooManyRequests(err) }
