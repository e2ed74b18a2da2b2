package xsampling

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/trace"
)

// KeyFunc 从 ctx 中提取采样 key。返回空字符串时采样器回退到随机采样。
type KeyFunc func(ctx context.Context) string

// TraceIDKey 以 ctx 中 span context 的 trace id 作为采样 key。
//
// 根 span 创建前 tracer 会把新生成的 trace id 放入 ctx（此时 span id 尚未生成，
// SpanContext 本身无效），因此这里只检查 trace id。
func TraceIDKey(ctx context.Context) string {
	tid := trace.SpanContextFromContext(ctx).TraceID()
	if !tid.IsValid() {
		return ""
	}
	return tid.String()
}

// KeyBasedOption 配置 KeyBasedSampler。
type KeyBasedOption func(*KeyBasedSampler)

// WithOnEmptyKey 设置 key 为空时的回调，用于发现传播链路断裂。nil 被忽略。
func WithOnEmptyKey(fn func()) KeyBasedOption {
	return func(s *KeyBasedSampler) {
		if fn != nil {
			s.onEmptyKey = fn
		}
	}
}

// KeyBasedSampler 基于 key 的一致性采样。
//
// 相同 key 在相同 rate 下总是得到相同决策：xxhash 值归一化到 [0, 1] 后与 rate 比较。
type KeyBasedSampler struct {
	rate       float64
	keyFunc    KeyFunc
	onEmptyKey func()
}

// NewKeyBasedSampler 创建基于 key 的一致性采样器。
//
// rate 超出 [0.0, 1.0] 或为 NaN 返回 ErrInvalidRate；keyFunc 为 nil 返回 ErrNilKeyFunc。
func NewKeyBasedSampler(rate float64, keyFunc KeyFunc, opts ...KeyBasedOption) (*KeyBasedSampler, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	if keyFunc == nil {
		return nil, ErrNilKeyFunc
	}
	s := &KeyBasedSampler{rate: rate, keyFunc: keyFunc}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(s)
	}
	return s, nil
}

// ShouldSample 实现 Sampler。
func (s *KeyBasedSampler) ShouldSample(ctx context.Context) bool {
	switch {
	case s.rate <= 0:
		return false
	case s.rate >= 1:
		return true
	}

	var key string
	if ctx != nil {
		key = s.keyFunc(ctx)
	}
	if key == "" {
		if s.onEmptyKey != nil {
			s.onEmptyKey()
		}
		return randomFloat64() < s.rate
	}
	return s.SampleKey(key)
}

// SampleKey 对给定 key 做确定性决策，不经过 keyFunc。
func (s *KeyBasedSampler) SampleKey(key string) bool {
	if s.rate <= 0 {
		return false
	}
	if s.rate >= 1 {
		return true
	}
	// hash == MaxUint64 时归一化结果为 1.0，rate < 1 时不会通过比较
	normalized := float64(xxhash.Sum64String(key)) / float64(math.MaxUint64)
	return normalized < s.rate
}

// Rate 返回采样比率。
func (s *KeyBasedSampler) Rate() float64 { return s.rate }

func validateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	return nil
}

var _ Sampler = (*KeyBasedSampler)(nil)
