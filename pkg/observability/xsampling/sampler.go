package xsampling

import "context"

// Sampler 采样策略接口。
//
// ShouldSample 返回 true 表示采样。ctx 携带决策所需的信息，
// 根 span 的采样场景下为待创建 span 的 trace id（见 TraceIDKey）。
type Sampler interface {
	ShouldSample(ctx context.Context) bool
}

// SamplerFunc 将普通函数适配为 Sampler。
type SamplerFunc func(ctx context.Context) bool

// ShouldSample 实现 Sampler。
func (f SamplerFunc) ShouldSample(ctx context.Context) bool { return f(ctx) }
