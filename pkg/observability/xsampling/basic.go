package xsampling

import "context"

type constSampler bool

func (s constSampler) ShouldSample(context.Context) bool { return bool(s) }

// Always 返回全采样策略。
func Always() Sampler { return constSampler(true) }

// Never 返回不采样策略。
func Never() Sampler { return constSampler(false) }
