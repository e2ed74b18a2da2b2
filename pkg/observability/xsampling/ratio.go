package xsampling

import "math"

// FromRatio 将配置的采样比率转换为采样器。
//
//   - ratio >= 1：Always
//   - ratio <= 0 或 NaN：Never
//   - 其余：以 trace id 为 key 的 KeyBasedSampler
func FromRatio(ratio float64) Sampler {
	switch {
	case math.IsNaN(ratio) || ratio <= 0:
		return Never()
	case ratio >= 1:
		return Always()
	}
	// ratio 已在 (0, 1) 内，keyFunc 非 nil，不会出错
	s, _ := NewKeyBasedSampler(ratio, TraceIDKey)
	return s
}

// ClampRatio 将比率钳制到 [0, 1]，NaN 视为 0。
func ClampRatio(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio) || ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}
