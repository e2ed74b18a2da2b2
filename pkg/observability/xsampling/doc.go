// Package xsampling 提供链路追踪的采样策略。
//
// 采样只做三件事：全采样、不采样、按比率采样。比率采样以 trace id 为 key，
// 使用 xxhash（github.com/cespare/xxhash/v2）做确定性哈希，
// 同一条链路在所有进程中得到相同的决策。
//
// 配置中的采样比率通过 FromRatio 转换：
//
//	sampler := xsampling.FromRatio(0.25)
//	sampled := sampler.ShouldSample(ctx)
//
// 比率越界时被钳制到 [0, 1]，不返回错误；需要严格校验时使用 NewKeyBasedSampler。
//
// 所有采样器都可以在多个 goroutine 中并发使用。
package xsampling
