// Package xbreaker 基于 [sony/gobreaker/v2] 的熔断器。
//
// span 导出器通过 Breaker 包装：后端不可达时熔断器打开，
// 后续导出直接失败（span 被丢弃），不再阻塞或堆积；
// 超时后进入半开状态探测，成功即恢复。
//
// 熔断判定策略（TripPolicy）：
//   - ConsecutiveFailuresPolicy：连续失败 N 次
//   - FailureRatioPolicy：达到最小请求数后失败率超过阈值
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
