// Package mqcore 提供消息队列追踪的共享核心，仅供 xkafka 和 xpulsar 使用。
//
// 主要功能：
//   - Tracer：PRODUCER / CONSUMER 边界 span，基于 xtrace.Begin / xtrace.Finish
//   - Message：与具体客户端无关的消息描述（系统、目的地、分区、offset、key、头）
//   - 消费端父 span 回退链：traceparent → 原始 traceId+spanId → 新 trace
//   - RunConsumeLoop：带指数退避的消费循环
//
// 依赖链为：xkafka/xpulsar → internal/mqcore → xtrace/xspan/xctx，不构成循环依赖。
package mqcore
