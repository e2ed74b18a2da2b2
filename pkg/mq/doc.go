// Package mq 提供消息队列追踪相关的子包。
//
// 子包列表：
//   - xkafka: confluent-kafka-go 生产/消费追踪拦截器
//   - xpulsar: pulsar-client-go 生产/消费追踪拦截器
//
// 内部包：
//   - internal/mqcore: 消息头注入/提取、PRODUCER/CONSUMER span 与重试退避
//
// 生产者在消息头写入 traceparent 以及兼容的 traceId/spanId，
// 消费者以每条消息为单位创建 CONSUMER span。
package mq
