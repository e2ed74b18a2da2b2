// Package xkafka 为 confluent-kafka-go 提供链路追踪封装。
//
// # 生产
//
// TracingProducer.Produce 为每条消息创建 PRODUCER span（"kafka publish <topic>"），
// 把 traceparent、traceId、spanId 写入消息头后立即结束 span，再交给底层 Producer 入队。
// 投递回执通过 deliveryChan 原样返回，不会修改已结束的 span。
//
// # 消费
//
// TracingConsumer.ReadMessage 为每条消息创建 CONSUMER span（"kafka consume <topic>"），
// 父 span 依次取自 traceparent、原始 traceId+spanId，都不可用时开始新的 trace。
// 返回的 ctx 携带 CONSUMER span 上下文，日志会自动带上 trace_id。
//
// 不使用封装的 Producer/Consumer 时，可以直接调用 InjectTrace / ExtractTrace。
//
// # Offset 提交模型
//
// 创建消费者时强制 enable.auto.offset.store=false，Consume 在 handler 成功后才 StoreMessage，
// 由 auto-commit 周期性提交，Close 时再显式 Commit 一次（at-least-once）。
//
// # 消息头
//
// Kafka 允许同名消息头重复出现。读取时以最后一个为准；注入时先删除同名头再追加，
// 因此消息中每个追踪头只出现一次。
package xkafka
