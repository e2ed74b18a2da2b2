// Package xpulsar 为 pulsar-client-go 提供链路追踪封装。
//
// WrapProducer 包装 pulsar.Producer：Send/SendAsync 前创建 PRODUCER span
// （"pulsar publish <topic>"），把 traceparent、traceId、spanId 写入消息属性后立即结束 span，
// 异步回调不会修改已结束的 span。
//
// WrapConsumer 包装 pulsar.Consumer：每条消息创建 CONSUMER span（"pulsar consume <topic>"），
// 父 span 依次取自 traceparent、原始 traceId+spanId，都不可用时开始新的 trace。
// Consume 在 handler 成功后 Ack，失败时 Nack。
//
// 两者都嵌入原生接口，未覆盖的方法直接可用。
package xpulsar
