// Package xtrace 实现 W3C traceparent 编解码与边界 span 生命周期。
//
// # 编解码
//
//	tp := xtrace.Encode(sc)        // 00-<trace-id>-<span-id>-<flags>
//	sc, err := xtrace.Decode(tp)   // 失败返回 ErrDecodeFailure
//
// Decode 的结果总是远端 span context。解析失败永远不会中断处理：
// 提取端在 debug 级别记录后按"无父 span"继续。
//
// # 边界
//
// Begin / Finish 是三类边界共用的生命周期例程：
//
//	ctx, span := xtrace.Begin(ctx, tracer, xtrace.Boundary{Variant: xtrace.VariantServer, ...})
//	defer xtrace.FinishDeferred(span, outcomeFn)
//
// SERVER 变体的传输适配在本包（HTTPMiddleware、GinMiddleware、gRPC 拦截器），
// PRODUCER / CONSUMER 变体在 internal/mqcore，由 xkafka 与 xpulsar 使用。
//
// # 出站传播
//
// InjectToRequest、InjectToOutgoingContext 与 gRPC 客户端拦截器把 ctx 中的活动
// span context 编码为 traceparent 写入出站请求。
package xtrace
