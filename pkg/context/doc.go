// Package context 提供诊断上下文与关联标识相关的子包。
//
// 子包列表：
//   - xctx: 请求作用域的诊断上下文（requestId/traceId/spanId 等），随 context.Context 传递
//   - xcorrelate: 入站关联标识策略，HTTP/gin/gRPC 中间件
//
// 设计原则：
//   - 诊断上下文只通过 context.Context 传递，不依赖 goroutine 本地状态
//   - 工作单元结束时释放作用域，并发请求之间互不可见
package context
