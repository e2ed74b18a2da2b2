// Package xcorrelate 为每个入站工作单元派生关联标识并写入诊断上下文。
//
// 每个请求得到三个标识：
//
//	requestId = 新 UUID（或配置为 sonyflake 时的时间有序 ID）
//	traceId   = X-Trace-Id（非空白时），否则 X-Correlation-Id，否则 requestId
//	spanId    = X-Span-Id（非空白时），否则 8 位小写十六进制短 ID
//
// traceId 通过响应头 X-Trace-Id 回传给调用方。
//
// 诊断上下文中写入 requestId、traceId、spanId，以及可选的 httpMethod、
// requestUri、header.<小写头名>（可按白名单过滤）和静态字段。
// 所有键在请求结束时移除，包括 handler 返回错误或 panic 的情况。
//
// 这里的 traceId/spanId 是日志关联用的标识，与 W3C traceparent 的 span
// 上下文相互独立；后者由 xtrace 处理。
//
// 传输层适配：
//   - Middleware：net/http
//   - GinMiddleware：gin
//   - UnaryServerInterceptor / StreamServerInterceptor：gRPC，读取 metadata
//     x-trace-id / x-span-id，通过响应 header 回传
package xcorrelate
