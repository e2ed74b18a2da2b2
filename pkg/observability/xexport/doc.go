// Package xexport 把 xspan 的 span 记录交给 OpenTelemetry SDK 导出。
//
// Exporter 实现 xspan.Exporter：每个结束的 span 记录被转换为 SDK 的
// ReadOnlySpan（经由 tracetest.SpanStub 快照），交给批量或同步的
// SpanProcessor，再由具体的 SpanExporter 发送：
//
//   - otlp-grpc：OTLP over gRPC，默认 localhost:4317
//   - otlp-http：OTLP over HTTP
//   - stdout：输出到 stdout 或指定 writer，本地调试用
//   - none：丢弃
//
// 发送端被熔断器包装。后端不可达时熔断器打开，后续批次直接丢弃并计数，
// 状态变化以 warn 级别记录。请求路径上只有入队操作，不会阻塞。
//
// 进程退出前调用 Shutdown 刷新缓冲区。
package xexport
