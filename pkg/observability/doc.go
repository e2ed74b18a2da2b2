// Package observability 提供追踪与日志相关的子包。
//
// 子包列表：
//   - xspan: span 生命周期、Tracer 与导出接口
//   - xtrace: traceparent 编解码与 HTTP/gin/gRPC 边界中间件
//   - xsampling: 按 trace id 的确定性采样
//   - xexport: OTLP/stdout 导出桥接，带熔断
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xrotate: 日志文件轮转
//   - xsetup: 按配置组装上述组件，支持热更新
//
// 设计原则：
//   - 标识符与 span context 直接使用 OpenTelemetry 的值类型
//   - 自动从 context 中提取追踪信息注入日志
package observability
