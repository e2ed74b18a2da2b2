// Package xspan 定义引擎自有的 span 模型：标识符、span、快照与 tracer。
//
// # 标识符
//
// trace id、span id、trace flags 与 span context 直接复用 OpenTelemetry API 的值类型
// （go.opentelemetry.io/otel/trace），解析函数负责大小写归一化和全零拒绝：
//
//	sc, err := xspan.NewRemoteSpanContext(traceHex, spanHex, trace.FlagsSampled)
//
// # Span 生命周期
//
// Tracer.Start 创建 span，调用方设置属性与状态后调用 End。End 只生效一次：
// 第二次调用返回 false 并在 debug 级别记录 ErrSpanEnded，不会重复导出。
// End 时生成不可变的 Record 交给 Exporter，只有采样的 span 会被导出。
//
// # 采样
//
// 有效父 span 存在时继承其 sampled 标志；根 span 由 Sampler 按新 trace id 决策。
// 采样器可以在运行时通过 SetSampler 原子替换。
package xspan
