// Package xlog 提供基于 log/slog 的结构化日志。
//
// # 核心接口
//
//   - Logger：所有方法强制传入 context.Context，只接受 slog.Attr
//   - Leveler：运行时调整级别（配置热更新时使用）
//   - LoggerWithLevel：Build() 的返回类型
//
// # 上下文注入
//
// EnrichHandler 装饰任意 slog.Handler，在每条日志上追加：
//   - trace_id / span_id / trace_flags：来自 ctx 中的活动 span context
//   - 诊断上下文（xctx.Store）的全部条目：启用 SetIncludeDiagnostic 时
//
// 诊断上下文随工作单元绑定在 ctx 上，因此日志天然不会串到别的请求。
//
// # 构建
//
//	logger, cleanup, err := xlog.New().
//		SetFormat("json").
//		SetLevelString("info").
//		SetAttrs(slog.String("service", "orders")).
//		Build()
//	if err != nil { ... }
//	defer cleanup()
package xlog
