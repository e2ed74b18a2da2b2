// Package xctx 提供工作单元级别的诊断上下文（Mapped Diagnostic Context）。
//
// # 设计理念
//
// 诊断上下文是一组字符串键值对，在工作单元入口写入（requestId、traceId、spanId、
// 请求信息、白名单请求头、静态字段），整个处理过程中被日志子系统读取，
// 在出口处全部清理。Go 没有线程局部存储，xctx 把 Store 绑定到 context.Context，
// 跟随调用链显式传递。
//
// # 作用域
//
// 引擎写入统一通过 Scope 完成：
//
//	ctx, scope := xctx.Acquire(ctx)
//	defer scope.Release()
//	scope.Set(xctx.KeyRequestID, id)
//
// Release 在 defer 中执行，正常返回、返回错误、panic、context 取消都会清理。
// 嵌套 Scope 以外层 Store 的快照为初始内容，写入只落在自己的 Store 上。
//
// # 隔离
//
// 每次 Acquire 都得到全新的 Store，工作单元之间从不共享。
// 同一个 worker goroutine 先后处理两个工作单元时，后者看不到前者的任何值；
// 从同一个父 context 并发派生的工作单元也互不可见。
package xctx
