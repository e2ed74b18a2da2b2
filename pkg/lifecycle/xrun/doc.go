// Package xrun 基于 errgroup 协调多个长期运行的服务。
//
// 任一服务返回错误、收到退出信号或父 context 取消时，所有服务的 ctx 都被取消，
// Run 等待全部服务返回：
//
//	err := xrun.Run(ctx, nil,
//	    xrun.Named("http", xrun.HTTPServer(srv, 10*time.Second)),
//	    xrun.Named("config-watch", watcher.Run),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常的信号退出
//	}
package xrun
