package xrun

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServerInterface *http.Server 满足该接口。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 将 http.Server 包装为服务：ctx 取消时在 shutdownTimeout 内优雅关闭。
// shutdownTimeout 非正时不设超时。
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) Service {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		listenDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				sctx := context.WithoutCancel(ctx)
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(sctx)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			close(listenDone)
			return err
		}
		select {
		case <-ctx.Done():
			return <-shutdownErr
		default:
			// 外部直接关闭了 server
			close(listenDone)
			return nil
		}
	}
}
