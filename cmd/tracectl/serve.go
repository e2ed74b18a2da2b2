package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/tracekit/pkg/config/xconf"
	"github.com/omeyang/tracekit/pkg/context/xcorrelate"
	"github.com/omeyang/tracekit/pkg/context/xctx"
	"github.com/omeyang/tracekit/pkg/lifecycle/xrun"
	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/observability/xsetup"
	"github.com/omeyang/tracekit/pkg/observability/xtrace"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
)

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动演示 HTTP 服务",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "配置文件路径，修改后自动热更新"},
			&cli.StringFlag{Name: "addr", Usage: "监听地址", Value: defaultAddr},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			gin.SetMode(gin.ReleaseMode)
			return cmdServe(ctx, cmd.String("config"), cmd.String("addr"), nil)
		},
	}
}

// cmdServe 运行到收到信号或服务出错。signals 非 nil 时替代系统信号。
func cmdServe(ctx context.Context, path, addr string, signals <-chan os.Signal) error {
	props, cfg, err := loadProperties(path)
	if err != nil {
		return err
	}
	rt, err := xsetup.Setup(ctx, props)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := rt.Shutdown(sctx); err != nil {
			xlog.Warn(sctx, "tracectl: shutdown", xlog.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServeHandler(rt),
		ReadHeaderTimeout: 5 * time.Second,
	}
	services := []xrun.Service{xrun.Named("http", xrun.HTTPServer(srv, shutdownTimeout))}

	if cfg != nil {
		w, err := xconf.Watch(cfg, reloadCallback(rt))
		if err != nil {
			return err
		}
		services = append(services, xrun.Named("config-watch", w.Run))
	}

	xlog.Info(ctx, "tracectl: serving", slog.String("addr", addr), slog.String("config", path))
	err = xrun.Run(ctx, &xrun.Options{SignalCh: signals}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

func reloadCallback(rt *xsetup.Runtime) xconf.WatchCallback {
	return func(cfg *xconf.Config, err error) {
		ctx := context.Background()
		if err != nil {
			xlog.Warn(ctx, "tracectl: config reload failed, keeping previous", xlog.Err(err))
			return
		}
		props, err := xsetup.Load(cfg)
		if err == nil {
			err = rt.Apply(props)
		}
		if err != nil {
			xlog.Warn(ctx, "tracectl: config rejected", xlog.Err(err))
		}
	}
}

// newServeHandler gin 路由：SERVER span 在外层，关联标识在内层。
func newServeHandler(rt *xsetup.Runtime) http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(
		xtrace.GinMiddleware(xtrace.WithTracer(rt.Tracer())),
		xcorrelate.GinMiddleware(rt.Policy()),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	engine.GET("/hello/:name", func(c *gin.Context) {
		ctx := c.Request.Context()
		xlog.Info(ctx, "tracectl: hello", slog.String("name", c.Param("name")))
		c.JSON(http.StatusOK, gin.H{
			"hello":     c.Param("name"),
			"requestId": xctx.RequestID(ctx),
			"traceId":   xctx.TraceID(ctx),
			"spanId":    xctx.SpanID(ctx),
		})
	})
	return engine
}
