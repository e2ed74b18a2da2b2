package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
)

// Service 长期运行的服务，ctx 取消后应尽快返回。
type Service func(ctx context.Context) error

type namedService struct {
	name string
	run  Service
}

// Named 给服务命名，启动与退出会以该名称记录日志。
func Named(name string, svc Service) Service {
	return namedService{name: name, run: svc}.Run
}

func (s namedService) Run(ctx context.Context) error {
	if s.run == nil {
		return ErrNilFunc
	}
	xlog.Debug(ctx, "xrun: service starting", slog.String("service", s.name))
	err := s.run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		xlog.Warn(ctx, "xrun: service exited with error", slog.String("service", s.name), xlog.Err(err))
	} else {
		xlog.Debug(ctx, "xrun: service stopped", slog.String("service", s.name))
	}
	return err
}

// Group 一组协同运行的服务。Go 可并发调用，Wait 只调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
}

// NewGroup 创建 Group，返回的 ctx 在任一服务出错或 Cancel 时取消。
func NewGroup(ctx context.Context) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel}, egCtx
}

// Go 启动一个服务。
func (g *Group) Go(svc Service) {
	g.eg.Go(func() error {
		if svc == nil {
			return ErrNilFunc
		}
		return svc(g.ctx)
	})
}

// Cancel 以 cause 为原因取消所有服务，Wait 会返回该原因。
func (g *Group) Cancel(cause error) { g.cancel(cause) }

// Wait 等待所有服务返回。
//
// 返回第一个非取消错误；因 Cancel 退出时返回 Cancel 的原因（例如 *SignalError）；
// 普通取消返回 nil。
func (g *Group) Wait() error {
	defer g.cancel(nil)
	err := g.eg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return nil
	}
	return err
}

// =============================================================================
// Run
// =============================================================================

// Options Run 的选项，nil 表示默认值。
type Options struct {
	// Signals 触发退出的信号，为空时使用 SIGINT 与 SIGTERM。
	Signals []os.Signal
	// SignalCh 替代 os/signal 的信号来源，主要用于测试。
	SignalCh <-chan os.Signal
	// NoSignals 不监听信号。
	NoSignals bool
}

// Run 运行服务直到全部返回。收到信号时以 *SignalError 退出。
func Run(ctx context.Context, opts *Options, services ...Service) error {
	if opts == nil {
		opts = &Options{}
	}
	g, _ := NewGroup(ctx)
	if !opts.NoSignals {
		g.Go(func(ctx context.Context) error {
			return waitSignal(ctx, g, opts)
		})
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

func waitSignal(ctx context.Context, g *Group, opts *Options) error {
	ch := opts.SignalCh
	if ch == nil {
		signals := opts.Signals
		if len(signals) == 0 {
			signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
		}
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)
		ch = sigCh
	}

	select {
	case sig := <-ch:
		xlog.Info(ctx, "xrun: received signal", slog.String("signal", sig.String()))
		g.Cancel(&SignalError{Signal: sig})
		return nil
	case <-ctx.Done():
		return nil
	}
}
