// tracectl 是 tracekit 的命令行工具。
//
// 用法:
//
//	tracectl <命令> [命令参数]
//
// 命令:
//
//	encode         由 trace id、span id 生成 traceparent
//	decode <tp>    解析 traceparent 并打印各字段
//	gen            生成一组新的 trace id、span id、requestId 与短 id
//	config check   校验配置文件并打印生效配置
//	serve          启动演示 HTTP 服务（关联标识 + SERVER span + 配置热更新）
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（例如 traceparent 非法、配置校验失败）
//	2: 参数错误
//
// 示例:
//
//	tracectl encode --trace-id 4bf92f3577b34da6a3ce929d0e0e4736 --span-id 00f067aa0ba902b7 --sampled
//	tracectl decode 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	tracectl config check --config app.yaml
//	tracectl serve --config app.yaml --addr :8080
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

// 版本信息，通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitError 命令已输出结果，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "tracectl",
		Usage:     "tracekit 追踪上下文工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			createEncodeCommand(),
			createDecodeCommand(),
			createGenCommand(),
			createConfigCommand(),
			createServeCommand(),
		},
		// 退出码统一由 run 映射，不让 urfave/cli 调用 os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "usage error: %v\n", usageErr)
		return exitUsage
	}
	if isCLIUsageError(err) {
		fmt.Fprintf(stderr, "usage error: %v\n", err)
		return exitUsage
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return exitFail
}

// isCLIUsageError 识别 urfave/cli 自身产生的参数错误（未知 flag、flag 值非法等）。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"invalid value",
		"flag needs an argument",
		"No help topic for",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
