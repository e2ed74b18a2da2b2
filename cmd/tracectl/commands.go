package main

import (
	"context"
	"fmt"
	"io"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/config/xconf"
	"github.com/omeyang/tracekit/pkg/context/xcorrelate"
	"github.com/omeyang/tracekit/pkg/observability/xsetup"
	"github.com/omeyang/tracekit/pkg/observability/xspan"
	"github.com/omeyang/tracekit/pkg/observability/xtrace"
	"github.com/omeyang/tracekit/pkg/util/xid"
)

func stdout(cmd *cli.Command) io.Writer { return cmd.Root().Writer }

func stderr(cmd *cli.Command) io.Writer { return cmd.Root().ErrWriter }

// =============================================================================
// encode / decode
// =============================================================================

func createEncodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "由 trace id 与 span id 生成 traceparent",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "trace-id", Usage: "32 位十六进制 trace id"},
			&cli.StringFlag{Name: "span-id", Usage: "16 位十六进制 span id"},
			&cli.BoolFlag{Name: "sampled", Usage: "设置 sampled 标志"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdEncode(stdout(cmd), cmd.String("trace-id"), cmd.String("span-id"), cmd.Bool("sampled"))
		},
	}
}

func cmdEncode(w io.Writer, traceID, spanID string, sampled bool) error {
	if traceID == "" || spanID == "" {
		return usagef("encode requires --trace-id and --span-id")
	}
	tid, err := trace.TraceIDFromHex(traceID)
	if err != nil {
		return usagef("invalid --trace-id %q: %v", traceID, err)
	}
	sid, err := trace.SpanIDFromHex(spanID)
	if err != nil {
		return usagef("invalid --span-id %q: %v", spanID, err)
	}

	cfg := trace.SpanContextConfig{TraceID: tid, SpanID: sid}
	if sampled {
		cfg.TraceFlags = trace.FlagsSampled
	}
	_, err = fmt.Fprintln(w, xtrace.Encode(trace.NewSpanContext(cfg)))
	return err
}

func createDecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "解析 traceparent",
		ArgsUsage: "<traceparent>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("decode requires exactly one traceparent argument")
			}
			return cmdDecode(stdout(cmd), stderr(cmd), cmd.Args().First())
		},
	}
}

func cmdDecode(w, errw io.Writer, traceparent string) error {
	sc, err := xtrace.Decode(traceparent)
	if err != nil {
		fmt.Fprintf(errw, "decode failed: %v\n", err)
		return &exitError{code: exitFail}
	}
	_, err = fmt.Fprintf(w, "trace-id: %s\nspan-id:  %s\nflags:    %s\nsampled:  %t\n",
		sc.TraceID(), sc.SpanID(), sc.TraceFlags(), sc.IsSampled())
	return err
}

// =============================================================================
// gen
// =============================================================================

func createGenCommand() *cli.Command {
	return &cli.Command{
		Name:  "gen",
		Usage: "生成新的 trace id、span id、requestId 与短 id",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "request-id",
				Usage: "requestId 来源: uuid 或 sonyflake",
				Value: string(xcorrelate.RequestIDUUID),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdGen(ctx, stdout(cmd), cmd.String("request-id"))
		},
	}
}

func cmdGen(ctx context.Context, w io.Writer, source string) error {
	var requestID string
	switch xcorrelate.RequestIDSource(source) {
	case xcorrelate.RequestIDUUID:
		requestID = xid.NewUUID()
	case xcorrelate.RequestIDSonyflake:
		gen, err := xid.NewGenerator()
		if err != nil {
			return err
		}
		if requestID, err = gen.NewString(); err != nil {
			return err
		}
	default:
		return usagef("unknown --request-id %q, want uuid or sonyflake", source)
	}

	tid, sid := xspan.NewIDGenerator().NewIDs(ctx)
	_, err := fmt.Fprintf(w, "trace-id:   %s\nspan-id:    %s\nrequest-id: %s\nshort-id:   %s\n",
		tid, sid, requestID, xid.ShortID(xid.DefaultShortIDLength))
	return err
}

// =============================================================================
// config check
// =============================================================================

func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "配置相关命令",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "校验配置文件并打印生效配置",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "配置文件路径（yaml/json）"},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					return cmdConfigCheck(stdout(cmd), cmd.String("config"))
				},
			},
		},
	}
}

func cmdConfigCheck(w io.Writer, path string) error {
	if path == "" {
		return usagef("config check requires --config")
	}
	props, _, err := loadProperties(path)
	if err != nil {
		return err
	}
	out, err := yaml.Parser().Marshal(map[string]any{xsetup.ConfigPath: props.Map()})
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// loadProperties 读取配置文件，path 为空时返回默认配置与 nil Config。
func loadProperties(path string) (xsetup.Properties, *xconf.Config, error) {
	if path == "" {
		return xsetup.DefaultProperties(), nil, nil
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return xsetup.Properties{}, nil, err
	}
	props, err := xsetup.Load(cfg)
	if err != nil {
		return xsetup.Properties{}, nil, err
	}
	return props, cfg, nil
}
