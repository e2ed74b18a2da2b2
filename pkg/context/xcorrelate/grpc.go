package xcorrelate

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
)

// UnaryServerInterceptor 返回 gRPC 一元拦截器。
//
// 标识从 incoming metadata 读取（头名称转为小写，如 x-trace-id），
// traceId 通过响应 header 回传。requestUri 为完整方法名。
func UnaryServerInterceptor(p *Policy) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, scope, ids := p.Enter(ctx, p.inboundFromMetadata(ctx, info.FullMethod))
		defer scope.Release()

		p.echo(ctx, ids)
		return handler(ctx, req)
	}
}

// StreamServerInterceptor 流式版本的 UnaryServerInterceptor。
func StreamServerInterceptor(p *Policy) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, scope, ids := p.Enter(ss.Context(), p.inboundFromMetadata(ss.Context(), info.FullMethod))
		defer scope.Release()

		if err := ss.SetHeader(metadata.Pairs(strings.ToLower(p.traceHeader), ids.TraceID)); err != nil {
			xlog.Debug(ctx, "xcorrelate: set grpc response header failed", xlog.Err(err))
		}
		return handler(srv, &scopedStream{ServerStream: ss, ctx: ctx})
	}
}

func (p *Policy) echo(ctx context.Context, ids Identifiers) {
	if err := grpc.SetHeader(ctx, metadata.Pairs(strings.ToLower(p.traceHeader), ids.TraceID)); err != nil {
		xlog.Debug(ctx, "xcorrelate: set grpc response header failed", xlog.Err(err))
	}
}

func (p *Policy) inboundFromMetadata(ctx context.Context, fullMethod string) Inbound {
	md, _ := metadata.FromIncomingContext(ctx)
	in := Inbound{
		TraceID: first(md, p.traceHeader),
		SpanID:  first(md, p.spanHeader),
		Method:  http.MethodPost,
		URI:     fullMethod,
		Headers: md,
	}
	if p.aliasHeader != "" {
		in.CorrelationID = first(md, p.aliasHeader)
	}
	return in
}

// first 返回 metadata 中 key 的第一个值，md.Get 会把 key 转为小写。
func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

type scopedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *scopedStream) Context() context.Context { return s.ctx }
