package xtrace

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

// =============================================================================
// SERVER 边界：gRPC
// =============================================================================

// GRPCUnaryServerInterceptor 返回一元服务端拦截器，span 名为完整方法名。
// 返回错误时 span 为 ERROR（描述为错误信息），否则为 OK。
func GRPCUnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		ctx, span := beginGRPCServer(ctx, cfg, info.FullMethod)
		if span == nil {
			return handler(ctx, req)
		}
		defer FinishDeferred(span, func() Outcome { return grpcOutcome(span, err) })
		return handler(ctx, req)
	}
}

// GRPCStreamServerInterceptor 返回流式服务端拦截器。
func GRPCStreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := applyOptions(opts)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx, span := beginGRPCServer(ss.Context(), cfg, info.FullMethod)
		if span == nil {
			return handler(srv, ss)
		}
		defer FinishDeferred(span, func() Outcome { return grpcOutcome(span, err) })
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func beginGRPCServer(ctx context.Context, cfg *config, fullMethod string) (context.Context, *xspan.Span) {
	var parent trace.SpanContext
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		parent, _ = ExtractKey(ctx, metadataCarrier(md), cfg.traceparentKey)
	}
	return Begin(ctx, cfg.getTracer(), Boundary{
		Variant: VariantServer,
		Name:    fullMethod,
		Parent:  parent,
		Enrich: func(span *xspan.Span) {
			service, method := splitFullMethod(fullMethod)
			_ = span.SetAttribute(AttrRPCSystem, "grpc")
			_ = span.SetAttribute(AttrRPCService, service)
			_ = span.SetAttribute(AttrRPCMethod, method)
		},
	})
}

func grpcOutcome(span *xspan.Span, err error) Outcome {
	_ = span.SetAttribute(AttrRPCGRPCStatusCode, int64(status.Code(err)))
	return Outcome{Err: err}
}

// splitFullMethod 拆分 "/pkg.Service/Method"。
func splitFullMethod(full string) (service, method string) {
	full = strings.TrimPrefix(full, "/")
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context { return w.ctx }

// =============================================================================
// 客户端传播
// =============================================================================

// GRPCUnaryClientInterceptor 将 ctx 中的 span context 写入 outgoing metadata。
func GRPCUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(InjectToOutgoingContext(ctx), method, req, reply, cc, opts...)
	}
}

// GRPCStreamClientInterceptor 流式版本的 GRPCUnaryClientInterceptor。
func GRPCStreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(InjectToOutgoingContext(ctx), desc, cc, method, opts...)
	}
}

// InjectToOutgoingContext 复制 outgoing metadata 并写入 traceparent（覆盖已有值）。
func InjectToOutgoingContext(ctx context.Context) context.Context {
	tp := Encode(trace.SpanContextFromContext(ctx))
	if tp == "" {
		return ctx
	}
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	md.Set(HeaderTraceparent, tp)
	return metadata.NewOutgoingContext(ctx, md)
}

// metadataCarrier 让 metadata.MD 满足 propagation.TextMapCarrier
type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	vals := metadata.MD(c).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (c metadataCarrier) Set(key, value string) { metadata.MD(c).Set(key, value) }

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
