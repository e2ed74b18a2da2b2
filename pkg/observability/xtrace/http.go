package xtrace

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

// =============================================================================
// SERVER 边界：net/http
// =============================================================================

// HTTPMiddleware 返回 net/http 中间件，为每个请求创建 SERVER span。
//
// 父 span 只取自 traceparent 头，解析失败按无父 span 处理。
// span 名为 "<METHOD> <path>"，状态按 Finish 的 SERVER 规则映射；
// handler panic 时先记录到 span 再重新抛出。
func HTTPMiddleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := BeginHTTPServer(r.Context(), cfg.getTracer(), r, r.URL.Path, cfg.traceparentKey)
			if span == nil {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer FinishDeferred(span, func() Outcome { return Outcome{StatusCode: rec.status} })
			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

// BeginHTTPServer 为入站 HTTP 请求开始 SERVER span。route 为路由模板，空值时使用请求路径。
// 供 net/http 以外的框架（如 gin）复用。
func BeginHTTPServer(ctx context.Context, tracer *xspan.Tracer, r *http.Request, route, traceparentKey string) (context.Context, *xspan.Span) {
	if route == "" {
		route = r.URL.Path
	}
	if traceparentKey == "" {
		traceparentKey = HeaderTraceparent
	}
	parent, _ := ExtractKey(ctx, propagation.HeaderCarrier(r.Header), traceparentKey)
	return Begin(ctx, tracer, Boundary{
		Variant: VariantServer,
		Name:    r.Method + " " + r.URL.Path,
		Parent:  parent,
		Enrich: func(span *xspan.Span) {
			enrichHTTPServer(ctx, span, r, route)
		},
	})
}

func enrichHTTPServer(ctx context.Context, span *xspan.Span, r *http.Request, route string) {
	scheme := requestScheme(r)
	host, port := hostPort(r.Host, scheme)

	_ = span.SetAttribute(AttrHTTPMethod, r.Method)
	_ = span.SetAttribute(AttrHTTPURL, scheme+"://"+r.Host+r.URL.Path)
	_ = span.SetAttribute(AttrHTTPRoute, route)
	_ = span.SetAttribute(AttrHTTPScheme, scheme)
	_ = span.SetAttribute(AttrNetHostName, host)
	if port > 0 {
		_ = span.SetAttribute(AttrNetHostPort, port)
	}
	if ua := r.UserAgent(); ua != "" {
		_ = span.SetAttribute(AttrHTTPUserAgent, ua)
	}
	if raw := r.Header.Get("Content-Length"); raw != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			xlog.Debug(ctx, "xtrace: skipping attribute",
				slog.String("attribute", AttrHTTPRequestContentLength),
				xlog.Err(fmt.Errorf("%w: %q is not an integer", xspan.ErrAttributeEncoding, raw)))
		} else {
			_ = span.SetAttribute(AttrHTTPRequestContentLength, n)
		}
	}
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	return "http"
}

// hostPort 拆分 Host 头，缺省端口按 scheme 推断。
func hostPort(hostport, scheme string) (string, int) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
		switch scheme {
		case "https":
			return host, 443
		case "http":
			return host, 80
		}
		return host, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

// =============================================================================
// statusRecorder
// =============================================================================

// statusRecorder 记录写出的状态码，Unwrap 让 http.ResponseController 能访问底层 writer。
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		r.wroteHeader = true
		f.Flush()
	}
}

var errHijackUnsupported = errors.New("xtrace: response writer does not support hijacking")

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errHijackUnsupported
	}
	return h.Hijack()
}
