package xcorrelate

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware 返回 net/http 中间件。traceId 在调用下游 handler 前写入响应头。
func Middleware(p *Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, scope, ids := p.Enter(r.Context(), p.inboundFromRequest(r))
			defer scope.Release()

			w.Header().Set(p.traceHeader, ids.TraceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GinMiddleware 返回 gin 中间件，语义与 Middleware 一致。
func GinMiddleware(p *Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, scope, ids := p.Enter(c.Request.Context(), p.inboundFromRequest(c.Request))
		defer scope.Release()

		c.Header(p.traceHeader, ids.TraceID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (p *Policy) inboundFromRequest(r *http.Request) Inbound {
	in := Inbound{
		TraceID: r.Header.Get(p.traceHeader),
		SpanID:  r.Header.Get(p.spanHeader),
		Method:  r.Method,
		URI:     r.URL.Path,
		Headers: r.Header,
	}
	if p.aliasHeader != "" {
		in.CorrelationID = r.Header.Get(p.aliasHeader)
	}
	return in
}
