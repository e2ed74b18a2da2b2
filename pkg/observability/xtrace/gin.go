package xtrace

import (
	"github.com/gin-gonic/gin"
)

// GinMiddleware 返回 gin 中间件，语义与 HTTPMiddleware 一致。
//
// http.route 取 gin 的路由模板（c.FullPath()），未匹配路由时退回请求路径；
// handler 通过 c.Error 记录的最后一个错误使 span 进入 ERROR。
func GinMiddleware(opts ...Option) gin.HandlerFunc {
	cfg := applyOptions(opts)
	return func(c *gin.Context) {
		ctx, span := BeginHTTPServer(c.Request.Context(), cfg.getTracer(), c.Request, c.FullPath(), cfg.traceparentKey)
		if span == nil {
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(ctx)

		defer FinishDeferred(span, func() Outcome {
			out := Outcome{StatusCode: c.Writer.Status()}
			if last := c.Errors.Last(); last != nil {
				out.Err = last.Err
			}
			return out
		})
		c.Next()
	}
}
