package xlog

import (
	"log/slog"
	"time"
)

// 日志字段名
const (
	KeyError      = "error"
	KeyStack      = "stack"
	KeyDuration   = "duration"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatusCode = "status_code"

	// 由 EnrichHandler 从 span context 注入
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyTraceFlags = "trace_flags"
)

// Err 错误属性，err 为 nil 时返回空属性（slog 会忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func Duration(d time.Duration) slog.Attr { return slog.String(KeyDuration, d.String()) }

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }

func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

func StatusCode(code int) slog.Attr { return slog.Int(KeyStatusCode, code) }
