package xctx

import (
	"context"
	"log/slog"
)

// AppendStoreAttrs 将诊断上下文的全部条目按 key 字典序追加到 attrs。
// ctx 为 nil 或未绑定 Store 时原样返回。
func AppendStoreAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	s := StoreFrom(ctx)
	if s == nil {
		return attrs
	}
	s.Range(func(k, v string) bool {
		attrs = append(attrs, slog.String(k, v))
		return true
	})
	return attrs
}

// StoreAttrs 返回诊断上下文的 slog 属性，为空时返回 nil。
func StoreAttrs(ctx context.Context) []slog.Attr {
	s := StoreFrom(ctx)
	if s == nil || s.Len() == 0 {
		return nil
	}
	return AppendStoreAttrs(make([]slog.Attr, 0, s.Len()), ctx)
}
