package xexport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 导出器类型。
type Kind string

const (
	KindOTLPGRPC Kind = "otlp-grpc"
	KindOTLPHTTP Kind = "otlp-http"
	KindStdout   Kind = "stdout"
	KindNone     Kind = "none"
)

// ErrUnknownKind 未知的导出器类型。
var ErrUnknownKind = errors.New("xexport: unknown exporter kind")

// ParseKind 解析导出器类型，大小写不敏感，"otlp" 等同于 otlp-grpc。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindOTLPGRPC, KindOTLPHTTP, KindStdout, KindNone:
		return k, nil
	case "otlp":
		return KindOTLPGRPC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
