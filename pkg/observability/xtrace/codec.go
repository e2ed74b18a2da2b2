package xtrace

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

// ErrDecodeFailure traceparent 无法解析。调用方按"无父 span"处理。
var ErrDecodeFailure = errors.New("xtrace: traceparent decode failure")

// =============================================================================
// W3C traceparent 编解码
//
// 格式：{version}-{trace-id}-{parent-id}-{trace-flags}
// 示例：00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
// =============================================================================

const (
	supportedVersion = "00"
	invalidVersion   = "ff"

	versionLen     = 2
	traceIDLen     = 32
	spanIDLen      = 16
	flagsLen       = 2
	traceparentLen = versionLen + 1 + traceIDLen + 1 + spanIDLen + 1 + flagsLen
)

// Encode 生成 traceparent，始终使用版本 00 与小写十六进制。sc 无效时返回空字符串。
func Encode(sc trace.SpanContext) string {
	if !sc.IsValid() {
		return ""
	}
	tid := sc.TraceID()
	sid := sc.SpanID()
	flags := sc.TraceFlags()

	var buf [traceparentLen]byte
	copy(buf[0:3], supportedVersion+"-")
	copy(buf[3:35], tid.String())
	buf[35] = '-'
	copy(buf[36:52], sid.String())
	buf[52] = '-'
	copy(buf[53:55], flags.String())
	return string(buf[:])
}

// Decode 解析 traceparent，返回远端 span context。
//
// 失败条件（均返回 ErrDecodeFailure）：
//   - 字段少于 4 个，或任一字段长度、字符集不合法
//   - 版本为 ff
//   - trace id 或 span id 全零
//
// 只解析前 4 个字段，其余字段忽略（尽力解析，包括版本 00）。
func Decode(s string) (trace.SpanContext, error) {
	s = strings.TrimSpace(s)
	fields := strings.Split(s, "-")
	if len(fields) < 4 {
		return trace.SpanContext{}, decodeErr(s, "want at least 4 fields, got %d", len(fields))
	}

	version := fields[0]
	if len(version) != versionLen || !isHex(version) {
		return trace.SpanContext{}, decodeErr(s, "bad version %q", version)
	}
	version = strings.ToLower(version)
	if version == invalidVersion {
		return trace.SpanContext{}, decodeErr(s, "version ff is invalid")
	}

	if len(fields[1]) != traceIDLen || len(fields[2]) != spanIDLen || len(fields[3]) != flagsLen {
		return trace.SpanContext{}, decodeErr(s, "bad field length")
	}
	flags, err := xspan.ParseTraceFlags(fields[3])
	if err != nil {
		return trace.SpanContext{}, decodeErr(s, "%v", err)
	}
	sc, err := xspan.NewRemoteSpanContext(fields[1], fields[2], flags)
	if err != nil {
		return trace.SpanContext{}, decodeErr(s, "%v", err)
	}
	return sc, nil
}

func decodeErr(s, format string, args ...any) error {
	return fmt.Errorf("%w: %q: %s", ErrDecodeFailure, s, fmt.Sprintf(format, args...))
}

// isHex 同时接受大小写，输出端统一小写
func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return len(s) > 0
}
