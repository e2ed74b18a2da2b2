package xspan

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// 解析
// =============================================================================

// ParseTraceID 解析 32 位十六进制 trace id，接受大写输入。
func ParseTraceID(s string) (trace.TraceID, error) {
	id, err := trace.TraceIDFromHex(strings.ToLower(s))
	if err != nil {
		return trace.TraceID{}, fmt.Errorf("%w: trace id %q: %v", ErrInvalidIdentifier, s, err)
	}
	return id, nil
}

// ParseSpanID 解析 16 位十六进制 span id，接受大写输入。
func ParseSpanID(s string) (trace.SpanID, error) {
	id, err := trace.SpanIDFromHex(strings.ToLower(s))
	if err != nil {
		return trace.SpanID{}, fmt.Errorf("%w: span id %q: %v", ErrInvalidIdentifier, s, err)
	}
	return id, nil
}

// ParseTraceFlags 解析 2 位十六进制 trace flags。
func ParseTraceFlags(s string) (trace.TraceFlags, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("%w: trace flags %q: want 2 hex chars", ErrInvalidIdentifier, s)
	}
	var b [1]byte
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return 0, fmt.Errorf("%w: trace flags %q: %v", ErrInvalidIdentifier, s, err)
	}
	return trace.TraceFlags(b[0]), nil
}

// NewRemoteSpanContext 由十六进制 id 构建远端 span context。
func NewRemoteSpanContext(traceHex, spanHex string, flags trace.TraceFlags) (trace.SpanContext, error) {
	tid, err := ParseTraceID(traceHex)
	if err != nil {
		return trace.SpanContext{}, err
	}
	sid, err := ParseSpanID(spanHex)
	if err != nil {
		return trace.SpanContext{}, err
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: flags,
		Remote:     true,
	}), nil
}

// =============================================================================
// 生成
// =============================================================================

// IDGenerator 标识符生成器，方法集与 sdktrace.IDGenerator 一致，
// 同一个实现可以同时交给 OpenTelemetry SDK 使用。实现必须并发安全。
type IDGenerator interface {
	NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID)
	NewSpanID(ctx context.Context, traceID trace.TraceID) trace.SpanID
}

type randomIDGenerator struct{}

// NewIDGenerator 返回基于 crypto/rand 的生成器，全零结果会重新抽取。
func NewIDGenerator() IDGenerator { return randomIDGenerator{} }

func (randomIDGenerator) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	return NewTraceID(), NewSpanID()
}

func (randomIDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	return NewSpanID()
}

// NewTraceID 生成非全零的随机 trace id。
func NewTraceID() trace.TraceID {
	var id trace.TraceID
	for !id.IsValid() {
		mustRead(id[:])
	}
	return id
}

// NewSpanID 生成非全零的随机 span id。
func NewSpanID() trace.SpanID {
	var id trace.SpanID
	for !id.IsValid() {
		mustRead(id[:])
	}
	return id
}

// mustRead 熵源不可用时 panic，此时无法生成任何可用标识符。
func mustRead(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic("xspan: crypto/rand.Read failed: " + err.Error())
	}
}
