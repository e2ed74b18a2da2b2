package xspan

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
)

// Span 一个进行中的 span。
//
// 所有方法并发安全，nil Span 上的调用均为空操作（边界被禁用时调用方拿到的是 nil）。
// 结束后的写入被忽略。
type Span struct {
	tracer *Tracer
	name   string
	kind   Kind
	sc     trace.SpanContext
	parent trace.SpanContext
	start  time.Time

	mu        sync.Mutex
	attrs     []attribute.KeyValue
	index     map[attribute.Key]int
	status    codes.Code
	statusMsg string

	ended atomic.Bool
}

func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Span) Kind() Kind {
	if s == nil {
		return KindInternal
	}
	return s.kind
}

// SpanContext 返回本 span 的上下文。
func (s *Span) SpanContext() trace.SpanContext {
	if s == nil {
		return trace.SpanContext{}
	}
	return s.sc
}

// Parent 返回父 span 上下文，根 span 时无效。
func (s *Span) Parent() trace.SpanContext {
	if s == nil {
		return trace.SpanContext{}
	}
	return s.parent
}

// IsRecording 报告 span 是否尚未结束。
func (s *Span) IsRecording() bool { return s != nil && !s.ended.Load() }

// SetAttribute 设置属性，同名 key 原位替换（保持首次出现的顺序）。
//
// 支持 string、bool、整数、浮点、time.Duration（纳秒）、fmt.Stringer、
// []string 以及 attribute.Value。其余类型返回 ErrAttributeEncoding 且不写入。
func (s *Span) SetAttribute(key string, value any) error {
	if s == nil {
		return nil
	}
	kv, err := encodeAttribute(key, value)
	if err != nil {
		return err
	}
	return s.setKV(kv)
}

// SetAttributes 批量写入已编码的属性。
func (s *Span) SetAttributes(kvs ...attribute.KeyValue) {
	if s == nil {
		return
	}
	for _, kv := range kvs {
		if !kv.Valid() {
			continue
		}
		_ = s.setKV(kv)
	}
}

func (s *Span) setKV(kv attribute.KeyValue) error {
	if s.ended.Load() {
		return ErrSpanEnded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[kv.Key]; ok {
		s.attrs[i] = kv
		return nil
	}
	if s.index == nil {
		s.index = make(map[attribute.Key]int)
	}
	s.index[kv.Key] = len(s.attrs)
	s.attrs = append(s.attrs, kv)
	return nil
}

// SetStatus 设置状态。只有 Error 携带描述，其他状态的描述被丢弃。
func (s *Span) SetStatus(code codes.Code, description string) {
	if s == nil || s.ended.Load() {
		return
	}
	if code != codes.Error {
		description = ""
	}
	s.mu.Lock()
	s.status = code
	s.statusMsg = description
	s.mu.Unlock()
}

// Status 返回当前状态。
func (s *Span) Status() (codes.Code, string) {
	if s == nil {
		return codes.Unset, ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.statusMsg
}

// Attributes 返回当前属性的副本。
func (s *Span) Attributes() []attribute.KeyValue {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.attrs)
}

// End 结束 span。只有第一次调用生效并返回 true；
// 之后的调用返回 false，在 debug 级别记录 ErrSpanEnded。
func (s *Span) End() bool {
	if s == nil {
		return false
	}
	if !s.ended.CompareAndSwap(false, true) {
		xlog.Debug(context.Background(), "xspan: span already ended",
			slog.String("span", s.name),
			slog.String(xlog.KeySpanID, s.sc.SpanID().String()),
			xlog.Err(ErrSpanEnded))
		return false
	}
	rec := s.snapshot(s.tracer.now())
	if s.sc.IsSampled() {
		s.tracer.export(rec)
	}
	return true
}

func (s *Span) snapshot(end time.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Record{
		Name:          s.name,
		Kind:          s.kind,
		SpanContext:   s.sc,
		Parent:        s.parent,
		Attributes:    slices.Clone(s.attrs),
		Status:        s.status,
		StatusMessage: s.statusMsg,
		StartTime:     s.start,
		EndTime:       end,
	}
}

// =============================================================================
// 属性编码
// =============================================================================

func encodeAttribute(key string, value any) (attribute.KeyValue, error) {
	if key == "" {
		return attribute.KeyValue{}, fmt.Errorf("%w: empty key", ErrAttributeEncoding)
	}
	switch v := value.(type) {
	case string:
		return attribute.String(key, v), nil
	case bool:
		return attribute.Bool(key, v), nil
	case int:
		return attribute.Int(key, v), nil
	case int8:
		return attribute.Int64(key, int64(v)), nil
	case int16:
		return attribute.Int64(key, int64(v)), nil
	case int32:
		return attribute.Int64(key, int64(v)), nil
	case int64:
		return attribute.Int64(key, v), nil
	case uint8:
		return attribute.Int64(key, int64(v)), nil
	case uint16:
		return attribute.Int64(key, int64(v)), nil
	case uint32:
		return attribute.Int64(key, int64(v)), nil
	case uint:
		return encodeUint(key, uint64(v))
	case uint64:
		return encodeUint(key, v)
	case float32:
		return attribute.Float64(key, float64(v)), nil
	case float64:
		return attribute.Float64(key, v), nil
	case time.Duration:
		return attribute.Int64(key, v.Nanoseconds()), nil
	case []string:
		return attribute.StringSlice(key, v), nil
	case attribute.Value:
		if v.Type() == attribute.INVALID {
			break
		}
		return attribute.KeyValue{Key: attribute.Key(key), Value: v}, nil
	case fmt.Stringer:
		return attribute.String(key, v.String()), nil
	}
	return attribute.KeyValue{}, fmt.Errorf("%w: key %q has unsupported type %T", ErrAttributeEncoding, key, value)
}

func encodeUint(key string, v uint64) (attribute.KeyValue, error) {
	if v > math.MaxInt64 {
		return attribute.KeyValue{}, fmt.Errorf("%w: key %q overflows int64", ErrAttributeEncoding, key)
	}
	return attribute.Int64(key, int64(v)), nil
}
