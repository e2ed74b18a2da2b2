package xspan

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Record 已结束 span 的不可变快照。
type Record struct {
	Name          string
	Kind          Kind
	SpanContext   trace.SpanContext
	Parent        trace.SpanContext // 根 span 时无效
	Attributes    []attribute.KeyValue
	Status        codes.Code
	StatusMessage string
	StartTime     time.Time
	EndTime       time.Time
}

// Attribute 按 key 查找属性。
func (r Record) Attribute(key string) (attribute.Value, bool) {
	for _, kv := range r.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// HasParent 报告是否存在有效父 span。
func (r Record) HasParent() bool { return r.Parent.IsValid() }

// Duration 返回 span 持续时间。
func (r Record) Duration() time.Duration { return r.EndTime.Sub(r.StartTime) }

// =============================================================================
// Exporter
// =============================================================================

// Exporter 接收已结束的 span。
//
// ExportSpan 在结束 span 的 goroutine 中同步调用，实现不得阻塞；
// 批处理、重试、超时都由实现自行负责。
type Exporter interface {
	ExportSpan(ctx context.Context, r Record)
}

// ExporterFunc 将函数适配为 Exporter。
type ExporterFunc func(ctx context.Context, r Record)

func (f ExporterFunc) ExportSpan(ctx context.Context, r Record) { f(ctx, r) }

// NoopExporter 丢弃所有 span。
type NoopExporter struct{}

func (NoopExporter) ExportSpan(context.Context, Record) {}

// Recorder 在内存中保存导出的 span，用于测试和本地调试。
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder 创建 Recorder。
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) ExportSpan(_ context.Context, rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Records 返回已记录 span 的副本。
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Len 返回已记录数量。
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Last 返回最后一个记录。
func (r *Recorder) Last() (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return Record{}, false
	}
	return r.records[len(r.records)-1], true
}

// Reset 清空记录。
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}

var (
	_ Exporter = ExporterFunc(nil)
	_ Exporter = NoopExporter{}
	_ Exporter = (*Recorder)(nil)
)
