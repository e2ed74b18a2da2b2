package xkafka

import (
	"context"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
	"github.com/omeyang/tracekit/pkg/observability/xtrace"
)

func TestHeadersToMap_LastWins(t *testing.T) {
	m := headersToMap([]kafka.Header{header("k", "1"), header("other", "x"), header("k", "2")})
	assert.Equal(t, map[string]string{"k": "2", "other": "x"}, m)
	assert.Empty(t, headersToMap(nil))
}

func TestSetHeader_ReplacesDuplicates(t *testing.T) {
	orig := []kafka.Header{header("k", "1"), header("a", "x"), header("k", "2")}
	msg := &kafka.Message{Headers: orig}
	setHeader(msg, "k", "3")

	assert.Equal(t, []kafka.Header{header("a", "x"), header("k", "3")}, msg.Headers)
	assert.Equal(t, "1", string(orig[0].Value), "caller's slice must not be rewritten")
}

func TestInjectTrace(t *testing.T) {
	tr, rec := newTestTracer(t)
	msg := testMessage("orders", 2, kafka.OffsetInvalid,
		header("traceparent", "stale-1"), header("traceparent", "stale-2"), header("app", "v"))

	ctx := InjectTrace(context.Background(), tr, msg)

	r := lastRecord(t, rec)
	assert.Equal(t, "kafka publish orders", r.Name)
	assert.Equal(t, r.SpanContext, trace.SpanContextFromContext(ctx))
	part, ok := r.Attribute("messaging.kafka.partition")
	require.True(t, ok)
	assert.Equal(t, int64(2), part.AsInt64())
	_, ok = r.Attribute("messaging.kafka.offset")
	assert.False(t, ok, "producer spans carry no offset")

	var count int
	for _, h := range msg.Headers {
		if h.Key == "traceparent" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	got := headersToMap(msg.Headers)
	assert.Equal(t, xtrace.Encode(r.SpanContext), got["traceparent"])
	assert.Equal(t, r.SpanContext.TraceID().String(), got["traceId"])
	assert.Equal(t, r.SpanContext.SpanID().String(), got["spanId"])
	assert.Equal(t, "v", got["app"])

	assert.Nil(t, InjectTrace(nil, tr, nil)) //nolint:staticcheck // nil ctx 是被测场景
}

func TestInjectTrace_AnyPartition(t *testing.T) {
	tr, rec := newTestTracer(t)
	InjectTrace(context.Background(), tr, testMessage("orders", kafka.PartitionAny, kafka.OffsetInvalid))
	_, ok := lastRecord(t, rec).Attribute("messaging.kafka.partition")
	assert.False(t, ok)
}

func TestExtractTrace(t *testing.T) {
	tests := []struct {
		name      string
		headers   []kafka.Header
		wantTrace string
	}{
		{"combined", []kafka.Header{header("traceparent", testTP)}, testTraceID},
		{"raw", []kafka.Header{header("traceId", testTraceID), header("spanId", testSpanID)}, testTraceID},
		{"duplicate combined last wins", []kafka.Header{header("traceparent", "bogus"), header("traceparent", testTP)}, testTraceID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracer(t)
			msg := testMessage("orders", 0, 17, tt.headers...)
			msg.Key = []byte("k-1")
			ctx := ExtractTrace(context.Background(), tr, msg)
			sc := trace.SpanContextFromContext(ctx)
			require.True(t, sc.IsValid())
			assert.Equal(t, tt.wantTrace, sc.TraceID().String())
			assert.False(t, sc.IsRemote(), "ctx carries the local consumer span")
		})
	}
}

func TestExtractTrace_Attributes(t *testing.T) {
	tr, rec := newTestTracer(t)
	msg := testMessage("orders", 4, 99, header("traceparent", testTP))
	msg.Key = []byte("order-1")
	ExtractTrace(context.Background(), tr, msg)

	r := lastRecord(t, rec)
	assert.Equal(t, "kafka consume orders", r.Name)
	assert.Equal(t, xspan.KindConsumer, r.Kind)
	assert.Equal(t, testSpanID, r.Parent.SpanID().String())
	for key, want := range map[string]any{
		"messaging.operation":         "consume",
		"messaging.kafka.partition":   int64(4),
		"messaging.kafka.offset":      int64(99),
		"messaging.kafka.message_key": "order-1",
	} {
		got, ok := r.Attribute(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got.AsInterface(), key)
	}
}
