package xpulsar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/goleak"

	"github.com/omeyang/tracekit/internal/mqcore"
	"github.com/omeyang/tracekit/pkg/context/xctx"
	"github.com/omeyang/tracekit/pkg/observability/xspan"
	"github.com/omeyang/tracekit/pkg/observability/xtrace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWrap_Nil(t *testing.T) {
	p, err := WrapProducer(nil, "t", nil)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNilProducer)

	c, err := WrapConsumer(nil, "t", nil)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrNilConsumer)
}

func TestTracingProducer_Send(t *testing.T) {
	tr, rec := newTestTracer(t)
	mp := &mockProducer{}
	p, err := WrapProducer(mp, "", tr)
	require.NoError(t, err)

	msg := &pulsar.ProducerMessage{Payload: []byte("x"), Properties: map[string]string{"traceparent": "stale"}}
	id, err := p.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.NotNil(t, id)

	r := lastRecord(t, rec)
	assert.Equal(t, "pulsar publish persistent://public/default/orders", r.Name)
	assert.Equal(t, xspan.KindProducer, r.Kind)
	assert.Equal(t, xtrace.Encode(r.SpanContext), msg.Properties["traceparent"])
	assert.Equal(t, r.SpanContext.TraceID().String(), msg.Properties["traceId"])
	assert.Equal(t, r.SpanContext.SpanID().String(), msg.Properties["spanId"])

	_, err = p.Send(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

func TestTracingProducer_SendErrorLeavesSpanUntouched(t *testing.T) {
	tr, rec := newTestTracer(t)
	boom := errors.New("producer closed")
	p, _ := WrapProducer(&mockProducer{sendErr: boom}, "orders", tr)

	_, err := p.Send(context.Background(), &pulsar.ProducerMessage{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "pulsar publish orders", lastRecord(t, rec).Name)
}

func TestTracingProducer_SendAsync(t *testing.T) {
	tr, rec := newTestTracer(t)
	mp := &mockProducer{asyncErr: errors.New("timeout")}
	p, _ := WrapProducer(mp, "orders", tr)

	parent, err := xspan.NewRemoteSpanContext(testTraceID, testSpanID, trace.FlagsSampled)
	require.NoError(t, err)
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)

	var cbErr error
	msg := &pulsar.ProducerMessage{}
	p.SendAsync(ctx, msg, func(_ pulsar.MessageID, _ *pulsar.ProducerMessage, err error) { cbErr = err })
	assert.EqualError(t, cbErr, "timeout")

	r := lastRecord(t, rec)
	assert.Equal(t, testSpanID, r.Parent.SpanID().String())
	assert.Equal(t, testTraceID, msg.Properties["traceId"])
	assert.Equal(t, 1, rec.Len(), "delivery callback must not produce another span")

	var nilErr error
	p.SendAsync(ctx, nil, func(_ pulsar.MessageID, _ *pulsar.ProducerMessage, err error) { nilErr = err })
	assert.ErrorIs(t, nilErr, ErrNilMessage)
}

func TestExtractTrace_FallbackChain(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]string
		want  string
	}{
		{"combined", map[string]string{"traceparent": testTP}, testTraceID},
		{"raw", map[string]string{"traceId": testTraceID, "spanId": testSpanID}, testTraceID},
		{"combined wins", map[string]string{
			"traceparent": testTP, "traceId": "4bf92f3577b34da6a3ce929d0e0e4736", "spanId": "00f067aa0ba902b7",
		}, testTraceID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracer(t)
			ctx := ExtractTrace(context.Background(), tr, "orders", &mockMessage{properties: tt.props})
			assert.Equal(t, tt.want, trace.SpanContextFromContext(ctx).TraceID().String())
		})
	}

	tr, _ := newTestTracer(t)
	ctx := ExtractTrace(context.Background(), tr, "orders", &mockMessage{properties: map[string]string{"traceparent": "bad"}})
	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.NotEqual(t, testTraceID, sc.TraceID().String())

	assert.Equal(t, context.Background(), ExtractTrace(context.Background(), tr, "orders", nil))
}

func TestTracingConsumer_Consume(t *testing.T) {
	tr, rec := newTestTracer(t)
	msg := &mockMessage{
		topic:      "persistent://public/default/orders",
		key:        "order-9",
		id:         mockMessageID{partition: 2, entry: 77},
		properties: map[string]string{"traceparent": testTP},
	}
	mc := &mockConsumer{messages: []pulsar.Message{msg}}
	c, err := WrapConsumer(mc, "", tr)
	require.NoError(t, err)

	var seen string
	require.NoError(t, c.Consume(context.Background(), func(ctx context.Context, got pulsar.Message) error {
		seen = xctx.TraceID(ctx)
		return nil
	}))
	assert.Equal(t, testTraceID, seen)
	assert.Len(t, mc.acked, 1)

	r := lastRecord(t, rec)
	assert.Equal(t, "pulsar consume persistent://public/default/orders", r.Name)
	for key, want := range map[string]any{
		"messaging.pulsar.partition":   int64(2),
		"messaging.pulsar.offset":      int64(77),
		"messaging.pulsar.message_key": "order-9",
	} {
		got, ok := r.Attribute(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got.AsInterface(), key)
	}
}

func TestTracingConsumer_ConsumeFailureNacks(t *testing.T) {
	mc := &mockConsumer{messages: []pulsar.Message{&mockMessage{topic: "orders"}}}
	c, _ := WrapConsumer(mc, "orders", nil)

	boom := errors.New("bad payload")
	err := c.Consume(context.Background(), func(context.Context, pulsar.Message) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Len(t, mc.nacked, 1)
	assert.Empty(t, mc.acked)

	mc.receiveErr = errors.New("closed")
	assert.EqualError(t, c.Consume(context.Background(), func(context.Context, pulsar.Message) error { return nil }), "closed")
	assert.ErrorIs(t, c.Consume(context.Background(), nil), ErrNilHandler)
}

func TestTracingConsumer_ReceiveWithContext(t *testing.T) {
	tr, rec := newTestTracer(t)
	mc := &mockConsumer{messages: []pulsar.Message{&mockMessage{properties: map[string]string{"traceparent": testTP}}}}
	c, _ := WrapConsumer(mc, "orders", tr)

	ctx, msg, err := c.ReceiveWithContext(context.Background())
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "pulsar consume orders", lastRecord(t, rec).Name)
	assert.Equal(t, testTraceID, trace.SpanContextFromContext(ctx).TraceID().String())
}

func TestTracingConsumer_ConsumeLoop(t *testing.T) {
	mc := &mockConsumer{messages: []pulsar.Message{&mockMessage{topic: "a"}, &mockMessage{topic: "b"}}}
	c, _ := WrapConsumer(mc, "", nil)
	c.SetBackoff(mqcore.BackoffFunc(func(int) time.Duration { return time.Millisecond }))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var topics []string
	err := c.ConsumeLoop(ctx, func(_ context.Context, m pulsar.Message) error {
		topics = append(topics, m.Topic())
		if len(topics) == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b"}, topics)
}
