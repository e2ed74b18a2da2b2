package xkafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/tracekit/internal/mqcore"
	"github.com/omeyang/tracekit/pkg/context/xctx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewTracingProducer_NilConfig(t *testing.T) {
	p, err := NewTracingProducer(nil)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewTracingConsumer_Validation(t *testing.T) {
	c, err := NewTracingConsumer(nil, []string{"orders"})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrNilConfig)

	c, err = NewTracingConsumer(&kafka.ConfigMap{"group.id": "g"}, nil)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrEmptyTopics)
}

func TestTracingProducer_Produce(t *testing.T) {
	tr, rec := newTestTracer(t)
	w := &fakeWriter{}
	p := newTracingProducer(w, WithProducerTracer(tr))

	msg := testMessage("orders", kafka.PartitionAny, kafka.OffsetInvalid)
	require.NoError(t, p.Produce(context.Background(), msg, nil))
	require.Len(t, w.produced, 1)
	assert.Equal(t, lastRecord(t, rec).SpanContext.TraceID().String(), headersToMap(w.produced[0].Headers)["traceId"])

	assert.ErrorIs(t, p.Produce(context.Background(), nil, nil), ErrNilMessage)

	w.produceErr = kafka.NewError(kafka.ErrQueueFull, "queue full", false)
	err := p.Produce(context.Background(), testMessage("orders", 0, 0), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"orders"`)
	assert.Equal(t, 2, rec.Len(), "span is ended before enqueue, regardless of outcome")
}

func TestTracingProducer_Close(t *testing.T) {
	w := &fakeWriter{remaining: 3}
	p := newTracingProducer(w, WithProducerFlushTimeout(time.Second))

	err := p.Close()
	assert.ErrorIs(t, err, ErrFlushTimeout)
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Close(), ErrClosed)
	assert.ErrorIs(t, p.Produce(context.Background(), testMessage("orders", 0, 0), nil), ErrClosed)
}

func TestTracingConsumer_ReadMessageSkipsTimeouts(t *testing.T) {
	tr, rec := newTestTracer(t)
	r := &fakeReader{results: []readResult{
		{err: errTimedOut},
		{msg: testMessage("orders", 0, 5, header("traceparent", testTP))},
	}}
	c := newTracingConsumer(r, WithConsumerTracer(tr), WithConsumerPollTimeout(time.Millisecond))

	ctx, msg, err := c.ReadMessage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, testTraceID, lastRecord(t, rec).SpanContext.TraceID().String())
	assert.NotEqual(t, context.Background(), ctx)

	boom := errors.New("broker down")
	r.results = []readResult{{err: boom}}
	_, _, err = c.ReadMessage(context.Background())
	assert.ErrorIs(t, err, boom)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = c.ReadMessage(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTracingConsumer_Consume(t *testing.T) {
	tr, rec := newTestTracer(t)
	msg := testMessage("orders", 1, 10, header("traceparent", testTP))
	r := &fakeReader{results: []readResult{{msg: msg}}}
	c := newTracingConsumer(r, WithConsumerTracer(tr))

	var seenTrace string
	err := c.Consume(context.Background(), func(ctx context.Context, got *kafka.Message) error {
		assert.Same(t, msg, got)
		seenTrace = xctx.TraceID(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, testTraceID, seenTrace)
	assert.Equal(t, []*kafka.Message{msg}, r.stored)
	assert.Equal(t, "kafka consume orders", lastRecord(t, rec).Name)
}

func TestTracingConsumer_ConsumeFailureDoesNotStore(t *testing.T) {
	r := &fakeReader{results: []readResult{{msg: testMessage("orders", 0, 1)}}}
	c := newTracingConsumer(r)

	boom := errors.New("handler failed")
	err := c.Consume(context.Background(), func(context.Context, *kafka.Message) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, r.stored)

	assert.ErrorIs(t, c.Consume(context.Background(), nil), ErrNilHandler)
}

func TestTracingConsumer_StoreError(t *testing.T) {
	r := &fakeReader{
		results:  []readResult{{msg: testMessage("orders", 0, 1)}},
		storeErr: errors.New("no assignment"),
	}
	c := newTracingConsumer(r)
	err := c.Consume(context.Background(), func(context.Context, *kafka.Message) error { return nil })
	assert.ErrorContains(t, err, "store offset")
}

func TestTracingConsumer_ConsumeLoop(t *testing.T) {
	r := &fakeReader{results: []readResult{
		{msg: testMessage("orders", 0, 1)},
		{err: errors.New("transient")},
		{msg: testMessage("orders", 0, 2)},
	}}
	c := newTracingConsumer(r, WithConsumerPollTimeout(time.Millisecond),
		WithConsumerBackoff(mqcore.BackoffFunc(func(int) time.Duration { return time.Millisecond })))

	ctx, cancel := context.WithCancel(context.Background())
	handled := 0
	err := c.ConsumeLoop(ctx, func(context.Context, *kafka.Message) error {
		handled++
		if handled == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, handled)
	assert.Equal(t, int64(1), c.Errors())
}

func TestTracingConsumer_Close(t *testing.T) {
	r := &fakeReader{commitErr: kafka.NewError(kafka.ErrNoOffset, "no offset", false)}
	c := newTracingConsumer(r)

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
	assert.ErrorIs(t, c.Close(), ErrClosed)

	_, _, err := c.ReadMessage(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	r2 := &fakeReader{commitErr: errors.New("coordinator gone")}
	assert.ErrorContains(t, newTracingConsumer(r2).Close(), "commit on close")
}
