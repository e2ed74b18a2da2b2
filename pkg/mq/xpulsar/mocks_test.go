package xpulsar

import (
	"context"
	"testing"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

const (
	testTraceID = "0af7651916cd43dd8448eb211c80319c"
	testSpanID  = "b7ad6b7169203331"
	testTP      = "00-" + testTraceID + "-" + testSpanID + "-01"
)

func newTestTracer(t *testing.T) (*Tracer, *xspan.Recorder) {
	t.Helper()
	rec := xspan.NewRecorder()
	return NewTracer(WithSpanTracer(xspan.NewTracer(xspan.WithExporter(rec)))), rec
}

func lastRecord(t *testing.T, rec *xspan.Recorder) xspan.Record {
	t.Helper()
	r, ok := rec.Last()
	require.True(t, ok, "expected an exported span")
	return r
}

// 嵌入接口，未实现的方法被调用时 panic

type mockMessageID struct {
	pulsar.MessageID
	partition int32
	entry     int64
}

func (m mockMessageID) PartitionIdx() int32 { return m.partition }
func (m mockMessageID) EntryID() int64      { return m.entry }

type mockMessage struct {
	pulsar.Message
	topic      string
	key        string
	id         pulsar.MessageID
	properties map[string]string
}

func (m *mockMessage) Topic() string                 { return m.topic }
func (m *mockMessage) Key() string                   { return m.key }
func (m *mockMessage) ID() pulsar.MessageID          { return m.id }
func (m *mockMessage) Properties() map[string]string { return m.properties }

type mockProducer struct {
	pulsar.Producer
	sent     []*pulsar.ProducerMessage
	sendErr  error
	asyncErr error
}

func (m *mockProducer) Topic() string { return "persistent://public/default/orders" }

func (m *mockProducer) Send(_ context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, msg)
	return mockMessageID{entry: int64(len(m.sent))}, nil
}

func (m *mockProducer) SendAsync(_ context.Context, msg *pulsar.ProducerMessage, callback func(pulsar.MessageID, *pulsar.ProducerMessage, error)) {
	m.sent = append(m.sent, msg)
	callback(nil, msg, m.asyncErr)
}

type mockConsumer struct {
	pulsar.Consumer
	messages   []pulsar.Message
	receiveErr error
	acked      []pulsar.Message
	nacked     []pulsar.Message
}

func (m *mockConsumer) Receive(ctx context.Context) (pulsar.Message, error) {
	if m.receiveErr != nil {
		return nil, m.receiveErr
	}
	if len(m.messages) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	next := m.messages[0]
	m.messages = m.messages[1:]
	return next, nil
}

func (m *mockConsumer) Ack(msg pulsar.Message) error {
	m.acked = append(m.acked, msg)
	return nil
}

func (m *mockConsumer) Nack(msg pulsar.Message) { m.nacked = append(m.nacked, msg) }
