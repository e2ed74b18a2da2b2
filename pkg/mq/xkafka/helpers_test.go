package xkafka

import (
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
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

func testMessage(topic string, partition int32, offset kafka.Offset, headers ...kafka.Header) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: partition, Offset: offset},
		Value:          []byte("payload"),
		Headers:        headers,
	}
}

func header(key, value string) kafka.Header {
	return kafka.Header{Key: key, Value: []byte(value)}
}

// fakeWriter 记录 Produce 的消息
type fakeWriter struct {
	mu         sync.Mutex
	produced   []*kafka.Message
	produceErr error
	remaining  int
	closed     bool
}

func (w *fakeWriter) Produce(msg *kafka.Message, _ chan kafka.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.produceErr != nil {
		return w.produceErr
	}
	w.produced = append(w.produced, msg)
	return nil
}

func (w *fakeWriter) Flush(int) int { return w.remaining }
func (w *fakeWriter) Close()        { w.closed = true }

// fakeReader 依次返回预设结果，耗尽后返回超时错误
type fakeReader struct {
	mu        sync.Mutex
	results   []readResult
	stored    []*kafka.Message
	storeErr  error
	commitErr error
	closed    bool
}

type readResult struct {
	msg *kafka.Message
	err error
}

var errTimedOut = kafka.NewError(kafka.ErrTimedOut, "timed out", false)

func (r *fakeReader) ReadMessage(time.Duration) (*kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return nil, errTimedOut
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

func (r *fakeReader) StoreMessage(msg *kafka.Message) ([]kafka.TopicPartition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.storeErr != nil {
		return nil, r.storeErr
	}
	r.stored = append(r.stored, msg)
	return nil, nil
}

func (r *fakeReader) Commit() ([]kafka.TopicPartition, error) { return nil, r.commitErr }

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}
