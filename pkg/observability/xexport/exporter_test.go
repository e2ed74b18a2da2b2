package xexport

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
	"github.com/omeyang/tracekit/pkg/resilience/xbreaker"
)

const (
	testTraceHex = "4bf92f3577b34da6a3ce929d0e0e4736"
	testSpanHex  = "00f067aa0ba902b7"
)

func endSpan(t *testing.T, tr *xspan.Tracer, name string) {
	t.Helper()
	span := tr.Start(context.Background(), name, xspan.KindServer, trace.SpanContext{})
	require.True(t, span.End())
}

func TestExporter_BridgesRecord(t *testing.T) {
	mem := tracetest.NewInMemoryExporter()
	exp, err := NewWithSpanExporter(mem, WithSyncExport(), WithServiceName("orders"))
	require.NoError(t, err)
	tr := xspan.NewTracer(xspan.WithExporter(exp))

	parent, err := xspan.NewRemoteSpanContext(testTraceHex, testSpanHex, trace.FlagsSampled)
	require.NoError(t, err)
	span := tr.Start(context.Background(), "GET /orders", xspan.KindServer, parent)
	require.NoError(t, span.SetAttribute("http.method", "GET"))
	span.SetStatus(codes.Error, "HTTP 503")
	require.True(t, span.End())

	stubs := mem.GetSpans()
	require.Len(t, stubs, 1)
	got := stubs[0]

	assert.Equal(t, "GET /orders", got.Name)
	assert.Equal(t, trace.SpanKindServer, got.SpanKind)
	assert.Equal(t, parent.TraceID(), got.SpanContext.TraceID())
	assert.Equal(t, parent.SpanID(), got.Parent.SpanID())
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext.SpanID())
	assert.Equal(t, codes.Error, got.Status.Code)
	assert.Equal(t, "HTTP 503", got.Status.Description)
	assert.Contains(t, got.Attributes, attribute.String("http.method", "GET"))
	assert.Equal(t, ScopeName, got.InstrumentationScope.Name)
	assert.False(t, got.EndTime.Before(got.StartTime))

	require.NotNil(t, got.Resource)
	v, ok := got.Resource.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "orders", v.AsString())
}

func TestStub_WithoutResource(t *testing.T) {
	stub := Stub(xspan.Record{Name: "n", Kind: xspan.KindConsumer}, nil)
	assert.Nil(t, stub.Resource)
	assert.Equal(t, trace.SpanKindConsumer, stub.SpanKind)
	assert.Equal(t, "n", ReadOnly(xspan.Record{Name: "n"}, nil).Name())
}

func TestExporter_BreakerDropsWhileOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockSpanExporter(ctrl)
	mock.EXPECT().
		ExportSpans(gomock.Any(), gomock.Len(1)).
		Return(errors.New("collector unavailable")).
		Times(2)
	mock.EXPECT().Shutdown(gomock.Any()).Return(nil)

	exp, err := NewWithSpanExporter(mock, WithSyncExport(), WithBreaker(2, time.Hour))
	require.NoError(t, err)
	tr := xspan.NewTracer(xspan.WithExporter(exp))

	endSpan(t, tr, "a")
	endSpan(t, tr, "b")
	assert.Equal(t, xbreaker.StateOpen, exp.BreakerState())

	endSpan(t, tr, "c")
	assert.Equal(t, int64(3), exp.Dropped())
	require.NoError(t, exp.Shutdown(context.Background()))
}

func TestExporter_CountsFailuresWithoutBreaker(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockSpanExporter(ctrl)
	mock.EXPECT().
		ExportSpans(gomock.Any(), gomock.Len(1)).
		Return(errors.New("collector unavailable")).
		Times(3)
	mock.EXPECT().Shutdown(gomock.Any()).Return(nil)

	exp, err := NewWithSpanExporter(mock, WithSyncExport(), WithBreaker(0, 0))
	require.NoError(t, err)
	tr := xspan.NewTracer(xspan.WithExporter(exp))

	endSpan(t, tr, "a")
	endSpan(t, tr, "b")
	endSpan(t, tr, "c")
	assert.Equal(t, xbreaker.StateClosed, exp.BreakerState())
	assert.Equal(t, int64(3), exp.Dropped())
	require.NoError(t, exp.Shutdown(context.Background()))
}

func TestExporter_BatchFlushesOnShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockSpanExporter(ctrl)
	gomock.InOrder(
		mock.EXPECT().ExportSpans(gomock.Any(), gomock.Len(2)).Return(nil),
		mock.EXPECT().Shutdown(gomock.Any()).Return(nil),
	)

	exp, err := NewWithSpanExporter(mock, WithBreaker(0, 0))
	require.NoError(t, err)
	tr := xspan.NewTracer(xspan.WithExporter(exp))
	endSpan(t, tr, "a")
	endSpan(t, tr, "b")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, exp.Shutdown(ctx))
	require.NoError(t, exp.Shutdown(ctx))

	endSpan(t, tr, "after shutdown")
	assert.Equal(t, xbreaker.StateClosed, exp.BreakerState())
	assert.Zero(t, exp.Dropped())
}

func TestNewWithSpanExporter_Nil(t *testing.T) {
	_, err := NewWithSpanExporter(nil)
	assert.ErrorIs(t, err, ErrNilSpanExporter)
}

func TestNew_Kinds(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		exp, err := New(ctx, KindNone)
		require.NoError(t, err)
		assert.Equal(t, KindNone, exp.Kind())
		exp.ExportSpan(ctx, xspan.Record{Name: "ignored"})
		assert.NoError(t, exp.ForceFlush(ctx))
		assert.NoError(t, exp.Shutdown(ctx))
	})

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		exp, err := New(ctx, KindStdout, WithWriter(&buf), WithSyncExport(), WithServiceName("demo"))
		require.NoError(t, err)
		endSpan(t, xspan.NewTracer(xspan.WithExporter(exp)), "GET /health")
		require.NoError(t, exp.Shutdown(ctx))
		assert.Contains(t, buf.String(), `"Name":"GET /health"`)
		assert.Contains(t, buf.String(), "demo")
	})

	t.Run("otlp", func(t *testing.T) {
		for _, kind := range []Kind{KindOTLPGRPC, KindOTLPHTTP} {
			exp, err := New(ctx, kind, WithEndpoint("localhost:4317"), WithInsecure(true), WithTimeout(time.Second))
			require.NoError(t, err, kind)
			assert.Equal(t, kind, exp.Kind())

			sctx, cancel := context.WithTimeout(ctx, time.Second)
			assert.NoError(t, exp.Shutdown(sctx), kind)
			cancel()
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(ctx, "zipkin")
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"otlp-grpc", KindOTLPGRPC, false},
		{"OTLP", KindOTLPGRPC, false},
		{" otlp-http ", KindOTLPHTTP, false},
		{"stdout", KindStdout, false},
		{"none", KindNone, false},
		{"jaeger", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitHTTPEndpoint(t *testing.T) {
	tests := []struct {
		in           string
		wantEndpoint string
		wantInsecure bool
	}{
		{"collector:4318", "collector:4318", false},
		{"http://collector:4318/v1/traces", "collector:4318", true},
		{"https://collector:4318", "collector:4318", false},
	}
	for _, tt := range tests {
		endpoint, insecure := splitHTTPEndpoint(tt.in)
		assert.Equal(t, tt.wantEndpoint, endpoint, tt.in)
		assert.Equal(t, tt.wantInsecure, insecure, tt.in)
	}
}
