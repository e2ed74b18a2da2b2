package xtrace_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/omeyang/tracekit/pkg/observability/xspan"
	"github.com/omeyang/tracekit/pkg/observability/xtrace"
)

func ExampleDecode() {
	sc, err := xtrace.Decode("00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(sc.TraceID(), sc.SpanID(), sc.IsSampled())
	fmt.Println(xtrace.Encode(sc))

	_, err = xtrace.Decode("00-abc")
	fmt.Println(err != nil)
	// Output:
	// 0af7651916cd43dd8448eb211c80319c b7ad6b7169203331 true
	// 00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
	// true
}

func ExampleHTTPMiddleware() {
	rec := xspan.NewRecorder()
	tracer := xspan.NewTracer(xspan.WithExporter(rec))

	h := xtrace.HTTPMiddleware(xtrace.WithTracer(tracer))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	r, _ := rec.Last()
	fmt.Println(r.Name, r.Kind, r.Status, r.StatusMessage)
	// Output:
	// GET /health SERVER Error HTTP 503
}

func ExampleBegin() {
	rec := xspan.NewRecorder()
	tracer := xspan.NewTracer(xspan.WithExporter(rec))

	func() {
		_, span := xtrace.Begin(context.Background(), tracer, xtrace.Boundary{
			Variant: xtrace.VariantConsumer,
			Name:    "orders process",
		})
		defer xtrace.FinishDeferred(span, nil)
	}()

	r, _ := rec.Last()
	fmt.Println(r.Name, r.Kind, r.Status)
	// Output:
	// orders process CONSUMER Unset
}
