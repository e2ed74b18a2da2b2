package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
	"github.com/omeyang/tracekit/pkg/observability/xsetup"
	"github.com/omeyang/tracekit/pkg/observability/xspan"
)

const (
	testTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	testSpanID  = "00f067aa0ba902b7"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = run(context.Background(), append([]string{"tracectl"}, args...), &out, &errb)
	return code, out.String(), errb.String()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEncode(t *testing.T) {
	code, out, _ := runCLI(t, "encode", "--trace-id", testTraceID, "--span-id", testSpanID, "--sampled")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "00-"+testTraceID+"-"+testSpanID+"-01\n", out)

	code, out, _ = runCLI(t, "encode", "--trace-id", testTraceID, "--span-id", testSpanID)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "00-"+testTraceID+"-"+testSpanID+"-00\n", out)
}

func TestEncode_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing span id", []string{"encode", "--trace-id", testTraceID}},
		{"bad trace id", []string{"encode", "--trace-id", "xyz", "--span-id", testSpanID}},
		{"zero span id", []string{"encode", "--trace-id", testTraceID, "--span-id", "0000000000000000"}},
		{"unknown flag", []string{"encode", "--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, "usage error")
		})
	}
}

func TestDecode(t *testing.T) {
	code, out, _ := runCLI(t, "decode", "00-"+testTraceID+"-"+testSpanID+"-01")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "trace-id: "+testTraceID)
	assert.Contains(t, out, "span-id:  "+testSpanID)
	assert.Contains(t, out, "sampled:  true")

	code, _, stderr := runCLI(t, "decode", "00-"+testTraceID+"-"+testSpanID)
	assert.Equal(t, exitFail, code)
	assert.Contains(t, stderr, "decode failed")

	code, _, _ = runCLI(t, "decode")
	assert.Equal(t, exitUsage, code)
}

func TestGen(t *testing.T) {
	code, out, _ := runCLI(t, "gen")
	require.Equal(t, exitOK, code)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Len(t, strings.Fields(lines[0])[1], 32)
	assert.Len(t, strings.Fields(lines[1])[1], 16)
	assert.Len(t, strings.Fields(lines[2])[1], 36)
	assert.Len(t, strings.Fields(lines[3])[1], 8)

	code, _, _ = runCLI(t, "gen", "--request-id", "snowflake")
	assert.Equal(t, exitUsage, code)
}

func TestConfigCheck(t *testing.T) {
	path := writeConfig(t, `
observability:
  service-name: demo
  tracing:
    sampling-ratio: 0.5
`)
	code, out, _ := runCLI(t, "config", "check", "--config", path)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "service-name: demo")
	assert.Contains(t, out, "sampling-ratio: 0.5")
	assert.Contains(t, out, "exporter: otlp-grpc")

	bad := writeConfig(t, `
observability:
  tracing:
    exporter: zipkin
`)
	code, _, stderr := runCLI(t, "config", "check", "--config", bad)
	assert.Equal(t, exitFail, code)
	assert.Contains(t, stderr, "invalid properties")

	code, _, _ = runCLI(t, "config", "check")
	assert.Equal(t, exitUsage, code)
}

// =============================================================================
// serve
// =============================================================================

func newTestRuntime(t *testing.T) *xsetup.Runtime {
	t.Helper()
	props := xsetup.DefaultProperties()
	props.Tracing.Exporter = "none"
	rt, err := xsetup.Setup(context.Background(), props,
		xsetup.WithoutGlobals(), xsetup.WithLogOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })
	return rt
}

func TestServeHandler_Correlation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newServeHandler(newTestRuntime(t))

	req := httptest.NewRequest(http.MethodGet, "/hello/ann", nil)
	req.Header.Set("X-Trace-Id", "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", rec.Header().Get("X-Trace-Id"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ann", body["hello"])
	assert.Equal(t, "abc123", body["traceId"])
	assert.NotEmpty(t, body["requestId"])
	assert.Len(t, body["spanId"], 8)
}

func TestServeHandler_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newServeHandler(newTestRuntime(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCmdServe_StopsOnSignal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prevTracer := xspan.Default()
	t.Cleanup(func() {
		xspan.SetDefault(prevTracer)
		xlog.ResetDefault()
	})

	path := writeConfig(t, `
observability:
  tracing:
    exporter: none
  logging:
    level: error
`)
	signals := make(chan os.Signal, 1)
	signals <- syscall.SIGTERM

	assert.NoError(t, cmdServe(context.Background(), path, "127.0.0.1:0", signals))
}

func TestCmdServe_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
observability:
  logging:
    format: xml
`)
	err := cmdServe(context.Background(), path, "127.0.0.1:0", nil)
	assert.ErrorIs(t, err, xsetup.ErrInvalidProperties)
}
