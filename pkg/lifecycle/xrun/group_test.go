package xrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestGroup_FirstErrorCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	g, _ := NewGroup(context.Background())
	g.Go(blockUntilDone)
	g.Go(func(context.Context) error { return boom })

	assert.ErrorIs(t, g.Wait(), boom)
}

func TestGroup_CancelCauseIsReturned(t *testing.T) {
	g, ctx := NewGroup(context.Background())
	g.Go(blockUntilDone)

	cause := &SignalError{Signal: syscall.SIGTERM}
	g.Cancel(cause)

	err := g.Wait()
	assert.ErrorIs(t, err, ErrSignal)
	var sigErr *SignalError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, syscall.SIGTERM, sigErr.Signal)
	assert.Error(t, ctx.Err())
}

func TestGroup_ParentCancelReturnsNil(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(parent)
	g.Go(blockUntilDone)
	cancel()

	assert.NoError(t, g.Wait())
}

func TestGroup_NilService(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(nil)
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)

	assert.ErrorIs(t, Run(context.Background(), &Options{NoSignals: true}, Named("nil", nil)), ErrNilFunc)
}

func TestRun_AllServicesFinish(t *testing.T) {
	ran := 0
	svc := func(context.Context) error { ran++; return nil }

	err := Run(context.Background(), &Options{NoSignals: true}, Named("a", svc))
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestRun_SignalStopsServices(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGINT

	err := Run(context.Background(), &Options{SignalCh: sigCh}, Named("worker", blockUntilDone))
	assert.ErrorIs(t, err, ErrSignal)
	assert.Contains(t, err.Error(), "interrupt")
}

func TestRun_ServiceErrorWins(t *testing.T) {
	boom := errors.New("boom")
	sigCh := make(chan os.Signal)

	err := Run(context.Background(), &Options{SignalCh: sigCh},
		Named("worker", blockUntilDone),
		Named("failing", func(context.Context) error { return boom }),
	)
	assert.ErrorIs(t, err, boom)
}

// =============================================================================
// HTTPServer
// =============================================================================

func TestHTTPServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}

	g, _ := NewGroup(context.Background())
	g.Go(HTTPServer(srv, time.Second))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)

	g.Cancel(nil)
	assert.NoError(t, g.Wait())
}

type failingServer struct{ err error }

func (s failingServer) ListenAndServe() error        { return s.err }
func (failingServer) Shutdown(context.Context) error { return nil }

func TestHTTPServer_ListenError(t *testing.T) {
	boom := errors.New("address in use")
	err := HTTPServer(failingServer{err: boom}, time.Second)(context.Background())
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, HTTPServer(nil, 0)(context.Background()), ErrNilServer)
}
