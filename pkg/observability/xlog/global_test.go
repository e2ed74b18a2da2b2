package xlog_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/tracekit/pkg/observability/xlog"
)

func TestGlobal_SetAndReset(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)

	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)

	xlog.SetDefault(nil)
	xlog.SetDefault(logger)
	assert.Same(t, logger, xlog.Default())

	ctx := context.Background()
	xlog.Debug(ctx, "d")
	xlog.Info(ctx, "i")
	xlog.Warn(ctx, "w")
	xlog.Error(ctx, "e")
	xlog.Stack(ctx, "s")
	out := buf.String()
	for _, msg := range []string{"msg=d", "msg=i", "msg=w", "msg=e", "msg=s"} {
		assert.Contains(t, out, msg)
	}

	xlog.ResetDefault()
	assert.NotSame(t, logger, xlog.Default())
}
