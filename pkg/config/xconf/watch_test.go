package xconf

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "app.yaml", sampleYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var names []string
	w, err := Watch(cfg, func(c *Config, err error) {
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		names = append(names, c.Client().String("app.name"))
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("app:\n  name: billing\n"), 0o600)
		mu.Lock()
		defer mu.Unlock()
		return len(names) > 0 && names[len(names)-1] == "billing"
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, "billing", cfg.Client().String("app.name"))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeFile(t, "app.yaml", sampleYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	calls := make(chan struct{}, 8)
	w, err := Watch(cfg, func(*Config, error) { calls <- struct{}{} }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path+".bak", []byte("x"), 0o600))
	select {
	case <-calls:
		t.Fatal("unexpected reload for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_Errors(t *testing.T) {
	cfg, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	_, err = Watch(cfg, nil)
	assert.ErrorIs(t, err, ErrNotReloadable)

	_, err = Watch(nil, nil)
	assert.ErrorIs(t, err, ErrNotReloadable)
}

func TestWatcher_CloseWithoutRun(t *testing.T) {
	cfg, err := New(writeFile(t, "app.json", `{"app":{"name":"x"}}`))
	require.NoError(t, err)
	w, err := Watch(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
