package xrotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLumberjack_Validation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		opts []Option
		want error
	}{
		{"empty filename", "", nil, ErrEmptyFilename},
		{"zero size", filepath.Join(dir, "a.log"), []Option{WithMaxSize(0)}, ErrInvalidMaxSize},
		{"negative backups", filepath.Join(dir, "a.log"), []Option{WithMaxBackups(-1)}, ErrInvalidMaxBackups},
		{"age too large", filepath.Join(dir, "a.log"), []Option{WithMaxAge(maxAgeDays + 1)}, ErrInvalidMaxAge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLumberjack(tt.file, tt.opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLumberjack_WriteRotateClose(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "app.log")
	r, err := NewLumberjack(file, WithMaxSize(1), WithCompress(false), WithLocalTime(true), nil)
	require.NoError(t, err)

	n, err := r.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("world\n"))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), ErrClosed)
	_, err = r.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Rotate(), ErrClosed)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "world\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(file))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "current file plus one backup")
}
