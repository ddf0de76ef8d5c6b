package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitChange(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return nil
	}
}

func TestWatcherReportsTrackedFile(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "main.huff")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(tracked, []byte("a"), 0644))

	changes := make(chan []string, 4)
	w, err := New([]string{tracked}, 50*time.Millisecond, func(changed []string) { changes <- changed })
	require.NoError(t, err)
	w.Start(context.Background())
	defer w.Stop()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(tracked, []byte("b"), 0644))
	require.NoError(t, os.WriteFile(tracked, []byte("c"), 0644))

	assert.Equal(t, []string{tracked}, waitChange(t, changes))
	assert.GreaterOrEqual(t, w.Stats().Events, 1)
	assert.GreaterOrEqual(t, w.Stats().Batches, 1)
}

func TestWatcherSetPaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(sub, 0755))
	a := filepath.Join(dir, "a.huff")
	b := filepath.Join(sub, "b.huff")
	require.NoError(t, os.WriteFile(a, nil, 0644))
	require.NoError(t, os.WriteFile(b, nil, 0644))

	changes := make(chan []string, 4)
	w, err := New([]string{a}, 50*time.Millisecond, func(changed []string) { changes <- changed })
	require.NoError(t, err)
	require.NoError(t, w.SetPaths([]string{a, b}))
	w.Start(context.Background())
	defer w.Stop()

	require.NoError(t, os.WriteFile(b, []byte("x"), 0644))
	assert.Equal(t, []string{b}, waitChange(t, changes))
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "gone", "a.huff")}, 0, func([]string) {})
	assert.Error(t, err)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New([]string{filepath.Join(dir, "a.huff")}, 0, func([]string) {})
	require.NoError(t, err)
	w.Start(ctx)
	cancel()
	w.Stop()
}
