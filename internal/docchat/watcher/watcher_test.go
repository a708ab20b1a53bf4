package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	reloaded := make(chan struct{}, 8)

	w, err := New(dir, 100*time.Millisecond, func(ctx context.Context) error {
		reloads.Add(1)
		reloaded <- struct{}{}
		return nil
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// A burst of writes should collapse into one rebuild.
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "doc.md")
		require.NoError(t, os.WriteFile(path, []byte("# Title\n\ncontent"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a rebuild after corpus change")
	}

	// Allow any stray follow-up to land before counting.
	time.Sleep(300 * time.Millisecond)
	assert.LessOrEqual(t, reloads.Load(), int32(2))
}

func TestWatcherIgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()

	reloaded := make(chan struct{}, 1)
	w, err := New(dir, 50*time.Millisecond, func(ctx context.Context) error {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("binary"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.md"), []byte("# hidden"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("unsupported files must not trigger a rebuild")
	case <-time.After(300 * time.Millisecond):
	}
}
