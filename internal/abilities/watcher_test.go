package abilities

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnOverlayWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, OverlayFileName)
	require.NoError(t, os.WriteFile(path, []byte(DefaultContent), 0o644))

	changed := make(chan struct{}, 4)
	w, err := NewWatcher(path, func(context.Context) error {
		changed <- struct{}{}
		return nil
	}, WithWatchDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.yaml"), []byte("x: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("- id: edited\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change callback after overlay write")
	}

	cancel()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestNewWatcherValidatesArguments(t *testing.T) {
	_, err := NewWatcher("", func(context.Context) error { return nil })
	require.Error(t, err)

	_, err = NewWatcher("/tmp/abilities.yaml", nil)
	require.Error(t, err)
}

func TestWatcherPassesStartContextToCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, OverlayFileName)
	require.NoError(t, os.WriteFile(path, []byte(DefaultContent), 0o644))

	got := make(chan context.Context, 4)
	w, err := NewWatcher(path, func(ctx context.Context) error {
		got <- ctx
		return nil
	}, WithWatchDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, os.WriteFile(path, []byte("- id: edited\n"), 0o644))

	var cbCtx context.Context
	select {
	case cbCtx = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change callback after overlay write")
	}

	cancel()
	select {
	case <-cbCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("callback context was not cancelled with the watcher context")
	}
}
