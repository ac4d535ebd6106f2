package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-prefab/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textFormat struct {
	imports atomic.Int32
}

func (f *textFormat) Name() string { return "TEXT" }

func (f *textFormat) Import(bytes []byte) (string, error) {
	f.imports.Add(1)
	if len(bytes) == 0 {
		return "", errors.New("empty file")
	}
	return string(bytes), nil
}

func upper(s string) (string, error) {
	return strings.ToUpper(s), nil
}

func newTestLoader(t *testing.T, files map[string]string, watch bool) *Loader {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, watch))
	js, err := systems.NewJobSystem(2, 8)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = js.Shutdown()
		_ = am.Shutdown()
	})
	return NewLoader(am, js)
}

func pumpUntil(t *testing.T, p Processor, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		p.Process()
		return cond()
	}, 5*time.Second, 5*time.Millisecond)
}

func TestProgressCounter(t *testing.T) {
	p := NewProgressCounter()
	assert.True(t, p.IsComplete())

	a := p.CreateTracker()
	b := p.CreateTracker()
	assert.Equal(t, 2, p.NumAssets())
	assert.Equal(t, 2, p.NumLoading())
	assert.False(t, p.IsComplete())

	a.Success()
	a.Success()
	b.Fail("b", errors.New("broken"))
	b.Success()

	assert.True(t, p.IsComplete())
	assert.Equal(t, 1, p.NumFinished())
	assert.Equal(t, 1, p.NumFailed())
	require.Len(t, p.Errors(), 1)
	assert.Equal(t, "b", p.Errors()[0].Name)
	assert.ErrorContains(t, p.Err(), "broken")

	var nilCounter *ProgressCounter
	tr := nilCounter.CreateTracker()
	assert.Nil(t, tr)
	tr.Success()
}

func TestLoadFromDataCompletesOnProcess(t *testing.T) {
	l := NewLoader(nil, nil)
	storage := NewStorage("text", upper)
	progress := NewProgressCounter()

	h := LoadFromData(l, "hello", progress, storage)
	require.True(t, h.IsValid())
	assert.False(t, storage.IsLoaded(h))
	assert.Equal(t, 1, progress.NumLoading())

	assert.Equal(t, 1, storage.Process())
	got, ok := storage.Get(h)
	require.True(t, ok)
	assert.Equal(t, "HELLO", got)
	assert.True(t, progress.IsComplete())
	assert.Equal(t, 1, progress.NumFinished())
	assert.Equal(t, 0, storage.Process())
}

func TestLoadFromDataGrowsQueue(t *testing.T) {
	l := NewLoader(nil, nil)
	storage := NewStorage("text", upper)
	progress := NewProgressCounter()

	for i := 0; i < defaultQueueSize*2+1; i++ {
		LoadFromData(l, "x", progress, storage)
	}
	assert.Equal(t, defaultQueueSize*2+1, storage.Process())
	assert.True(t, progress.IsComplete())
	assert.Equal(t, defaultQueueSize*2+1, storage.Len())
}

func TestProcessorFailureIsTracked(t *testing.T) {
	l := NewLoader(nil, nil)
	storage := NewStorage("text", func(string) (string, error) {
		return "", errors.New("upload failed")
	})
	progress := NewProgressCounter()

	h := LoadFromData(l, "hello", progress, storage)
	storage.Process()

	assert.False(t, storage.IsLoaded(h))
	assert.True(t, progress.IsComplete())
	assert.Equal(t, 1, progress.NumFailed())
	assert.ErrorContains(t, progress.Err(), "upload failed")
}

func TestLoadDeduplicatesByPath(t *testing.T) {
	l := newTestLoader(t, map[string]string{"a.toml": "alpha"}, false)
	storage := NewStorage("text", upper)
	format := &textFormat{}
	progress := NewProgressCounter()

	h1 := Load(l, "a.toml", format, progress, storage)
	h2 := Load(l, "a.toml", format, progress, storage)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 2, progress.NumAssets())

	pumpUntil(t, storage, progress.IsComplete)
	assert.Equal(t, int32(1), format.imports.Load())
	assert.Equal(t, 2, progress.NumFinished())

	got, ok := storage.Get(h1)
	require.True(t, ok)
	assert.Equal(t, "ALPHA", got)

	// Already loaded: tracked as finished right away.
	late := NewProgressCounter()
	h3 := Load(l, "a.toml", format, late, storage)
	assert.Equal(t, h1, h3)
	assert.True(t, late.IsComplete())
	assert.Equal(t, 1, late.NumFinished())
}

func TestLoadKeepsFirstFormat(t *testing.T) {
	l := newTestLoader(t, map[string]string{"a.toml": "alpha"}, false)
	storage := NewStorage("text", upper)
	first, second := &textFormat{}, &textFormat{}
	progress := NewProgressCounter()

	h1 := Load(l, "a.toml", first, progress, storage)
	h2 := Load(l, "a.toml", second, progress, storage)
	assert.Equal(t, h1, h2)

	pumpUntil(t, storage, progress.IsComplete)
	assert.Equal(t, int32(1), first.imports.Load())
	assert.Equal(t, int32(0), second.imports.Load())

	// Reload goes through the format the path was first loaded with.
	require.True(t, Reload(l, "a.toml", storage))
	require.Eventually(t, func() bool {
		storage.Process()
		return first.imports.Load() == 2
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), second.imports.Load())
}

func TestLoadMissingFileFails(t *testing.T) {
	l := newTestLoader(t, nil, false)
	storage := NewStorage("text", upper)
	progress := NewProgressCounter()

	h := Load(l, "missing.toml", &textFormat{}, progress, storage)
	pumpUntil(t, storage, progress.IsComplete)

	assert.False(t, storage.IsLoaded(h))
	assert.Equal(t, 1, progress.NumFailed())
	assert.ErrorIs(t, progress.Err(), ErrAssetNotFound)

	// The path is free again, so a second attempt gets a fresh handle.
	again := Load(l, "missing.toml", &textFormat{}, nil, storage)
	assert.NotEqual(t, h, again)
}

func TestLoadWithoutFormat(t *testing.T) {
	storage := NewStorage("text", upper)
	progress := NewProgressCounter()
	h := Load[string, string](NewLoader(nil, nil), "a.toml", nil, progress, storage)
	assert.False(t, h.IsValid())
	assert.ErrorIs(t, progress.Err(), ErrNoFormat)
}

func TestReloadKeepsHandle(t *testing.T) {
	l := newTestLoader(t, map[string]string{"a.toml": "alpha"}, false)
	storage := NewStorage("text", upper)
	var unloaded []string
	storage.OnUnload(func(s string) { unloaded = append(unloaded, s) })
	progress := NewProgressCounter()

	h := Load(l, "a.toml", &textFormat{}, progress, storage)
	pumpUntil(t, storage, progress.IsComplete)

	require.NoError(t, os.WriteFile(filepath.Join(l.Manager().Root(), "a.toml"), []byte("beta"), 0o644))
	require.True(t, Reload(l, "a.toml", storage))
	assert.False(t, Reload(l, "other.toml", storage))

	pumpUntil(t, storage, func() bool {
		v, _ := storage.Get(h)
		return v == "BETA"
	})
	assert.Equal(t, []string{"ALPHA"}, unloaded)

	require.NoError(t, storage.Unload(h))
	assert.ErrorIs(t, storage.Unload(h), ErrAssetNotLoaded)
	assert.ErrorIs(t, storage.Unload(Handle[string]{}), ErrInvalidHandle)
	assert.Equal(t, []string{"ALPHA", "BETA"}, unloaded)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	l := newTestLoader(t, map[string]string{"a.toml": "alpha"}, true)
	storage := NewStorage("text", upper)
	WatchReloads(l, storage)
	progress := NewProgressCounter()

	h := Load(l, "a.toml", &textFormat{}, progress, storage)
	pumpUntil(t, storage, progress.IsComplete)

	require.NoError(t, os.WriteFile(filepath.Join(l.Manager().Root(), "a.toml"), []byte("gamma"), 0o644))
	pumpUntil(t, storage, func() bool {
		v, _ := storage.Get(h)
		return v == "GAMMA"
	})
}

func TestAssetManagerIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "textures", "a.png"), []byte{1}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte{1}, 0o644))

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, false))
	defer am.Shutdown()

	assert.Equal(t, 1, am.Len())
	info, ok := am.Info("textures/a.png")
	require.True(t, ok)
	assert.Equal(t, AssetKindTexture, info.Kind)
	assert.True(t, info.LastLoaded.IsZero())

	data, err := am.ReadFile("textures/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
	info, _ = am.Info("textures/a.png")
	assert.False(t, info.LastLoaded.IsZero())

	_, err = am.Resolve("nope.png")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}
