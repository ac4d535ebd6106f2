package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-prefab/engine/core"
)

var ErrAssetManagerClosed = errors.New("asset manager already closed")
var ErrAssetNotFound = errors.New("asset not found")

type AssetKind int

const (
	AssetKindNone AssetKind = iota
	AssetKindTexture
	AssetKindMaterial
	AssetKindMesh
	AssetKindScene
	AssetKindConfig
)

type AssetInfo struct {
	Path       string
	Kind       AssetKind
	LastLoaded time.Time
}

// ChangeListener is told about every created or modified file, relative to the assets dir.
type ChangeListener func(path string)

/**
 * @brief Keeps an index of the files below the assets directory and
 * notifies listeners when they change on disk.
 */
type AssetManager struct {
	root   string
	assets map[string]AssetInfo

	mutex sync.RWMutex

	listenersMu sync.RWMutex
	listeners   []ChangeListener

	done      chan struct{}
	stopped   chan struct{}
	fsnotify  *fsnotify.Watcher
	isClosed  bool
	closeOnce sync.Once
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

/**
 * @brief Indexes every file below assetsDir. When watch is set, changes are
 * picked up in the background until Shutdown.
 */
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root
	am.stopped = make(chan struct{})

	if watch {
		go am.start()
	} else {
		close(am.stopped)
	}

	if err := am.watchRecursive(root, !watch); err != nil {
		return err
	}
	core.LogInfo("asset manager indexed %d files in '%s'", am.Len(), root)
	return nil
}

func (am *AssetManager) Root() string {
	return am.root
}

// Subscribe registers a listener for file changes.
func (am *AssetManager) Subscribe(listener ChangeListener) {
	am.listenersMu.Lock()
	defer am.listenersMu.Unlock()
	am.listeners = append(am.listeners, listener)
}

// Resolve returns the absolute path of an asset given relative to the assets dir.
func (am *AssetManager) Resolve(path string) (string, error) {
	rel := am.relative(path)
	am.mutex.RLock()
	_, exists := am.assets[rel]
	am.mutex.RUnlock()
	if exists {
		return filepath.Join(am.root, filepath.FromSlash(rel)), nil
	}
	// Files created after the last index may not have been seen yet.
	full := filepath.Join(am.root, filepath.FromSlash(rel))
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("%w: %s", ErrAssetNotFound, path)
	}
	am.handleFileEvent(full)
	return full, nil
}

// ReadFile reads an asset and records when it was last loaded.
func (am *AssetManager) ReadFile(path string) ([]byte, error) {
	full, err := am.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	rel := am.relative(path)
	am.mutex.Lock()
	if info, ok := am.assets[rel]; ok {
		info.LastLoaded = time.Now()
		am.assets[rel] = info
	}
	am.mutex.Unlock()
	return data, nil
}

func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[am.relative(path)]
	return info, ok
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

func (am *AssetManager) Shutdown() error {
	am.closeOnce.Do(func() {
		am.mutex.Lock()
		am.isClosed = true
		am.mutex.Unlock()
		close(am.done)
	})
	if am.stopped != nil {
		<-am.stopped
	}
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogError(err.Error())
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if path, ok := am.handleFileEvent(e.Name); ok {
					am.notify(path)
				}
			}
			// Can't stat a deleted entry so it could have been a directory as well.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) notify(path string) {
	am.listenersMu.RLock()
	listeners := make([]ChangeListener, len(am.listeners))
	copy(listeners, am.listeners)
	am.listenersMu.RUnlock()

	for _, l := range listeners {
		l(path)
	}
}

// watchRecursive indexes every file under path and, unless indexOnly, watches its directories.
func (am *AssetManager) watchRecursive(path string, indexOnly bool) error {
	am.mutex.RLock()
	closed := am.isClosed
	am.mutex.RUnlock()
	if closed {
		return ErrAssetManagerClosed
	}
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if indexOnly {
				return nil
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(fullPath string) (string, bool) {
	kind := determineAssetKind(fullPath)
	if kind == AssetKindNone {
		return "", false
	}
	rel := am.relative(fullPath)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[rel]
	info.Path = rel
	info.Kind = kind
	am.assets[rel] = info
	return rel, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(fullPath string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, am.relative(fullPath))
}

func (am *AssetManager) relative(path string) string {
	if filepath.IsAbs(path) && am.root != "" {
		if rel, err := filepath.Rel(am.root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func determineAssetKind(path string) AssetKind {
	switch filepath.Ext(path) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".webp":
		return AssetKindTexture
	case ".kmt":
		return AssetKindMaterial
	case ".obj":
		return AssetKindMesh
	case ".gltf", ".glb":
		return AssetKindScene
	case ".toml":
		return AssetKindConfig
	default:
		return AssetKindNone
	}
}
