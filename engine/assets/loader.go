package assets

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-prefab/engine/systems"
)

/**
 * @brief Loader starts asset loads. File imports run on the job system,
 * conversion to the final asset happens in Storage.Process.
 */
type Loader struct {
	manager *AssetManager
	jobs    *systems.JobSystem
}

func NewLoader(manager *AssetManager, jobs *systems.JobSystem) *Loader {
	return &Loader{
		manager: manager,
		jobs:    jobs,
	}
}

func (l *Loader) Manager() *AssetManager {
	return l.manager
}

/**
 * @brief Queues already imported data. Never blocks; the asset becomes
 * available after the next Process of the storage.
 * @param progress Optional; gets one more tracked asset.
 */
func LoadFromData[A, D any](l *Loader, data D, progress *ProgressCounter, storage *Storage[A, D]) Handle[A] {
	tracker := progress.CreateTracker()
	id := storage.allocate(tracker)
	name := fmt.Sprintf("data:%s", uuid.NewString())

	core.LogDebug("queued '%s' in '%s'", name, storage.Name())
	storage.enqueue(processing[D]{id: id, name: name, data: data})
	return Handle[A]{id: id}
}

/**
 * @brief Loads a file through format. Loads of the same path into the same
 * storage share a handle and import the file once, through the format of the
 * first load. Later loads with another format get that same asset.
 * @param progress Optional; gets one more tracked asset.
 */
func Load[A, D any](l *Loader, path string, format Format[D], progress *ProgressCounter, storage *Storage[A, D]) Handle[A] {
	tracker := progress.CreateTracker()
	if format == nil {
		tracker.Fail(path, ErrNoFormat)
		return Handle[A]{}
	}

	id, start := storage.allocatePath(path, format, tracker)
	if !start {
		core.LogDebug("'%s' already requested in '%s'", path, storage.Name())
		return Handle[A]{id: id}
	}
	importFile(l, id, path, format, false, storage.enqueue)
	return Handle[A]{id: id}
}

/**
 * @brief Re-imports a previously loaded file in place, keeping its handle.
 * @return False when the path was never loaded into storage.
 */
func Reload[A, D any](l *Loader, path string, storage *Storage[A, D]) bool {
	id, src, ok := storage.source(path)
	if !ok {
		return false
	}
	importFile(l, id, src.path, src.format, true, storage.enqueue)
	return true
}

// WatchReloads re-imports files of storage whenever the asset manager sees them change.
func WatchReloads[A, D any](l *Loader, storage *Storage[A, D]) {
	l.manager.Subscribe(func(path string) {
		if Reload(l, path, storage) {
			core.LogDebug("'%s' changed, reloading into '%s'", path, storage.Name())
		}
	})
}

func importFile[D any](l *Loader, id uint32, path string, format Format[D], reload bool, enqueue func(processing[D])) {
	job := metadata.JobTask{
		Name: path,
		OnStart: func() (interface{}, error) {
			bytes, err := l.manager.ReadFile(path)
			if err != nil {
				return nil, err
			}
			data, err := format.Import(bytes)
			if err != nil {
				return nil, fmt.Errorf("%s import of '%s': %w", format.Name(), path, err)
			}
			return data, nil
		},
		OnComplete: func(result interface{}) {
			enqueue(processing[D]{id: id, name: path, data: result.(D), reload: reload})
		},
		OnFailure: func(err error) {
			enqueue(processing[D]{id: id, name: path, err: err, reload: reload})
		},
	}
	if err := l.jobs.AddWorkNonBlocking(job); err != nil {
		enqueue(processing[D]{id: id, name: path, err: err, reload: reload})
	}
}
