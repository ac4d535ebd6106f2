package assets

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/anima-prefab/engine/containers"
	"github.com/spaghettifunk/anima-prefab/engine/core"
)

var ErrInvalidHandle = errors.New("invalid asset handle")
var ErrAssetNotLoaded = errors.New("asset is not loaded")
var ErrNoFormat = errors.New("no format given for asset")

const defaultQueueSize = 64

type reloader[D any] struct {
	path   string
	format Format[D]
}

// processing is the unit handed from workers to the main thread.
type processing[D any] struct {
	id     uint32
	name   string
	data   D
	err    error
	reload bool
}

/**
 * @brief Storage owns every asset of type A and converts imported data D into
 * A on the main thread. Imported data is queued by workers and drained by Process.
 */
type Storage[A, D any] struct {
	name      string
	processor func(D) (A, error)
	unloader  func(A)
	nextID    atomic.Uint32

	mu      sync.RWMutex
	assets  map[uint32]A
	paths   map[string]uint32
	sources map[uint32]reloader[D]
	waiting map[uint32][]*Tracker

	queueMu sync.Mutex
	queue   *containers.RingQueue[processing[D]]
}

/**
 * @brief Creates a new storage.
 * @param name The name of the storage, used in log output and events.
 * @param processor Converts imported data to the final asset. Runs on the thread calling Process.
 */
func NewStorage[A, D any](name string, processor func(D) (A, error)) *Storage[A, D] {
	return &Storage[A, D]{
		name:      name,
		processor: processor,
		assets:    make(map[uint32]A),
		paths:     make(map[string]uint32),
		sources:   make(map[uint32]reloader[D]),
		waiting:   make(map[uint32][]*Tracker),
		queue:     containers.NewRingQueue[processing[D]](defaultQueueSize),
	}
}

// OnUnload sets a callback invoked with every asset removed by Unload.
func (s *Storage[A, D]) OnUnload(fn func(A)) {
	s.unloader = fn
}

func (s *Storage[A, D]) Name() string {
	return s.name
}

func (s *Storage[A, D]) Get(h Handle[A]) (A, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[h.id]
	return a, ok
}

// IsLoaded reports whether the handle points to a processed asset.
func (s *Storage[A, D]) IsLoaded(h Handle[A]) bool {
	_, ok := s.Get(h)
	return ok
}

func (s *Storage[A, D]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

// Unload drops the asset. File-backed assets can be loaded again afterwards.
func (s *Storage[A, D]) Unload(h Handle[A]) error {
	if !h.IsValid() {
		return ErrInvalidHandle
	}
	s.mu.Lock()
	a, ok := s.assets[h.id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unload %s from '%s': %w", h, s.name, ErrAssetNotLoaded)
	}
	delete(s.assets, h.id)
	if src, ok := s.sources[h.id]; ok {
		delete(s.paths, src.path)
		delete(s.sources, h.id)
	}
	s.mu.Unlock()

	if s.unloader != nil {
		s.unloader(a)
	}
	return nil
}

/**
 * @brief Drains the queue of imported data, running the processor for each entry.
 * Must be called from a single goroutine.
 * @return The number of entries handled.
 */
func (s *Storage[A, D]) Process() int {
	count := 0
	for {
		s.queueMu.Lock()
		p, err := s.queue.Dequeue()
		s.queueMu.Unlock()
		if err != nil {
			return count
		}
		count++
		s.handle(p)
	}
}

func (s *Storage[A, D]) handle(p processing[D]) {
	if p.err != nil {
		s.fail(p, p.err)
		return
	}
	asset, err := s.processor(p.data)
	if err != nil {
		s.fail(p, err)
		return
	}

	s.mu.Lock()
	old, replaced := s.assets[p.id]
	s.assets[p.id] = asset
	trackers := s.waiting[p.id]
	delete(s.waiting, p.id)
	s.mu.Unlock()

	if replaced && s.unloader != nil {
		s.unloader(old)
	}
	for _, t := range trackers {
		t.Success()
	}

	ctx := core.EventContext{}
	ctx.Data.C[0] = p.name
	ctx.Data.C[1] = s.name
	if p.reload {
		core.LogInfo("asset '%s' reloaded in '%s'", p.name, s.name)
		core.EventFire(core.EVENT_CODE_ASSET_RELOADED, s, ctx)
		return
	}
	core.LogDebug("asset '%s' loaded in '%s'", p.name, s.name)
	core.EventFire(core.EVENT_CODE_ASSET_LOADED, s, ctx)
}

func (s *Storage[A, D]) fail(p processing[D], err error) {
	s.mu.Lock()
	trackers := s.waiting[p.id]
	delete(s.waiting, p.id)
	// A failed first load frees the path so that a later Load tries again.
	if _, loaded := s.assets[p.id]; !loaded {
		if src, ok := s.sources[p.id]; ok {
			delete(s.paths, src.path)
			delete(s.sources, p.id)
		}
	}
	s.mu.Unlock()

	core.LogError("asset '%s' failed in '%s': %s", p.name, s.name, err)
	for _, t := range trackers {
		t.Fail(p.name, err)
	}

	ctx := core.EventContext{}
	ctx.Data.C[0] = p.name
	ctx.Data.C[1] = err.Error()
	core.EventFire(core.EVENT_CODE_ASSET_FAILED, s, ctx)
}

// allocate reserves a new handle and registers the tracker on it.
func (s *Storage[A, D]) allocate(tracker *Tracker) uint32 {
	id := s.nextID.Add(1)
	if tracker != nil {
		s.mu.Lock()
		s.waiting[id] = append(s.waiting[id], tracker)
		s.mu.Unlock()
	}
	return id
}

/**
 * @brief Returns the handle already assigned to path, or reserves one.
 * A path keeps the format of its first load.
 * The bool is true when the caller must start the import.
 */
func (s *Storage[A, D]) allocatePath(path string, format Format[D], tracker *Tracker) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.paths[path]; ok {
		if first := s.sources[id].format; !reflect.DeepEqual(first, format) {
			core.LogWarn("'%s' is already loaded in '%s' as %s, ignoring %s", path, s.name, first.Name(), format.Name())
		}
		if _, loaded := s.assets[id]; loaded {
			tracker.Success()
		} else if tracker != nil {
			s.waiting[id] = append(s.waiting[id], tracker)
		}
		return id, false
	}
	id := s.nextID.Add(1)
	s.paths[path] = id
	s.sources[id] = reloader[D]{path: path, format: format}
	if tracker != nil {
		s.waiting[id] = append(s.waiting[id], tracker)
	}
	return id, true
}

func (s *Storage[A, D]) source(path string) (uint32, reloader[D], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.paths[path]
	if !ok {
		return 0, reloader[D]{}, false
	}
	return id, s.sources[id], true
}

// enqueue never blocks; a full queue grows.
func (s *Storage[A, D]) enqueue(p processing[D]) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.queue.IsFull() {
		s.queue.Grow()
	}
	if err := s.queue.Enqueue(p); err != nil {
		core.LogError("could not queue '%s' in '%s': %s", p.name, s.name, err)
	}
}
