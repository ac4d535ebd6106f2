package ecs

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-prefab/engine/core"
)

var ErrEntityNotAlive = errors.New("entity is not alive")
var ErrStorageFull = errors.New("component storage is full")
var ErrWorldFull = errors.New("world has no free entity slots")

/**
 * @brief An entity is an index into the world plus a version. The version
 * is bumped every time the slot is reused, which invalidates stale copies.
 */
type Entity struct {
	ID      uint32
	Version uint32
}

func (e Entity) String() string {
	return fmt.Sprintf("%d.%d", e.ID, e.Version)
}

type component interface {
	remove(e Entity)
}

/**
 * @brief World allocates entities and owns the component storages.
 */
type World struct {
	id          uuid.UUID
	maxEntities int

	mu       sync.RWMutex
	versions []uint32
	alive    []bool
	free     []uint32
	storages map[reflect.Type]component
}

// NewWorld creates a world holding at most maxEntities live entities. Zero means unbounded.
func NewWorld(maxEntities int) *World {
	return &World{
		id:          uuid.New(),
		maxEntities: maxEntities,
		storages:    make(map[reflect.Type]component),
	}
}

func (w *World) ID() uuid.UUID {
	return w.id
}

func (w *World) Create() (Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(w.free); n > 0 {
		id := w.free[n-1]
		w.free = w.free[:n-1]
		w.alive[id] = true
		return Entity{ID: id, Version: w.versions[id]}, nil
	}
	if w.maxEntities > 0 && len(w.versions) >= w.maxEntities {
		return Entity{}, ErrWorldFull
	}
	id := uint32(len(w.versions))
	w.versions = append(w.versions, 0)
	w.alive = append(w.alive, true)
	return Entity{ID: id}, nil
}

// Destroy removes every component of the entity and recycles its slot.
func (w *World) Destroy(e Entity) error {
	w.mu.Lock()
	if !w.isAlive(e) {
		w.mu.Unlock()
		return fmt.Errorf("destroy %s: %w", e, ErrEntityNotAlive)
	}
	w.alive[e.ID] = false
	w.versions[e.ID]++
	w.free = append(w.free, e.ID)
	storages := make([]component, 0, len(w.storages))
	for _, s := range w.storages {
		storages = append(storages, s)
	}
	w.mu.Unlock()

	for _, s := range storages {
		s.remove(e)
	}
	core.LogDebug("entity %s destroyed", e)
	return nil
}

func (w *World) IsAlive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isAlive(e)
}

func (w *World) isAlive(e Entity) bool {
	return int(e.ID) < len(w.versions) && w.alive[e.ID] && w.versions[e.ID] == e.Version
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.versions) - len(w.free)
}
