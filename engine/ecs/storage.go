package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

/**
 * @brief Storage holds one component of type T per entity.
 */
type Storage[T any] struct {
	world    *World
	capacity int

	mu   sync.RWMutex
	data map[uint32]entry[T]
}

type entry[T any] struct {
	version uint32
	value   T
}

// GetStorage returns the world's storage for T, creating an unbounded one if needed.
func GetStorage[T any](w *World) *Storage[T] {
	return GetStorageWithCapacity[T](w, 0)
}

// GetStorageWithCapacity is GetStorage with an upper bound on stored components.
// The capacity only applies when the storage is created by this call.
func GetStorageWithCapacity[T any](w *World, capacity int) *Storage[T] {
	key := reflect.TypeOf((*T)(nil)).Elem()

	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.storages[key]; ok {
		return s.(*Storage[T])
	}
	s := &Storage[T]{
		world:    w,
		capacity: capacity,
		data:     make(map[uint32]entry[T]),
	}
	w.storages[key] = s
	return s
}

// Insert sets the component of e, replacing any previous value.
func (s *Storage[T]) Insert(e Entity, value T) error {
	if !s.world.IsAlive(e) {
		return fmt.Errorf("insert %T on %s: %w", value, e, ErrEntityNotAlive)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[e.ID]; !exists && s.capacity > 0 && len(s.data) >= s.capacity {
		return fmt.Errorf("insert %T on %s: %w", value, e, ErrStorageFull)
	}
	s.data[e.ID] = entry[T]{version: e.Version, value: value}
	return nil
}

func (s *Storage[T]) Get(e Entity) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	en, ok := s.data[e.ID]
	if !ok || en.version != e.Version {
		var zero T
		return zero, false
	}
	return en.value, true
}

func (s *Storage[T]) Has(e Entity) bool {
	_, ok := s.Get(e)
	return ok
}

func (s *Storage[T]) Remove(e Entity) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	en, ok := s.data[e.ID]
	if !ok || en.version != e.Version {
		var zero T
		return zero, false
	}
	delete(s.data, e.ID)
	return en.value, true
}

func (s *Storage[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Each calls fn for every stored component until fn returns false. Order is unspecified.
func (s *Storage[T]) Each(fn func(Entity, T) bool) {
	s.mu.RLock()
	items := make([]Entity, 0, len(s.data))
	values := make([]T, 0, len(s.data))
	for id, en := range s.data {
		items = append(items, Entity{ID: id, Version: en.version})
		values = append(values, en.value)
	}
	s.mu.RUnlock()

	for i, e := range items {
		if !fn(e, values[i]) {
			return
		}
	}
}

func (s *Storage[T]) remove(e Entity) {
	s.Remove(e)
}
