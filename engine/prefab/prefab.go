// Package prefab loads trees of entity descriptions in two phases: first every
// sub-asset is requested, then, once all of them arrived, components are attached.
package prefab

import (
	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
)

/**
 * @brief The contract every piece of prefab data implements. S is the system
 * data the implementation needs: storages, loaders and the like.
 */
type Data[S any] interface {
	/**
	 * @brief Requests every sub-asset. Must not block.
	 * @return True when asynchronous work was started and tracked in progress.
	 */
	LoadSubAssets(progress *assets.ProgressCounter, data S) (bool, error)
	/**
	 * @brief Writes the components to entity. Only called after every sub-asset
	 * of the whole prefab finished loading.
	 * @param entities All entities of the prefab, indexed like its entries.
	 * @param children The direct children of entity.
	 */
	AddToEntity(entity ecs.Entity, data S, entities []ecs.Entity, children []ecs.Entity) error
}

/**
 * @brief Optional hook on system data, run once before the first LoadSubAssets of a load.
 */
type PassStarter interface {
	BeginPass()
}

// NoParent marks an entry placed at the top of the hierarchy.
const NoParent = -1

type Entry[T any] struct {
	Parent int
	Data   T
}

/**
 * @brief A flat list of entries. Entry 0 is the main entry and parents
 * always come before their children.
 */
type Prefab[T comparable] struct {
	entries []Entry[T]
}

// New creates a prefab whose main entry holds data. A zero data means the entry has none.
func New[T comparable](data T) *Prefab[T] {
	return &Prefab[T]{
		entries: []Entry[T]{{Parent: NoParent, Data: data}},
	}
}

/**
 * @brief Appends an entry.
 * @param parent The index of an existing entry, or NoParent.
 * @return The index of the new entry.
 */
func (p *Prefab[T]) Add(parent int, data T) int {
	if parent < NoParent || parent >= len(p.entries) {
		panic("prefab: parent index out of range")
	}
	p.entries = append(p.entries, Entry[T]{Parent: parent, Data: data})
	return len(p.entries) - 1
}

func (p *Prefab[T]) Main() *Entry[T] {
	return &p.entries[0]
}

func (p *Prefab[T]) Entry(index int) *Entry[T] {
	if index < 0 || index >= len(p.entries) {
		return nil
	}
	return &p.entries[index]
}

func (p *Prefab[T]) Len() int {
	return len(p.entries)
}

// Children returns the indices of the direct children of entry index.
func (p *Prefab[T]) Children(index int) []int {
	out := []int{}
	for i, e := range p.entries {
		if e.Parent == index && i != index {
			out = append(out, i)
		}
	}
	return out
}
