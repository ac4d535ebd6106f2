package gltf

import (
	"errors"

	"github.com/spaghettifunk/anima-prefab/engine/renderer/formats"
	"golang.org/x/exp/slices"
)

var ErrMaterialSetSealed = errors.New("material set was already populated in this pass")
var ErrMaterialBatchConsumed = errors.New("material batch was already consumed")

/**
 * @brief The materials of a scene file, handed to the node that owns them.
 * It can be consumed once.
 */
type MaterialBatch struct {
	materials map[int]*formats.MaterialPrefab
	consumed  bool
}

func NewMaterialBatch(materials map[int]*formats.MaterialPrefab) *MaterialBatch {
	return &MaterialBatch{materials: materials}
}

func (b *MaterialBatch) Len() int {
	return len(b.materials)
}

func (b *MaterialBatch) take() (map[int]*formats.MaterialPrefab, error) {
	if b.consumed {
		return nil, ErrMaterialBatchConsumed
	}
	b.consumed = true
	m := b.materials
	b.materials = nil
	return m, nil
}

/**
 * @brief Materials of the current loading pass by index. Written once per pass
 * by the owner of the batch, read by every node referring to a material index.
 */
type MaterialSet struct {
	materials map[int]*formats.MaterialPrefab
	sealed    bool
}

func NewMaterialSet() *MaterialSet {
	return &MaterialSet{materials: make(map[int]*formats.MaterialPrefab)}
}

// BeginPass empties the set and opens it for the next population.
func (s *MaterialSet) BeginPass() {
	s.Clear()
	s.sealed = false
}

// Insert overwrites the material at id.
func (s *MaterialSet) Insert(id int, m *formats.MaterialPrefab) error {
	if s.sealed {
		return ErrMaterialSetSealed
	}
	s.materials[id] = m
	return nil
}

func (s *MaterialSet) Clear() {
	clear(s.materials)
}

func (s *MaterialSet) Get(id int) (*formats.MaterialPrefab, bool) {
	m, ok := s.materials[id]
	return m, ok
}

func (s *MaterialSet) Len() int {
	return len(s.materials)
}

func (s *MaterialSet) Sealed() bool {
	return s.sealed
}

/**
 * @brief Replaces the content of the set with the materials of batch, in index
 * order, running resolve on each one first. The set is sealed afterwards.
 * If resolve fails the set is left empty.
 * @return True when any resolve started asynchronous work.
 */
func (s *MaterialSet) Populate(batch *MaterialBatch, resolve func(id int, m *formats.MaterialPrefab) (bool, error)) (bool, error) {
	if s.sealed {
		return false, ErrMaterialSetSealed
	}
	materials, err := batch.take()
	if err != nil {
		return false, err
	}

	ids := make([]int, 0, len(materials))
	for id := range materials {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	s.Clear()
	pending := false
	for _, id := range ids {
		m := materials[id]
		ret, err := resolve(id, m)
		if err != nil {
			s.Clear()
			return false, err
		}
		pending = pending || ret
		s.materials[id] = m
	}
	s.sealed = true
	return pending, nil
}
