package animation

import (
	"fmt"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/math"
)

type SkinSystemData struct {
	Skins  *ecs.Storage[Skin]
	Joints *ecs.Storage[Joint]
}

/**
 * @brief A skeleton and the meshes deformed by it.
 */
type Skin struct {
	Joints []ecs.Entity
	Meshes []ecs.Entity
	/** @brief One per joint. */
	InverseBindMatrices []math.Mat4
}

/** @brief Marks an entity as a joint of the listed skins. */
type Joint struct {
	Skins []ecs.Entity
}

// SkinPrefab refers to joints and meshes by prefab entry index.
type SkinPrefab struct {
	Joints              []int
	Meshes              []int
	InverseBindMatrices []math.Mat4
}

type JointPrefab struct {
	Skins []int
}

type SkinnablePrefab struct {
	Skin  *SkinPrefab
	Joint *JointPrefab
}

// LoadSubAssets has nothing to load; skins only reference other entities.
func (p *SkinnablePrefab) LoadSubAssets(_ *assets.ProgressCounter, _ SkinSystemData) (bool, error) {
	return false, nil
}

func (p *SkinnablePrefab) AddToEntity(entity ecs.Entity, data SkinSystemData, entities []ecs.Entity, _ []ecs.Entity) error {
	if p.Skin != nil {
		joints, err := resolve(p.Skin.Joints, entities)
		if err != nil {
			return fmt.Errorf("skin joints: %w", err)
		}
		meshes, err := resolve(p.Skin.Meshes, entities)
		if err != nil {
			return fmt.Errorf("skin meshes: %w", err)
		}
		ibm := p.Skin.InverseBindMatrices
		if len(ibm) == 0 {
			ibm = make([]math.Mat4, len(joints))
			for i := range ibm {
				ibm[i] = math.NewMat4Identity()
			}
		}
		skin := Skin{Joints: joints, Meshes: meshes, InverseBindMatrices: ibm}
		if err := data.Skins.Insert(entity, skin); err != nil {
			return err
		}
	}
	if p.Joint != nil {
		skins, err := resolve(p.Joint.Skins, entities)
		if err != nil {
			return fmt.Errorf("joint skins: %w", err)
		}
		return data.Joints.Insert(entity, Joint{Skins: skins})
	}
	return nil
}

func resolve(nodes []int, entities []ecs.Entity) ([]ecs.Entity, error) {
	out := make([]ecs.Entity, 0, len(nodes))
	for _, n := range nodes {
		if n < 0 || n >= len(entities) {
			return nil, fmt.Errorf("node %d: %w", n, ErrNodeOutOfRange)
		}
		out = append(out, entities[n])
	}
	return out, nil
}
