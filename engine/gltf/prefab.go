package gltf

import (
	"fmt"

	"github.com/spaghettifunk/anima-prefab/engine/animation"
	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/components"
	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/prefab"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/formats"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

type MaterialStatus int

const (
	// The node has no material.
	MaterialNone MaterialStatus = iota
	MaterialResolved
	// The node refers to a material index that was not in the material set
	// when it was loaded.
	MaterialUnresolved
)

func (s MaterialStatus) String() string {
	switch s {
	case MaterialNone:
		return "none"
	case MaterialResolved:
		return "resolved"
	case MaterialUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

/**
 * @brief The data of one scene node. Every field is optional.
 */
type Prefab struct {
	/** @brief Local transform of the node. */
	Transform *components.Transform
	/** @brief Raw geometry. Replaced by MeshHandle once loaded. */
	Mesh       *metadata.MeshData
	MeshHandle formats.MeshHandle
	/** @brief A file or procedural mesh, used when there is no raw geometry. */
	Source     formats.MeshPrefab
	Material   *formats.MaterialPrefab
	Animatable *animation.AnimatablePrefab
	Skinnable  *animation.SkinnablePrefab
	/** @brief Bounds of the node, written as a bounding sphere. */
	Extent *NodeExtent
	Name   *components.Named

	materials  *MaterialBatch
	materialID *int
}

// SetMaterialBatch makes this node the owner of the materials of the scene.
func (p *Prefab) SetMaterialBatch(batch *MaterialBatch) {
	p.materials = batch
}

/**
 * @brief Refers to a material of the batch. The owner of the batch must be
 * loaded before this node in the same pass, otherwise the lookup misses
 * and MaterialStatus reports MaterialUnresolved.
 */
func (p *Prefab) SetMaterialID(id int) {
	p.materialID = &id
}

func (p *Prefab) MaterialStatus() MaterialStatus {
	switch {
	case p.Material != nil:
		return MaterialResolved
	case p.materialID != nil:
		return MaterialUnresolved
	default:
		return MaterialNone
	}
}

// MoveTo translates the node so the centroid of its extent lands on target.
func (p *Prefab) MoveTo(target math.Vec3) {
	if p.Extent == nil || !p.Extent.Valid() {
		return
	}
	p.transform().Translate(target.Sub(p.Extent.Centroid()))
}

// ScaleTo scales the node uniformly so the longest axis of its extent is maxDistance long.
func (p *Prefab) ScaleTo(maxDistance float32) {
	if p.Extent == nil || !p.Extent.Valid() {
		core.LogWarn("cannot scale a node without a valid extent")
		return
	}
	d := p.Extent.Distance()
	longest := max(d.X, d.Y, d.Z)
	if longest <= 0 {
		core.LogWarn("cannot scale a node with an empty extent")
		return
	}
	s := maxDistance / longest
	p.transform().SetScale(math.NewVec3(s, s, s))
}

func (p *Prefab) transform() *components.Transform {
	if p.Transform == nil {
		p.Transform = &components.Transform{Transform: *math.TransformCreate()}
	}
	return p.Transform
}

/**
 * @brief Requests materials, the mesh and animations. The owner of the
 * material batch fills the material set; a failing material fails the node.
 */
func (p *Prefab) LoadSubAssets(progress *assets.ProgressCounter, data SystemData) (bool, error) {
	pending := false

	if p.materials != nil {
		batch := p.materials
		p.materials = nil
		ret, err := data.MaterialSet.Populate(batch, func(id int, m *formats.MaterialPrefab) (bool, error) {
			ret, err := m.LoadSubAssets(progress, data.Materials)
			if err != nil {
				return false, fmt.Errorf("material %d: %w", id, err)
			}
			return ret, nil
		})
		if err != nil {
			return false, err
		}
		pending = pending || ret
	}

	if p.materialID != nil {
		if m, ok := data.MaterialSet.Get(*p.materialID); ok {
			clone, err := m.CloneLoaded()
			if err != nil {
				return false, err
			}
			p.Material = clone
			p.materialID = nil
		} else {
			core.LogWarn("material %d is not in the material set yet, node '%s' stays without material", *p.materialID, p.name())
		}
	} else if p.Material != nil && !p.Material.IsLoaded() {
		ret, err := p.Material.LoadSubAssets(progress, data.Materials)
		if err != nil {
			return false, err
		}
		pending = pending || ret
	}

	if p.Mesh != nil {
		p.MeshHandle = assets.LoadFromData(data.Loader, p.Mesh, progress, data.Meshes.Storage)
		p.Mesh = nil
		pending = true
	} else if p.Source != nil && !p.MeshHandle.IsValid() {
		ret, err := p.Source.LoadSubAssets(progress, data.Meshes)
		if err != nil {
			return false, err
		}
		p.MeshHandle = p.Source.Handle()
		pending = pending || ret
	}

	if p.Animatable != nil {
		ret, err := p.Animatable.LoadSubAssets(progress, data.Animations)
		if err != nil {
			return false, fmt.Errorf("animations: %w", err)
		}
		pending = pending || ret
	}
	return pending, nil
}

/**
 * @brief Writes the components of the node. Stops at the first failing write;
 * components written before it stay.
 */
func (p *Prefab) AddToEntity(entity ecs.Entity, data SystemData, entities []ecs.Entity, children []ecs.Entity) error {
	if p.Transform != nil {
		if err := p.Transform.AddToEntity(entity, data.Transforms, entities, children); err != nil {
			return fmt.Errorf("transform: %w", err)
		}
	}
	// Raw geometry wins over Source in LoadSubAssets, so only forward when Source owns the handle.
	if p.Source != nil && p.MeshHandle == p.Source.Handle() {
		if err := p.Source.AddToEntity(entity, data.Meshes, entities, children); err != nil {
			return fmt.Errorf("mesh: %w", err)
		}
	} else if p.MeshHandle.IsValid() {
		if err := data.Meshes.Components.Insert(entity, p.MeshHandle); err != nil {
			return fmt.Errorf("mesh: %w", err)
		}
	}
	if p.Name != nil {
		if err := p.Name.AddToEntity(entity, data.Names, entities, children); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	if p.Material != nil {
		if err := p.Material.AddToEntity(entity, data.Materials, entities, children); err != nil {
			return fmt.Errorf("material: %w", err)
		}
	}
	if p.Animatable != nil {
		if err := p.Animatable.AddToEntity(entity, data.Animations, entities, children); err != nil {
			return fmt.Errorf("animations: %w", err)
		}
	}
	if p.Skinnable != nil {
		if err := p.Skinnable.AddToEntity(entity, data.Skins, entities, children); err != nil {
			return fmt.Errorf("skin: %w", err)
		}
	}
	if p.Extent != nil && p.Extent.Valid() {
		if err := data.Bounds.Insert(entity, p.Extent.BoundingSphere()); err != nil {
			return fmt.Errorf("bounds: %w", err)
		}
	}
	return nil
}

func (p *Prefab) name() string {
	if p.Name == nil {
		return ""
	}
	return p.Name.Name
}

/**
 * @brief Grows the extent of the main entry to cover every node of the scene.
 * Nodes without extent are skipped.
 */
func AggregateExtent(scene *prefab.Prefab[*Prefab]) NodeExtent {
	total := NewNodeExtent()
	for i := 0; i < scene.Len(); i++ {
		node := scene.Entry(i).Data
		if node != nil && node.Extent != nil && node.Extent.Valid() {
			total.Extend(*node.Extent)
		}
	}
	if root := scene.Main(); root.Data != nil && total.Valid() {
		root.Data.Extent = &total
	}
	return total
}
