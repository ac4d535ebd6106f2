// Package formats holds the prefab data of renderer assets: meshes, textures and materials.
package formats

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/assets/loaders"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/shape"
)

var ErrMeshNotLoaded = errors.New("mesh is not loaded")
var ErrNoMeshSource = errors.New("mesh has neither a file nor a handle")

type MeshHandle = assets.Handle[*metadata.Mesh]

type MeshStorage = assets.Storage[*metadata.Mesh, *metadata.MeshData]

/**
 * @brief Everything mesh prefab data needs while loading.
 */
type MeshSystemData struct {
	Loader     *assets.Loader
	Storage    *MeshStorage
	Components *ecs.Storage[MeshHandle]
}

/**
 * @brief Where the mesh of an entity comes from. The only implementations are
 * the ones returned by FromAsset and FromShape.
 */
type MeshPrefab interface {
	LoadSubAssets(progress *assets.ProgressCounter, data MeshSystemData) (bool, error)
	AddToEntity(entity ecs.Entity, data MeshSystemData, entities []ecs.Entity, children []ecs.Entity) error
	// Handle is valid once LoadSubAssets ran.
	Handle() MeshHandle
	meshPrefab()
}

// FromAsset loads the mesh from a file, shared with every other user of the same path.
func FromAsset(p *AssetPrefab) MeshPrefab {
	return p
}

// FromShape generates a new mesh from a shape.
func FromShape(p *ShapePrefab) MeshPrefab {
	return p
}

/**
 * @brief A mesh stored in a file, or one already loaded.
 */
type AssetPrefab struct {
	File string
	// Format defaults to OBJ.
	Format assets.Format[*metadata.MeshData]
	handle MeshHandle
}

// NewAssetPrefabFromHandle wraps an already requested mesh.
func NewAssetPrefabFromHandle(h MeshHandle) *AssetPrefab {
	return &AssetPrefab{handle: h}
}

func (p *AssetPrefab) LoadSubAssets(progress *assets.ProgressCounter, data MeshSystemData) (bool, error) {
	if p.handle.IsValid() {
		return false, nil
	}
	if p.File == "" {
		return false, ErrNoMeshSource
	}
	format := p.Format
	if format == nil {
		format = loaders.ObjFormat{}
	}
	p.handle = assets.Load(data.Loader, p.File, format, progress, data.Storage)
	return true, nil
}

func (p *AssetPrefab) AddToEntity(entity ecs.Entity, data MeshSystemData, _ []ecs.Entity, _ []ecs.Entity) error {
	if !p.handle.IsValid() {
		return fmt.Errorf("mesh '%s': %w", p.File, ErrMeshNotLoaded)
	}
	return data.Components.Insert(entity, p.handle)
}

func (p *AssetPrefab) Handle() MeshHandle {
	return p.handle
}

func (p *AssetPrefab) meshPrefab() {}

/**
 * @brief A procedural mesh. Every prefab generates its own copy.
 */
type ShapePrefab struct {
	Shape  shape.Shape
	Layout metadata.VertexLayout
	handle MeshHandle
}

func (p *ShapePrefab) LoadSubAssets(progress *assets.ProgressCounter, data MeshSystemData) (bool, error) {
	if p.handle.IsValid() {
		return false, nil
	}
	if p.Shape == nil {
		return false, ErrNoMeshSource
	}
	layout := p.Layout
	if layout == 0 {
		layout = metadata.VertexLayoutPosNormTangTex
	}
	p.handle = assets.LoadFromData(data.Loader, p.Shape.Generate(layout), progress, data.Storage)
	return true, nil
}

func (p *ShapePrefab) AddToEntity(entity ecs.Entity, data MeshSystemData, _ []ecs.Entity, _ []ecs.Entity) error {
	if !p.handle.IsValid() {
		return fmt.Errorf("shape: %w", ErrMeshNotLoaded)
	}
	return data.Components.Insert(entity, p.handle)
}

func (p *ShapePrefab) Handle() MeshHandle {
	return p.handle
}

func (p *ShapePrefab) meshPrefab() {}
