package gltf

import (
	"github.com/spaghettifunk/anima-prefab/engine/animation"
	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/components"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/formats"
)

// AssetStorages are the storages scene nodes load their sub-assets into.
type AssetStorages struct {
	Meshes     *formats.MeshStorage
	Textures   *formats.TextureStorage
	Materials  *formats.MaterialStorage
	Samplers   *animation.SamplerStorage
	Animations *animation.AnimationStorage
}

// Processors lists every storage scene assets are loaded into.
func (s AssetStorages) Processors() []assets.Processor {
	return []assets.Processor{s.Meshes, s.Textures, s.Materials, s.Samplers, s.Animations}
}

/**
 * @brief Everything a scene node touches while loading.
 */
type SystemData struct {
	Transforms  *ecs.Storage[components.Transform]
	Names       *ecs.Storage[components.Named]
	Materials   formats.MaterialSystemData
	Animations  animation.AnimationSystemData
	Skins       animation.SkinSystemData
	Bounds      *ecs.Storage[components.BoundingSphere]
	Meshes      formats.MeshSystemData
	Loader      *assets.Loader
	MaterialSet *MaterialSet
}

func NewSystemData(world *ecs.World, loader *assets.Loader, storages AssetStorages) SystemData {
	return SystemData{
		Transforms: ecs.GetStorage[components.Transform](world),
		Names:      ecs.GetStorage[components.Named](world),
		Materials: formats.MaterialSystemData{
			Loader:     loader,
			Textures:   storages.Textures,
			Storage:    storages.Materials,
			Components: ecs.GetStorage[formats.MaterialHandle](world),
		},
		Animations: animation.AnimationSystemData{
			Loader:      loader,
			Samplers:    storages.Samplers,
			Animations:  storages.Animations,
			Sets:        ecs.GetStorage[animation.AnimationSet](world),
			Hierarchies: ecs.GetStorage[animation.AnimationHierarchy](world),
		},
		Skins: animation.SkinSystemData{
			Skins:  ecs.GetStorage[animation.Skin](world),
			Joints: ecs.GetStorage[animation.Joint](world),
		},
		Bounds: ecs.GetStorage[components.BoundingSphere](world),
		Meshes: formats.MeshSystemData{
			Loader:     loader,
			Storage:    storages.Meshes,
			Components: ecs.GetStorage[formats.MeshHandle](world),
		},
		Loader:      loader,
		MaterialSet: NewMaterialSet(),
	}
}

// BeginPass starts a fresh material pass before a scene is loaded.
func (d SystemData) BeginPass() {
	d.MaterialSet.BeginPass()
}
