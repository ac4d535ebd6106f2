package formats

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

var ErrMaterialNotLoaded = errors.New("material is not loaded")

/**
 * @brief A material, which represents various properties
 * of a surface in the world such as texture, colour,
 * bumpiness, shininess and more.
 */
type Material struct {
	/** @brief The material name. */
	Name string
	/** @brief The shader the material is drawn with. Empty means the renderer default. */
	ShaderName string
	/** @brief The diffuse colour. */
	DiffuseColour math.Vec4
	/** @brief The material shininess, determines how concentrated the specular lighting is. */
	Shininess   float32
	AlphaCutoff float32
	/** @brief Invalid handles mean the renderer default texture. */
	DiffuseMap  TextureHandle
	SpecularMap TextureHandle
	NormalMap   TextureHandle
}

type MaterialHandle = assets.Handle[*Material]

type MaterialStorage = assets.Storage[*Material, *Material]

type MaterialSystemData struct {
	Loader     *assets.Loader
	Textures   *TextureStorage
	Storage    *MaterialStorage
	Components *ecs.Storage[MaterialHandle]
}

func (d MaterialSystemData) textures() TextureSystemData {
	return TextureSystemData{Loader: d.Loader, Storage: d.Textures}
}

/**
 * @brief Describes a material. Its textures are sub-assets.
 */
type MaterialPrefab struct {
	Name          string
	ShaderName    string
	DiffuseColour math.Vec4
	Shininess     float32
	AlphaCutoff   float32
	Diffuse       *TexturePrefab
	Specular      *TexturePrefab
	Normal        *TexturePrefab
	handle        MaterialHandle
}

func NewMaterialPrefab(name string) *MaterialPrefab {
	return &MaterialPrefab{Name: name, DiffuseColour: math.NewVec4One()}
}

// MaterialFromConfig builds a prefab from a material file; map names are texture paths.
func MaterialFromConfig(cfg *metadata.MaterialConfig) *MaterialPrefab {
	m := &MaterialPrefab{
		Name:          cfg.Name,
		ShaderName:    cfg.ShaderName,
		DiffuseColour: cfg.DiffuseColour,
		Shininess:     cfg.Shininess,
		AlphaCutoff:   cfg.AlphaCutoff,
	}
	if cfg.DiffuseMapName != "" {
		m.Diffuse = TextureFromFile(cfg.DiffuseMapName)
	}
	if cfg.SpecularMapName != "" {
		m.Specular = TextureFromFile(cfg.SpecularMapName)
	}
	if cfg.NormalMapName != "" {
		m.Normal = TextureFromFile(cfg.NormalMapName)
	}
	return m
}

/**
 * @brief Requests the textures, then registers the material. A texture that
 * cannot be requested fails the whole material.
 */
func (p *MaterialPrefab) LoadSubAssets(progress *assets.ProgressCounter, data MaterialSystemData) (bool, error) {
	if p.handle.IsValid() {
		return false, nil
	}
	for _, t := range []struct {
		slot    string
		texture *TexturePrefab
	}{{"diffuse", p.Diffuse}, {"specular", p.Specular}, {"normal", p.Normal}} {
		if t.texture == nil {
			continue
		}
		if _, err := t.texture.LoadSubAssets(progress, data.textures()); err != nil {
			return false, fmt.Errorf("material '%s' %s map: %w", p.Name, t.slot, err)
		}
	}

	material := &Material{
		Name:          p.Name,
		ShaderName:    p.ShaderName,
		DiffuseColour: p.DiffuseColour,
		Shininess:     p.Shininess,
		AlphaCutoff:   p.AlphaCutoff,
	}
	if p.Diffuse != nil {
		material.DiffuseMap = p.Diffuse.Handle()
	}
	if p.Specular != nil {
		material.SpecularMap = p.Specular.Handle()
	}
	if p.Normal != nil {
		material.NormalMap = p.Normal.Handle()
	}
	p.handle = assets.LoadFromData(data.Loader, material, progress, data.Storage)
	return true, nil
}

func (p *MaterialPrefab) AddToEntity(entity ecs.Entity, data MaterialSystemData, _ []ecs.Entity, _ []ecs.Entity) error {
	if !p.handle.IsValid() {
		return fmt.Errorf("material '%s': %w", p.Name, ErrMaterialNotLoaded)
	}
	return data.Components.Insert(entity, p.handle)
}

func (p *MaterialPrefab) Handle() MaterialHandle {
	return p.handle
}

func (p *MaterialPrefab) IsLoaded() bool {
	return p.handle.IsValid()
}

/**
 * @brief Copies a material whose sub-assets were already requested. The copy
 * shares every handle and never triggers loading again.
 */
func (p *MaterialPrefab) CloneLoaded() (*MaterialPrefab, error) {
	if !p.handle.IsValid() {
		return nil, fmt.Errorf("clone material '%s': %w", p.Name, ErrMaterialNotLoaded)
	}
	return &MaterialPrefab{
		Name:          p.Name,
		ShaderName:    p.ShaderName,
		DiffuseColour: p.DiffuseColour,
		Shininess:     p.Shininess,
		AlphaCutoff:   p.AlphaCutoff,
		Diffuse:       p.Diffuse.cloneLoaded(),
		Specular:      p.Specular.cloneLoaded(),
		Normal:        p.Normal.cloneLoaded(),
		handle:        p.handle,
	}, nil
}
