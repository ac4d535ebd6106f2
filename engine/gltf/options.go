package gltf

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

var ErrNoScene = errors.New("file has no scene")
var ErrAmbiguousScene = errors.New("file has several scenes and no default, a scene index is required")
var ErrSceneIndexOutOfRange = errors.New("scene index out of range")

/**
 * @brief Options applied while a scene file is turned into prefabs.
 */
type SceneOptions struct {
	/** @brief Texture coordinate given to every vertex of meshes without one. Zero disables it. */
	GenerateTexCoords [2]float32 `toml:"generate_tex_coords"`
	LoadNormals       bool       `toml:"load_normals"`
	LoadColors        bool       `toml:"load_colors"`
	LoadTexcoords     bool       `toml:"load_texcoords"`
	LoadTangents      bool       `toml:"load_tangents"`
	LoadAnimations    bool       `toml:"load_animations"`
	FlipVCoord        bool       `toml:"flip_v_coord"`
	/** @brief The scene to load. Nil picks the default or only scene. */
	SceneIndex *int `toml:"scene_index"`
}

func DefaultSceneOptions() SceneOptions {
	return SceneOptions{
		LoadNormals:    true,
		LoadColors:     true,
		LoadTexcoords:  true,
		LoadTangents:   true,
		LoadAnimations: true,
	}
}

// ParseSceneOptions reads options from toml; missing keys keep their default.
func ParseSceneOptions(data []byte) (SceneOptions, error) {
	opts := DefaultSceneOptions()
	if err := toml.Unmarshal(data, &opts); err != nil {
		return SceneOptions{}, fmt.Errorf("scene options: %w", err)
	}
	return opts, nil
}

func LoadSceneOptions(path string) (SceneOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SceneOptions{}, err
	}
	return ParseSceneOptions(data)
}

/**
 * @brief Picks the scene to load: the requested index, else the default
 * scene of the file, else the only scene.
 * @param defaultScene The default scene of the file, nil if it has none.
 */
func ResolveSceneIndex(opts SceneOptions, sceneCount int, defaultScene *int) (int, error) {
	if sceneCount <= 0 {
		return 0, ErrNoScene
	}
	pick := func(i int) (int, error) {
		if i < 0 || i >= sceneCount {
			return 0, fmt.Errorf("%w: %d of %d", ErrSceneIndexOutOfRange, i, sceneCount)
		}
		return i, nil
	}
	switch {
	case opts.SceneIndex != nil:
		return pick(*opts.SceneIndex)
	case defaultScene != nil:
		return pick(*defaultScene)
	case sceneCount == 1:
		return 0, nil
	default:
		return 0, ErrAmbiguousScene
	}
}

/**
 * @brief Applies the options to a decoded node: strips vertex attributes
 * that are not wanted, flips or generates texture coordinates and drops
 * animations.
 */
func (o SceneOptions) Apply(node *Prefab) {
	if !o.LoadAnimations {
		node.Animatable = nil
	}
	mesh := node.Mesh
	if mesh == nil {
		return
	}
	if mesh.Layout == 0 {
		mesh.Layout = metadata.VertexLayoutCombo
	}

	strip := func(load bool, attr metadata.VertexLayout) {
		if !load {
			mesh.Layout &^= attr
		}
	}
	strip(o.LoadNormals, metadata.VertexAttributeNormal)
	strip(o.LoadColors, metadata.VertexAttributeColour)
	strip(o.LoadTexcoords, metadata.VertexAttributeTexcoord)
	strip(o.LoadTangents, metadata.VertexAttributeTangent)

	if o.FlipVCoord && mesh.Layout.Has(metadata.VertexAttributeTexcoord) {
		for i := range mesh.Vertices {
			mesh.Vertices[i].Texcoord.Y = 1 - mesh.Vertices[i].Texcoord.Y
		}
	}
	if !mesh.Layout.Has(metadata.VertexAttributeTexcoord) && o.GenerateTexCoords != [2]float32{} {
		for i := range mesh.Vertices {
			mesh.Vertices[i].Texcoord.X = o.GenerateTexCoords[0]
			mesh.Vertices[i].Texcoord.Y = o.GenerateTexCoords[1]
		}
		mesh.Layout |= metadata.VertexAttributeTexcoord
	}
}
