package renderer

import (
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

/**
 * @brief The renderer frontend. Turns CPU side data into GPU resources
 * through the backend and is used as the processor of the asset storages.
 */
type RendererSystem struct {
	backend RendererBackend
}

func NewRendererSystem(backend RendererBackend) *RendererSystem {
	return &RendererSystem{backend: backend}
}

func (rs *RendererSystem) Backend() RendererBackend {
	return rs.backend
}

// UploadMesh interleaves data for its layout and creates the geometry.
func (rs *RendererSystem) UploadMesh(data *metadata.MeshData) (*metadata.Mesh, error) {
	vertices := data.Vertices
	layout := data.Layout
	if layout == 0 {
		layout = metadata.VertexLayoutCombo
	}
	if layout.Has(metadata.VertexAttributeTangent) && len(data.Indices) > 0 && !hasTangents(vertices) {
		vertices = math.GeometryGenerateTangents(vertices, data.Indices)
	}
	b := metadata.NewMeshBuilder(layout).AddVertices(vertices...).SetIndices(data.Indices)
	mesh, vbuf, ibuf := b.Build(data.Name)
	if err := rs.backend.CreateGeometry(mesh, vbuf, ibuf); err != nil {
		return nil, err
	}
	return mesh, nil
}

func (rs *RendererSystem) UploadTexture(data *metadata.TextureData) (*metadata.Texture, error) {
	t := &metadata.Texture{
		Name:         data.Name,
		Width:        data.Width,
		Height:       data.Height,
		ChannelCount: data.ChannelCount,
		Sampler:      data.Sampler,
	}
	if data.HasTransparency {
		t.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	if err := rs.backend.CreateTexture(t, data.Pixels); err != nil {
		return nil, err
	}
	return t, nil
}

func (rs *RendererSystem) ReleaseMesh(mesh *metadata.Mesh) {
	rs.backend.DestroyGeometry(mesh)
}

func (rs *RendererSystem) ReleaseTexture(texture *metadata.Texture) {
	rs.backend.DestroyTexture(texture)
}

func hasTangents(vertices []math.Vertex3D) bool {
	for _, v := range vertices {
		if v.Tangent.LengthSquared() > 0 {
			return true
		}
	}
	return false
}
