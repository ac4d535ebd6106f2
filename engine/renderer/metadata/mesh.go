package metadata

import (
	"encoding/binary"
	gomath "math"
	"strings"

	"github.com/spaghettifunk/anima-prefab/engine/math"
)

/** @brief The name of the default mesh. */
const DefaultMeshName string = "default"

/**
 * @brief Bitmask of the attributes a vertex buffer holds, in this order.
 */
type VertexLayout uint8

const (
	VertexAttributePosition VertexLayout = 1 << iota
	VertexAttributeNormal
	VertexAttributeTexcoord
	VertexAttributeColour
	VertexAttributeTangent
)

const (
	VertexLayoutPosTex         = VertexAttributePosition | VertexAttributeTexcoord
	VertexLayoutPosNormTex     = VertexAttributePosition | VertexAttributeNormal | VertexAttributeTexcoord
	VertexLayoutPosNormTangTex = VertexLayoutPosNormTex | VertexAttributeTangent
	// Every attribute, used when the consumer is not known yet.
	VertexLayoutCombo = VertexLayoutPosNormTangTex | VertexAttributeColour
)

func (l VertexLayout) Has(attr VertexLayout) bool {
	return l&attr == attr
}

// Stride is the size in bytes of one vertex.
func (l VertexLayout) Stride() uint32 {
	var stride uint32
	if l.Has(VertexAttributePosition) {
		stride += 12
	}
	if l.Has(VertexAttributeNormal) {
		stride += 12
	}
	if l.Has(VertexAttributeTexcoord) {
		stride += 8
	}
	if l.Has(VertexAttributeColour) {
		stride += 16
	}
	if l.Has(VertexAttributeTangent) {
		stride += 12
	}
	return stride
}

func (l VertexLayout) String() string {
	names := []string{}
	for _, a := range []struct {
		attr VertexLayout
		name string
	}{
		{VertexAttributePosition, "position"},
		{VertexAttributeNormal, "normal"},
		{VertexAttributeTexcoord, "texcoord"},
		{VertexAttributeColour, "colour"},
		{VertexAttributeTangent, "tangent"},
	} {
		if l.Has(a.attr) {
			names = append(names, a.name)
		}
	}
	return strings.Join(names, "|")
}

/**
 * @brief CPU side geometry waiting to be uploaded.
 */
type MeshData struct {
	/** @brief The name of the mesh, used in log output. */
	Name string
	/** @brief The layout the vertices are interleaved into on upload. */
	Layout VertexLayout
	/** @brief An array of Vertices. */
	Vertices []math.Vertex3D
	/** @brief An array of Indices. Empty means non-indexed geometry. */
	Indices []uint32
}

/**
 * @brief Mesh after upload, as seen by the rest of the engine.
 */
type Mesh struct {
	/** @brief The internal mesh identifier, used by the renderer backend to map to internal resources. */
	InternalID uint32
	/** @brief Incremented every time the mesh is uploaded again. */
	Generation uint32
	Name       string
	Layout     VertexLayout
	/** @brief The number of vertices. */
	VertexCount uint32
	/** @brief The number of indices. */
	IndexCount uint32
	/** @brief The center of the mesh in local coordinates. */
	Center math.Vec3
	/** @brief The extents of the mesh in local coordinates. */
	Extents math.Extents3D
}

/**
 * @brief Interleaves vertices into a little endian float32 buffer.
 */
type MeshBuilder struct {
	layout   VertexLayout
	vertices []byte
	indices  []uint32
	count    uint32
	extents  math.Extents3D
}

func NewMeshBuilder(layout VertexLayout) *MeshBuilder {
	return &MeshBuilder{
		layout: layout,
		extents: math.Extents3D{
			Min: math.NewVec3(math.K_FLOAT_MAX, math.K_FLOAT_MAX, math.K_FLOAT_MAX),
			Max: math.NewVec3(-math.K_FLOAT_MAX, -math.K_FLOAT_MAX, -math.K_FLOAT_MAX),
		},
	}
}

func (b *MeshBuilder) AddVertices(vertices ...math.Vertex3D) *MeshBuilder {
	stride := int(b.layout.Stride())
	for _, v := range vertices {
		buf := make([]byte, 0, stride)
		if b.layout.Has(VertexAttributePosition) {
			buf = putFloats(buf, v.Position.X, v.Position.Y, v.Position.Z)
		}
		if b.layout.Has(VertexAttributeNormal) {
			buf = putFloats(buf, v.Normal.X, v.Normal.Y, v.Normal.Z)
		}
		if b.layout.Has(VertexAttributeTexcoord) {
			buf = putFloats(buf, v.Texcoord.X, v.Texcoord.Y)
		}
		if b.layout.Has(VertexAttributeColour) {
			buf = putFloats(buf, v.Colour.X, v.Colour.Y, v.Colour.Z, v.Colour.W)
		}
		if b.layout.Has(VertexAttributeTangent) {
			buf = putFloats(buf, v.Tangent.X, v.Tangent.Y, v.Tangent.Z)
		}
		b.vertices = append(b.vertices, buf...)
		b.count++

		b.extents.Min = math.NewVec3(min(b.extents.Min.X, v.Position.X), min(b.extents.Min.Y, v.Position.Y), min(b.extents.Min.Z, v.Position.Z))
		b.extents.Max = math.NewVec3(max(b.extents.Max.X, v.Position.X), max(b.extents.Max.Y, v.Position.Y), max(b.extents.Max.Z, v.Position.Z))
	}
	return b
}

func (b *MeshBuilder) SetIndices(indices []uint32) *MeshBuilder {
	b.indices = append(b.indices[:0], indices...)
	return b
}

/**
 * @brief Finishes the mesh.
 * @return The mesh description, the vertex buffer and the index buffer.
 */
func (b *MeshBuilder) Build(name string) (*Mesh, []byte, []uint32) {
	if name == "" {
		name = DefaultMeshName
	}
	mesh := &Mesh{
		Name:        name,
		Layout:      b.layout,
		VertexCount: b.count,
		IndexCount:  uint32(len(b.indices)),
	}
	if b.count > 0 {
		mesh.Extents = b.extents
		mesh.Center = b.extents.Min.Add(b.extents.Max).MulScalar(0.5)
	}
	return mesh, b.vertices, b.indices
}

func putFloats(buf []byte, values ...float32) []byte {
	for _, f := range values {
		buf = binary.LittleEndian.AppendUint32(buf, gomath.Float32bits(f))
	}
	return buf
}
