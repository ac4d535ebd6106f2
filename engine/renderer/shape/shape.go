// Package shape generates procedural meshes.
package shape

import (
	"github.com/chewxy/math32"
	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

const maxSegments uint32 = 512

/**
 * @brief A procedural shape descriptor. Every call to Generate produces a
 * new, independent mesh.
 */
type Shape interface {
	Name() string
	Generate(layout metadata.VertexLayout) *metadata.MeshData
}

type Cube struct {
	Width, Height, Depth float32
	TileX, TileY         float32
}

// NewCube creates a cube with the texture applied once per face.
func NewCube(width, height, depth float32) Cube {
	return Cube{Width: width, Height: height, Depth: depth, TileX: 1, TileY: 1}
}

func (c Cube) Name() string { return "cube" }

func (c Cube) Generate(layout metadata.VertexLayout) *metadata.MeshData {
	width := nonZero(c.Width, "width")
	height := nonZero(c.Height, "height")
	depth := nonZero(c.Depth, "depth")
	tileX := nonZero(c.TileX, "tileX")
	tileY := nonZero(c.TileY, "tileY")

	minX, maxX := -width*0.5, width*0.5
	minY, maxY := -height*0.5, height*0.5
	minZ, maxZ := -depth*0.5, depth*0.5

	faces := []struct {
		corners [4]math.Vec3
		normal  math.Vec3
	}{
		// Front
		{[4]math.Vec3{{X: minX, Y: minY, Z: maxZ}, {X: maxX, Y: maxY, Z: maxZ}, {X: minX, Y: maxY, Z: maxZ}, {X: maxX, Y: minY, Z: maxZ}}, math.NewVec3(0, 0, 1)},
		// Back
		{[4]math.Vec3{{X: maxX, Y: minY, Z: minZ}, {X: minX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: minZ}, {X: minX, Y: minY, Z: minZ}}, math.NewVec3(0, 0, -1)},
		// Left
		{[4]math.Vec3{{X: minX, Y: minY, Z: minZ}, {X: minX, Y: maxY, Z: maxZ}, {X: minX, Y: maxY, Z: minZ}, {X: minX, Y: minY, Z: maxZ}}, math.NewVec3(-1, 0, 0)},
		// Right
		{[4]math.Vec3{{X: maxX, Y: minY, Z: maxZ}, {X: maxX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}, {X: maxX, Y: minY, Z: minZ}}, math.NewVec3(1, 0, 0)},
		// Bottom
		{[4]math.Vec3{{X: maxX, Y: minY, Z: maxZ}, {X: minX, Y: minY, Z: minZ}, {X: maxX, Y: minY, Z: minZ}, {X: minX, Y: minY, Z: maxZ}}, math.NewVec3(0, -1, 0)},
		// Top
		{[4]math.Vec3{{X: minX, Y: maxY, Z: maxZ}, {X: maxX, Y: maxY, Z: minZ}, {X: minX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}}, math.NewVec3(0, 1, 0)},
	}
	uvs := [4]math.Vec2{{X: 0, Y: 0}, {X: tileX, Y: tileY}, {X: 0, Y: tileY}, {X: tileX, Y: 0}}

	vertices := make([]math.Vertex3D, 0, 24)
	indices := make([]uint32, 0, 36)
	for i, f := range faces {
		for j := 0; j < 4; j++ {
			vertices = append(vertices, math.Vertex3D{
				Position: f.corners[j],
				Normal:   f.normal,
				Texcoord: uvs[j],
				Colour:   math.NewVec4One(),
			})
		}
		vOffset := uint32(i * 4)
		indices = append(indices, vOffset+0, vOffset+1, vOffset+2, vOffset+0, vOffset+3, vOffset+1)
	}

	return finish("cube", layout, vertices, indices)
}

type Plane struct {
	Width, Height        float32
	XSegments, YSegments uint32
	TileX, TileY         float32
}

// NewPlane creates a single segment plane in the XY plane facing +Z.
func NewPlane(width, height float32) Plane {
	return Plane{Width: width, Height: height, XSegments: 1, YSegments: 1, TileX: 1, TileY: 1}
}

func (p Plane) Name() string { return "plane" }

func (p Plane) Generate(layout metadata.VertexLayout) *metadata.MeshData {
	width := nonZero(p.Width, "width")
	height := nonZero(p.Height, "height")
	tileX := nonZero(p.TileX, "tileX")
	tileY := nonZero(p.TileY, "tileY")
	xSegments := math.Clamp(p.XSegments, 1, maxSegments)
	ySegments := math.Clamp(p.YSegments, 1, maxSegments)

	vertices := make([]math.Vertex3D, xSegments*ySegments*4)
	indices := make([]uint32, xSegments*ySegments*6)

	// Every segment gets its own four vertices; GeometryDeduplicateVertices can merge them.
	segWidth := width / float32(xSegments)
	segHeight := height / float32(ySegments)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	normal := math.NewVec3(0, 0, 1)
	for y := uint32(0); y < ySegments; y++ {
		for x := uint32(0); x < xSegments; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minY := (float32(y) * segHeight) - halfHeight
			maxX := minX + segWidth
			maxY := minY + segHeight
			minUVX := (float32(x) / float32(xSegments)) * tileX
			minUVY := (float32(y) / float32(ySegments)) * tileY
			maxUVX := (float32(x+1) / float32(xSegments)) * tileX
			maxUVY := (float32(y+1) / float32(ySegments)) * tileY

			vOffset := ((y * xSegments) + x) * 4
			vertices[vOffset+0] = math.Vertex3D{Position: math.NewVec3(minX, minY, 0), Texcoord: math.NewVec2(minUVX, minUVY)}
			vertices[vOffset+1] = math.Vertex3D{Position: math.NewVec3(maxX, maxY, 0), Texcoord: math.NewVec2(maxUVX, maxUVY)}
			vertices[vOffset+2] = math.Vertex3D{Position: math.NewVec3(minX, maxY, 0), Texcoord: math.NewVec2(minUVX, maxUVY)}
			vertices[vOffset+3] = math.Vertex3D{Position: math.NewVec3(maxX, minY, 0), Texcoord: math.NewVec2(maxUVX, minUVY)}
			for i := uint32(0); i < 4; i++ {
				vertices[vOffset+i].Normal = normal
				vertices[vOffset+i].Colour = math.NewVec4One()
			}

			iOffset := ((y * xSegments) + x) * 6
			indices[iOffset+0] = vOffset + 0
			indices[iOffset+1] = vOffset + 1
			indices[iOffset+2] = vOffset + 2
			indices[iOffset+3] = vOffset + 0
			indices[iOffset+4] = vOffset + 3
			indices[iOffset+5] = vOffset + 1
		}
	}

	return finish("plane", layout, vertices, indices)
}

type Sphere struct {
	Radius  float32
	Rings   uint32
	Sectors uint32
}

func NewSphere(radius float32) Sphere {
	return Sphere{Radius: radius, Rings: 16, Sectors: 32}
}

func (s Sphere) Name() string { return "sphere" }

// Generate builds a UV sphere. Seam vertices are duplicated so texcoords wrap cleanly.
func (s Sphere) Generate(layout metadata.VertexLayout) *metadata.MeshData {
	radius := nonZero(s.Radius, "radius")
	rings := math.Clamp(s.Rings, 2, maxSegments)
	sectors := math.Clamp(s.Sectors, 3, maxSegments)

	vertices := make([]math.Vertex3D, 0, (rings+1)*(sectors+1))
	for r := uint32(0); r <= rings; r++ {
		v := float32(r) / float32(rings)
		phi := v * math.K_PI
		for sc := uint32(0); sc <= sectors; sc++ {
			u := float32(sc) / float32(sectors)
			theta := u * math.K_PI_2
			normal := math.NewVec3(
				math32.Cos(theta)*math32.Sin(phi),
				math32.Cos(phi),
				math32.Sin(theta)*math32.Sin(phi),
			)
			vertices = append(vertices, math.Vertex3D{
				Position: normal.MulScalar(radius),
				Normal:   normal,
				Texcoord: math.NewVec2(u, v),
				Colour:   math.NewVec4One(),
			})
		}
	}

	indices := make([]uint32, 0, rings*sectors*6)
	stride := sectors + 1
	for r := uint32(0); r < rings; r++ {
		for sc := uint32(0); sc < sectors; sc++ {
			a := r*stride + sc
			b := a + stride
			indices = append(indices, a, a+1, b, a+1, b+1, b)
		}
	}

	return finish("sphere", layout, vertices, indices)
}

func finish(name string, layout metadata.VertexLayout, vertices []math.Vertex3D, indices []uint32) *metadata.MeshData {
	if layout.Has(metadata.VertexAttributeTangent) {
		vertices = math.GeometryGenerateTangents(vertices, indices)
	}
	return &metadata.MeshData{
		Name:     name,
		Layout:   layout,
		Vertices: vertices,
		Indices:  indices,
	}
}

func nonZero(value float32, name string) float32 {
	if value == 0 {
		core.LogWarn("%s must be nonzero. Defaulting to one.", name)
		return 1
	}
	return value
}
