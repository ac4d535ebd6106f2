package math

import "github.com/spaghettifunk/anima-prefab/engine/core"

// GeometryGenerateNormals writes flat face normals for every triangle in indices.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

// GeometryGenerateTangents derives per-triangle tangents from positions and texture coordinates.
func GeometryGenerateTangents(vertices []Vertex3D, indices []uint32) []Vertex3D {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaU1 := vertices[i1].Texcoord.X - vertices[i0].Texcoord.X
		deltaV1 := vertices[i1].Texcoord.Y - vertices[i0].Texcoord.Y

		deltaU2 := vertices[i2].Texcoord.X - vertices[i0].Texcoord.X
		deltaV2 := vertices[i2].Texcoord.Y - vertices[i0].Texcoord.Y

		dividend := (deltaU1*deltaV2 - deltaU2*deltaV1)
		if dividend == 0 {
			// Degenerate texture mapping, no usable tangent space.
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			(fc * (deltaV2*edge1.X - deltaV1*edge2.X)),
			(fc * (deltaV2*edge1.Y - deltaV1*edge2.Y)),
			(fc * (deltaV2*edge1.Z - deltaV1*edge2.Z))}

		tangent = tangent.Normalized()

		handedness := float32(1.0)
		if (deltaV1*deltaU2 - deltaV2*deltaU1) < 0.0 {
			handedness = -1.0
		}

		t4 := tangent.MulScalar(handedness)
		vertices[i0].Tangent = t4
		vertices[i1].Tangent = t4
		vertices[i2].Tangent = t4
	}
	return vertices
}

func Vertex3dEqual(vert0 Vertex3D, vert1 Vertex3D) bool {
	return vert0.Position.Compare(vert1.Position, K_FLOAT_EPSILON) &&
		vert0.Normal.Compare(vert1.Normal, K_FLOAT_EPSILON) &&
		vert0.Texcoord.Compare(vert1.Texcoord, K_FLOAT_EPSILON) &&
		vert0.Colour.Compare(vert1.Colour, K_FLOAT_EPSILON) &&
		vert0.Tangent.Compare(vert1.Tangent, K_FLOAT_EPSILON)
}

// GeometryDeduplicateVertices collapses bit-identical vertices and rewrites indices to match.
func GeometryDeduplicateVertices(vertices []Vertex3D, indices []uint32) ([]Vertex3D, []uint32) {
	seen := make(map[Vertex3D]uint32, len(vertices))
	uniqueVerts := make([]Vertex3D, 0, len(vertices))
	remap := make([]uint32, len(vertices))

	for v, vert := range vertices {
		if idx, ok := seen[vert]; ok {
			remap[v] = idx
			continue
		}
		idx := uint32(len(uniqueVerts))
		seen[vert] = idx
		uniqueVerts = append(uniqueVerts, vert)
		remap[v] = idx
	}

	outIndices := make([]uint32, len(indices))
	for i, idx := range indices {
		outIndices[i] = remap[idx]
	}

	core.LogDebug("geometry_deduplicate_vertices: removed %d vertices, orig/now %d/%d.", len(vertices)-len(uniqueVerts), len(vertices), len(uniqueVerts))

	return uniqueVerts, outIndices
}

// GeometryComputeExtents returns the axis-aligned bounds of the given vertices.
func GeometryComputeExtents(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	ext := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			p := v.Position.At(i)
			if p < ext.Min.At(i) {
				ext.Min.Set(i, p)
			}
			if p > ext.Max.At(i) {
				ext.Max.Set(i, p)
			}
		}
	}
	return ext
}
