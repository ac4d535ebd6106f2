package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

/**
 * @brief Imports Wavefront OBJ geometry. Groups and materials are ignored,
 * the whole file becomes a single mesh.
 */
type ObjFormat struct {
	/** @brief The layout the mesh is uploaded with. Zero means VertexLayoutPosNormTangTex. */
	Layout metadata.VertexLayout
	/** @brief Indicates if the v texture coordinate should be flipped. */
	FlipV bool
}

type faceVertex struct {
	position, texcoord, normal int
}

func (f ObjFormat) Name() string {
	return "OBJ"
}

func (f ObjFormat) Import(data []byte) (*metadata.MeshData, error) {
	var positions, normals []math.Vec3
	var texcoords []math.Vec2
	var polygons [][]faceVertex
	name := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		ident, values := fields[0], fields[1:]

		switch ident {
		case "v", "vn":
			v, err := parseFloats(values, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			vec := math.NewVec3(v[0], v[1], v[2])
			if ident == "v" {
				positions = append(positions, vec)
			} else {
				normals = append(normals, vec)
			}
		case "vt":
			v, err := parseFloats(values, 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			if f.FlipV {
				v[1] = 1.0 - v[1]
			}
			texcoords = append(texcoords, math.NewVec2(v[0], v[1]))
		case "f":
			if len(values) < 3 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices, got %d", lineNumber, len(values))
			}
			poly := make([]faceVertex, 0, len(values))
			for _, s := range values {
				fv, err := parseFaceVertex(s, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNumber, err)
				}
				poly = append(poly, fv)
			}
			polygons = append(polygons, poly)
		case "o":
			if name == "" && len(values) > 0 {
				name = values[0]
			}
		case "g", "s", "usemtl", "mtllib", "l", "p":
		default:
			core.LogDebug("OBJ: '%s' not supported, skipping line %d", ident, lineNumber)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(polygons) == 0 {
		return nil, fmt.Errorf("no faces found")
	}

	// Polygons are triangulated as fans around their first vertex.
	vertices := []math.Vertex3D{}
	for _, poly := range polygons {
		for i := 1; i+1 < len(poly); i++ {
			for _, fv := range [3]faceVertex{poly[0], poly[i], poly[i+1]} {
				v := math.Vertex3D{
					Position: positions[fv.position],
					Colour:   math.NewVec4One(),
				}
				if fv.texcoord >= 0 {
					v.Texcoord = texcoords[fv.texcoord]
				}
				if fv.normal >= 0 {
					v.Normal = normals[fv.normal]
				}
				vertices = append(vertices, v)
			}
		}
	}
	indices := make([]uint32, len(vertices))
	for i := range indices {
		indices[i] = uint32(i)
	}
	if len(normals) == 0 {
		math.GeometryGenerateNormals(vertices, indices)
	}
	vertices, indices = math.GeometryDeduplicateVertices(vertices, indices)

	layout := f.Layout
	if layout == 0 {
		layout = metadata.VertexLayoutPosNormTangTex
	}
	return &metadata.MeshData{
		Name:     name,
		Layout:   layout,
		Vertices: vertices,
		Indices:  indices,
	}, nil
}

func parseFloats(values []string, n int) ([]float32, error) {
	if len(values) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(values))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(values[i], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value '%s'", values[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceVertex parses "p", "p/t", "p//n" or "p/t/n". Missing entries are -1.
func parseFaceVertex(s string, numPositions, numTexcoords, numNormals int) (faceVertex, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return faceVertex{}, fmt.Errorf("invalid face vertex '%s'", s)
	}
	fv := faceVertex{position: -1, texcoord: -1, normal: -1}
	targets := []*int{&fv.position, &fv.texcoord, &fv.normal}
	counts := []int{numPositions, numTexcoords, numNormals}
	for i, p := range parts {
		if p == "" {
			continue
		}
		idx, err := strconv.Atoi(p)
		if err != nil {
			return faceVertex{}, fmt.Errorf("invalid face vertex '%s'", s)
		}
		// OBJ indices start at 1, negative ones count back from the end.
		if idx < 0 {
			idx = counts[i] + idx
		} else {
			idx--
		}
		if idx < 0 || idx >= counts[i] {
			return faceVertex{}, fmt.Errorf("index out of range in face vertex '%s'", s)
		}
		*targets[i] = idx
	}
	if fv.position < 0 {
		return faceVertex{}, fmt.Errorf("face vertex '%s' has no position", s)
	}
	return fv, nil
}
