// Package gltf turns decoded scene graphs into prefabs: one Prefab per scene
// node, loaded in two phases by a prefab.LoaderSystem.
package gltf

import (
	"github.com/spaghettifunk/anima-prefab/engine/components"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

/**
 * @brief Axis aligned box around the geometry of a node and its children.
 * The zero value holds no points. Build extents with NodeExtentFromRange or
 * ExtendRange; a literal with only Start and End set is not Valid.
 */
type NodeExtent struct {
	Start math.Vec3
	End   math.Vec3
	set   bool
}

// NewNodeExtent returns an extent that holds no points yet and is not Valid.
func NewNodeExtent() NodeExtent {
	return NodeExtent{}
}

func NodeExtentFromRange(start, end math.Vec3) NodeExtent {
	return NodeExtent{Start: start, End: end, set: true}
}

// NodeExtentFromMesh bounds the vertices of a mesh. An empty mesh gives the empty extent.
func NodeExtentFromMesh(mesh *metadata.MeshData) NodeExtent {
	e := NewNodeExtent()
	if mesh == nil || len(mesh.Vertices) == 0 {
		return e
	}
	ext := math.GeometryComputeExtents(mesh.Vertices)
	e.ExtendRange(ext.Min, ext.Max)
	return e
}

// ExtendRange grows the extent to include the box start..end. The first range
// given to an empty extent replaces it.
func (e *NodeExtent) ExtendRange(start, end math.Vec3) {
	if !e.set {
		e.Start, e.End, e.set = start, end, true
		return
	}
	for i := 0; i < 3; i++ {
		if start.At(i) < e.Start.At(i) {
			e.Start.Set(i, start.At(i))
		}
		if end.At(i) > e.End.At(i) {
			e.End.Set(i, end.At(i))
		}
	}
}

// Extend grows the extent to include other. Empty extents add nothing.
func (e *NodeExtent) Extend(other NodeExtent) {
	if !other.set {
		return
	}
	e.ExtendRange(other.Start, other.End)
}

func (e NodeExtent) Centroid() math.Vec3 {
	return e.Start.Add(e.End).MulScalar(0.5)
}

// Distance is the size of the extent along each axis.
func (e NodeExtent) Distance() math.Vec3 {
	return e.End.Sub(e.Start)
}

// Valid reports whether the extent holds at least one point. NaN bounds are never valid.
func (e NodeExtent) Valid() bool {
	if !e.set {
		return false
	}
	for i := 0; i < 3; i++ {
		if !(e.Start.At(i) <= e.End.At(i)) {
			return false
		}
	}
	return true
}

/**
 * @brief Converts to the sphere through the corners of the box. This covers
 * more space than the box itself and is only meant for coarse culling.
 */
func (e NodeExtent) BoundingSphere() components.BoundingSphere {
	return components.BoundingSphere{
		Center: e.Centroid(),
		Radius: e.Distance().Length() * 0.5,
	}
}
