// Package components holds the basic components a prefab writes to its entities.
package components

import (
	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/math"
)

/**
 * @brief Name of an entity. Also its own prefab data.
 */
type Named struct {
	Name string
}

func NewNamed(name string) *Named {
	return &Named{Name: name}
}

func (n *Named) LoadSubAssets(_ *assets.ProgressCounter, _ *ecs.Storage[Named]) (bool, error) {
	return false, nil
}

func (n *Named) AddToEntity(entity ecs.Entity, names *ecs.Storage[Named], _ []ecs.Entity, _ []ecs.Entity) error {
	return names.Insert(entity, *n)
}

/**
 * @brief Local transform of an entity relative to its Parent.
 */
type Transform struct {
	math.Transform
}

func NewTransform(position math.Vec3, rotation math.Quaternion, scale math.Vec3) *Transform {
	return &Transform{Transform: *math.TransformFromPositionRotationScale(position, rotation, scale)}
}

func (t *Transform) LoadSubAssets(_ *assets.ProgressCounter, _ *ecs.Storage[Transform]) (bool, error) {
	return false, nil
}

func (t *Transform) AddToEntity(entity ecs.Entity, transforms *ecs.Storage[Transform], _ []ecs.Entity, _ []ecs.Entity) error {
	c := *t
	c.Parent = nil
	return transforms.Insert(entity, c)
}

/**
 * @brief Links an entity to the entity it is placed under.
 */
type Parent struct {
	Entity ecs.Entity
}

/**
 * @brief Coarse bounds used for visibility culling.
 */
type BoundingSphere struct {
	Center math.Vec3
	Radius float32
}

// Contains reports whether point lies within the sphere.
func (b BoundingSphere) Contains(point math.Vec3) bool {
	return b.Center.Distance(point) <= b.Radius
}
