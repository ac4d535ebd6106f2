package animation

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"golang.org/x/exp/slices"
)

var ErrNodeOutOfRange = errors.New("node index is outside of the prefab")
var ErrNoSamplers = errors.New("animation has no samplers")

type AnimationSystemData struct {
	Loader      *assets.Loader
	Samplers    *SamplerStorage
	Animations  *AnimationStorage
	Sets        *ecs.Storage[AnimationSet]
	Hierarchies *ecs.Storage[AnimationHierarchy]
}

// NodeSampler binds a sampler to the node it animates.
type NodeSampler struct {
	Node    int
	Channel Channel
	Sampler SamplerHandle
}

/**
 * @brief A registered animation. Nodes are indices into the hierarchy of the
 * entity playing it.
 */
type Animation struct {
	Name     string
	Samplers []NodeSampler
	Duration float32
}

type AnimationHandle = assets.Handle[*Animation]

type AnimationStorage = assets.Storage[*Animation, *Animation]

type NodeSamplerPrefab struct {
	Node    int
	Sampler *SamplerPrefab
}

/**
 * @brief An animation whose samplers are sub-assets.
 */
type AnimationPrefab struct {
	Name     string
	Samplers []NodeSamplerPrefab
	handle   AnimationHandle
}

func (p *AnimationPrefab) LoadSubAssets(progress *assets.ProgressCounter, data AnimationSystemData) (bool, error) {
	if p.handle.IsValid() {
		return false, nil
	}
	if len(p.Samplers) == 0 {
		return false, fmt.Errorf("animation '%s': %w", p.Name, ErrNoSamplers)
	}

	anim := &Animation{Name: p.Name, Samplers: make([]NodeSampler, 0, len(p.Samplers))}
	for i, ns := range p.Samplers {
		if ns.Sampler == nil {
			return false, fmt.Errorf("animation '%s' sampler %d: %w", p.Name, i, ErrEmptySampler)
		}
		if _, err := ns.Sampler.LoadSubAssets(progress, data); err != nil {
			return false, fmt.Errorf("animation '%s' sampler %d: %w", p.Name, i, err)
		}
		channel, duration := ns.Sampler.Sampler.Channel, ns.Sampler.Sampler.Duration()
		anim.Samplers = append(anim.Samplers, NodeSampler{Node: ns.Node, Channel: channel, Sampler: ns.Sampler.Handle()})
		if duration > anim.Duration {
			anim.Duration = duration
		}
	}
	p.handle = assets.LoadFromData(data.Loader, anim, progress, data.Animations)
	return true, nil
}

func (p *AnimationPrefab) Handle() AnimationHandle {
	return p.handle
}

/**
 * @brief The animations an entity can play, by id.
 */
type AnimationSet struct {
	Animations map[int]AnimationHandle
}

type AnimationSetPrefab struct {
	Animations map[int]*AnimationPrefab
}

func (p *AnimationSetPrefab) ids() []int {
	ids := make([]int, 0, len(p.Animations))
	for id := range p.Animations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LoadSubAssets loads the animations in id order so progress is reported deterministically.
func (p *AnimationSetPrefab) LoadSubAssets(progress *assets.ProgressCounter, data AnimationSystemData) (bool, error) {
	pending := false
	for _, id := range p.ids() {
		anim := p.Animations[id]
		if anim == nil {
			continue
		}
		ret, err := anim.LoadSubAssets(progress, data)
		if err != nil {
			return false, fmt.Errorf("animation %d: %w", id, err)
		}
		pending = pending || ret
	}
	return pending, nil
}

func (p *AnimationSetPrefab) AddToEntity(entity ecs.Entity, data AnimationSystemData, _ []ecs.Entity, _ []ecs.Entity) error {
	set := AnimationSet{Animations: make(map[int]AnimationHandle, len(p.Animations))}
	for id, anim := range p.Animations {
		if anim == nil || !anim.handle.IsValid() {
			return fmt.Errorf("animation %d: %w", id, assets.ErrAssetNotLoaded)
		}
		set.Animations[id] = anim.handle
	}
	return data.Sets.Insert(entity, set)
}

/**
 * @brief Maps the node indices used by animations to the entities they animate.
 */
type AnimationHierarchy struct {
	Nodes map[int]ecs.Entity
}

// HierarchyPrefab lists the prefab entries that are animation targets.
type HierarchyPrefab struct {
	Nodes []int
}

func (p *HierarchyPrefab) AddToEntity(entity ecs.Entity, data AnimationSystemData, entities []ecs.Entity, _ []ecs.Entity) error {
	h := AnimationHierarchy{Nodes: make(map[int]ecs.Entity, len(p.Nodes))}
	for _, node := range p.Nodes {
		if node < 0 || node >= len(entities) {
			return fmt.Errorf("hierarchy node %d: %w", node, ErrNodeOutOfRange)
		}
		h.Nodes[node] = entities[node]
	}
	return data.Hierarchies.Insert(entity, h)
}

/**
 * @brief Animation data of an entity: what it can play and which entities it moves.
 */
type AnimatablePrefab struct {
	Animations *AnimationSetPrefab
	Hierarchy  *HierarchyPrefab
}

func (p *AnimatablePrefab) LoadSubAssets(progress *assets.ProgressCounter, data AnimationSystemData) (bool, error) {
	if p.Animations == nil {
		return false, nil
	}
	return p.Animations.LoadSubAssets(progress, data)
}

func (p *AnimatablePrefab) AddToEntity(entity ecs.Entity, data AnimationSystemData, entities []ecs.Entity, children []ecs.Entity) error {
	if p.Animations != nil {
		if err := p.Animations.AddToEntity(entity, data, entities, children); err != nil {
			return err
		}
	}
	if p.Hierarchy != nil {
		return p.Hierarchy.AddToEntity(entity, data, entities, children)
	}
	return nil
}
