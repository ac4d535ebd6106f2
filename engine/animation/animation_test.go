package animation

import (
	"testing"
	"time"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/prefab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ prefab.Data[AnimationSystemData] = (*AnimatablePrefab)(nil)
	_ prefab.Data[SkinSystemData]      = (*SkinnablePrefab)(nil)
)

func identity[T any](v T) (T, error) { return v, nil }

func newSystemData(world *ecs.World) AnimationSystemData {
	return AnimationSystemData{
		Loader:      assets.NewLoader(nil, nil),
		Samplers:    assets.NewStorage("samplers", identity[*Sampler]),
		Animations:  assets.NewStorage("animations", identity[*Animation]),
		Sets:        ecs.GetStorage[AnimationSet](world),
		Hierarchies: ecs.GetStorage[AnimationHierarchy](world),
	}
}

func linear(channel Channel) *Sampler {
	return &Sampler{
		Input:   []float32{0, 1, 2},
		Output:  []math.Vec4{{X: 0}, {X: 10}, {X: 30}},
		Channel: channel,
	}
}

func TestSamplerValidate(t *testing.T) {
	assert.NoError(t, linear(ChannelScale).Validate())
	assert.ErrorIs(t, (&Sampler{}).Validate(), ErrEmptySampler)
	assert.ErrorIs(t, (&Sampler{Input: []float32{0, 0}, Output: make([]math.Vec4, 2)}).Validate(), ErrUnsortedInput)
	assert.ErrorIs(t, (&Sampler{Input: []float32{0, 1}, Output: make([]math.Vec4, 3)}).Validate(), ErrOutputMismatch)

	cubic := &Sampler{Input: []float32{0, 1}, Output: make([]math.Vec4, 6), Interpolation: InterpolationCubicSpline}
	assert.NoError(t, cubic.Validate())
	cubic.Output = cubic.Output[:2]
	assert.ErrorIs(t, cubic.Validate(), ErrOutputMismatch)
}

func TestSamplerSample(t *testing.T) {
	s := linear(ChannelTranslation)
	assert.Equal(t, float32(2), s.Duration())
	assert.InDelta(t, 5, s.Sample(0.5).X, 1e-5)
	assert.InDelta(t, 20, s.Sample(1.5).X, 1e-5)
	assert.InDelta(t, 0, s.Sample(-1).X, 1e-5)
	assert.InDelta(t, 30, s.Sample(5).X, 1e-5)

	s.Interpolation = InterpolationStep
	assert.InDelta(t, 10, s.Sample(1.9).X, 1e-5)

	cubic := &Sampler{
		Input:         []float32{0, 1},
		Output:        []math.Vec4{{}, {X: 0}, {}, {}, {X: 1}, {}},
		Interpolation: InterpolationCubicSpline,
	}
	assert.InDelta(t, 0.5, cubic.Sample(0.5).X, 1e-5)
	assert.InDelta(t, 1, cubic.Sample(1).X, 1e-5)
}

func TestAnimatableLoadsSamplersAndAnimations(t *testing.T) {
	world := ecs.NewWorld(0)
	data := newSystemData(world)
	progress := assets.NewProgressCounter()

	p := &AnimatablePrefab{
		Animations: &AnimationSetPrefab{Animations: map[int]*AnimationPrefab{
			2: {Name: "walk", Samplers: []NodeSamplerPrefab{
				{Node: 1, Sampler: NewSamplerPrefab(linear(ChannelTranslation))},
				{Node: 2, Sampler: NewSamplerPrefab(linear(ChannelRotation))},
			}},
			0: {Name: "idle", Samplers: []NodeSamplerPrefab{
				{Node: 0, Sampler: NewSamplerPrefab(linear(ChannelScale))},
			}},
		}},
		Hierarchy: &HierarchyPrefab{Nodes: []int{0, 1, 2}},
	}

	pending, err := p.LoadSubAssets(progress, data)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, 5, progress.NumAssets())

	require.Eventually(t, func() bool {
		data.Samplers.Process()
		data.Animations.Process()
		return progress.IsComplete()
	}, time.Second, time.Millisecond)
	require.NoError(t, progress.Err())

	pending, err = p.LoadSubAssets(progress, data)
	require.NoError(t, err)
	assert.False(t, pending)

	walk, ok := data.Animations.Get(p.Animations.Animations[2].Handle())
	require.True(t, ok)
	assert.Equal(t, "walk", walk.Name)
	assert.Equal(t, float32(2), walk.Duration)
	require.Len(t, walk.Samplers, 2)
	assert.Equal(t, ChannelRotation, walk.Samplers[1].Channel)

	entities := make([]ecs.Entity, 3)
	for i := range entities {
		entities[i], err = world.Create()
		require.NoError(t, err)
	}
	require.NoError(t, p.AddToEntity(entities[0], data, entities, entities[1:]))

	set, ok := data.Sets.Get(entities[0])
	require.True(t, ok)
	assert.Len(t, set.Animations, 2)
	h, ok := data.Hierarchies.Get(entities[0])
	require.True(t, ok)
	assert.Equal(t, entities[2], h.Nodes[2])
}

func TestAnimationErrors(t *testing.T) {
	world := ecs.NewWorld(0)
	data := newSystemData(world)
	progress := assets.NewProgressCounter()

	_, err := (&AnimationPrefab{Name: "empty"}).LoadSubAssets(progress, data)
	assert.ErrorIs(t, err, ErrNoSamplers)

	bad := &AnimationSetPrefab{Animations: map[int]*AnimationPrefab{
		1: {Name: "broken", Samplers: []NodeSamplerPrefab{{Sampler: NewSamplerPrefab(&Sampler{})}}},
	}}
	_, err = bad.LoadSubAssets(progress, data)
	assert.ErrorIs(t, err, ErrEmptySampler)

	e, err := world.Create()
	require.NoError(t, err)
	assert.ErrorIs(t, bad.AddToEntity(e, data, nil, nil), assets.ErrAssetNotLoaded)
	assert.ErrorIs(t, (&HierarchyPrefab{Nodes: []int{3}}).AddToEntity(e, data, []ecs.Entity{e}, nil), ErrNodeOutOfRange)
	assert.Equal(t, 0, data.Hierarchies.Len())
}

func TestSkinnable(t *testing.T) {
	world := ecs.NewWorld(0)
	data := SkinSystemData{Skins: ecs.GetStorage[Skin](world), Joints: ecs.GetStorage[Joint](world)}
	entities := make([]ecs.Entity, 3)
	for i := range entities {
		var err error
		entities[i], err = world.Create()
		require.NoError(t, err)
	}

	skin := &SkinnablePrefab{Skin: &SkinPrefab{Joints: []int{1, 2}, Meshes: []int{0}}}
	pending, err := skin.LoadSubAssets(nil, data)
	require.NoError(t, err)
	assert.False(t, pending)
	require.NoError(t, skin.AddToEntity(entities[0], data, entities, nil))

	s, ok := data.Skins.Get(entities[0])
	require.True(t, ok)
	assert.Equal(t, []ecs.Entity{entities[1], entities[2]}, s.Joints)
	assert.Equal(t, []ecs.Entity{entities[0]}, s.Meshes)
	require.Len(t, s.InverseBindMatrices, 2)
	assert.Equal(t, math.NewMat4Identity(), s.InverseBindMatrices[0])

	joint := &SkinnablePrefab{Joint: &JointPrefab{Skins: []int{0}}}
	require.NoError(t, joint.AddToEntity(entities[1], data, entities, nil))
	j, ok := data.Joints.Get(entities[1])
	require.True(t, ok)
	assert.Equal(t, []ecs.Entity{entities[0]}, j.Skins)

	bad := &SkinnablePrefab{Joint: &JointPrefab{Skins: []int{7}}}
	assert.ErrorIs(t, bad.AddToEntity(entities[2], data, entities, nil), ErrNodeOutOfRange)
}
