package gltf

import (
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/spaghettifunk/anima-prefab/engine/animation"
	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/components"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/prefab"
	"github.com/spaghettifunk/anima-prefab/engine/renderer"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/formats"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/shape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ prefab.Data[SystemData] = (*Prefab)(nil)

func identity[T any](v T) (T, error) { return v, nil }

func newStorages() AssetStorages {
	rs := renderer.NewRendererSystem(renderer.NewHeadlessBackend())
	return AssetStorages{
		Meshes:     assets.NewStorage("meshes", rs.UploadMesh),
		Textures:   assets.NewStorage("textures", rs.UploadTexture),
		Materials:  assets.NewStorage("materials", identity[*formats.Material]),
		Samplers:   assets.NewStorage("samplers", identity[*animation.Sampler]),
		Animations: assets.NewStorage("animations", identity[*animation.Animation]),
	}
}

type scene struct {
	world    *ecs.World
	storages AssetStorages
	data     SystemData
	loader   *prefab.LoaderSystem[*Prefab, SystemData]
}

func newScene() *scene {
	world := ecs.NewWorld(0)
	storages := newStorages()
	data := NewSystemData(world, assets.NewLoader(nil, nil), storages)
	return &scene{
		world:    world,
		storages: storages,
		data:     data,
		loader:   prefab.NewLoaderSystem[*Prefab, SystemData](world, data),
	}
}

func (s *scene) process() {
	for _, p := range s.storages.Processors() {
		p.Process()
	}
}

func (s *scene) load(t *testing.T, p *prefab.Prefab[*Prefab]) *prefab.Request[*Prefab] {
	t.Helper()
	req := s.loader.Load(p)
	require.Eventually(t, func() bool {
		s.process()
		s.loader.Update()
		return req.State() != prefab.RequestStateLoading
	}, 2*time.Second, time.Millisecond)
	return req
}

func cubeMesh() *metadata.MeshData {
	return shape.NewCube(2, 2, 2).Generate(metadata.VertexLayoutPosNormTex)
}

func whitePixel() *metadata.TextureData {
	return &metadata.TextureData{Name: "white", Width: 1, Height: 1, ChannelCount: 4, Pixels: []uint8{255, 255, 255, 255}}
}

func TestNodeExtentDefault(t *testing.T) {
	e := NewNodeExtent()
	assert.False(t, e.Valid())

	e.ExtendRange(math.NewVec3(0, 0, 0), math.NewVec3(1, 1, 1))
	assert.True(t, e.Valid())
	assert.Equal(t, math.NewVec3(0.5, 0.5, 0.5), e.Centroid())
	d := e.Distance()
	assert.GreaterOrEqual(t, d.X, float32(0))
	assert.GreaterOrEqual(t, d.Y, float32(0))
	assert.GreaterOrEqual(t, d.Z, float32(0))
}

func TestNodeExtentZeroValue(t *testing.T) {
	var total NodeExtent
	assert.False(t, total.Valid())
	assert.Equal(t, NewNodeExtent(), total)

	total.Extend(NewNodeExtent())
	assert.False(t, total.Valid())

	total.Extend(NodeExtentFromRange(math.NewVec3(1, 1, 1), math.NewVec3(2, 2, 2)))
	require.True(t, total.Valid())
	assert.Equal(t, math.NewVec3(1, 1, 1), total.Start)
	assert.Equal(t, math.NewVec3(2, 2, 2), total.End)

	literal := NodeExtent{Start: math.NewVec3Zero(), End: math.NewVec3One()}
	assert.False(t, literal.Valid())
}

func TestNodeExtentNaN(t *testing.T) {
	nan := math32.NaN()
	e := NodeExtentFromRange(math.NewVec3(nan, 0, 0), math.NewVec3(1, 1, 1))
	assert.False(t, e.Valid())
	e = NodeExtentFromRange(math.NewVec3(0, 0, 0), math.NewVec3(1, nan, 1))
	assert.False(t, e.Valid())

	node := &Prefab{Extent: &e}
	node.ScaleTo(4)
	assert.Nil(t, node.Transform)
}

func TestNodeExtentOrderIndependent(t *testing.T) {
	boxes := []NodeExtent{
		NodeExtentFromRange(math.NewVec3(-1, 0, 2), math.NewVec3(0, 1, 3)),
		NodeExtentFromRange(math.NewVec3(4, -5, 0), math.NewVec3(5, -4, 1)),
		NodeExtentFromRange(math.NewVec3(0, 0, -7), math.NewVec3(0.5, 9, 0)),
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}}

	var first NodeExtent
	for i, order := range orders {
		e := NewNodeExtent()
		for _, j := range order {
			e.Extend(boxes[j])
		}
		if i == 0 {
			first = e
			continue
		}
		assert.Equal(t, first, e)
	}
	assert.Equal(t, NodeExtentFromRange(math.NewVec3(-1, -5, -7), math.NewVec3(5, 9, 3)), first)
}

func TestNodeExtentBoundingSphere(t *testing.T) {
	e := NodeExtentFromRange(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1))
	sphere := e.BoundingSphere()
	assert.Equal(t, math.NewVec3Zero(), sphere.Center)
	assert.InDelta(t, math32.Sqrt(12)/2, sphere.Radius, 1e-5)
	assert.True(t, sphere.Contains(math.NewVec3(1, 1, 1)))

	fromMesh := NodeExtentFromMesh(cubeMesh())
	assert.Equal(t, e, fromMesh)
	assert.False(t, NodeExtentFromMesh(nil).Valid())
}

func TestMaterialSet(t *testing.T) {
	set := NewMaterialSet()
	require.NoError(t, set.Insert(1, formats.NewMaterialPrefab("a")))
	require.NoError(t, set.Insert(1, formats.NewMaterialPrefab("b")))
	m, ok := set.Get(1)
	require.True(t, ok)
	assert.Equal(t, "b", m.Name)
	set.Clear()
	assert.Equal(t, 0, set.Len())

	batch := NewMaterialBatch(map[int]*formats.MaterialPrefab{
		3: formats.NewMaterialPrefab("three"),
		1: formats.NewMaterialPrefab("one"),
	})
	var order []int
	pending, err := set.Populate(batch, func(id int, _ *formats.MaterialPrefab) (bool, error) {
		order = append(order, id)
		return id == 3, nil
	})
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, []int{1, 3}, order)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Sealed())

	assert.ErrorIs(t, set.Insert(4, formats.NewMaterialPrefab("four")), ErrMaterialSetSealed)
	_, err = set.Populate(NewMaterialBatch(nil), nil)
	assert.ErrorIs(t, err, ErrMaterialSetSealed)

	set.BeginPass()
	assert.False(t, set.Sealed())
	assert.Equal(t, 0, set.Len())
	_, err = set.Populate(batch, nil)
	assert.ErrorIs(t, err, ErrMaterialBatchConsumed)
}

func TestMaterialSetResolveFailureLeavesNoMaterials(t *testing.T) {
	set := NewMaterialSet()
	batch := NewMaterialBatch(map[int]*formats.MaterialPrefab{
		1: formats.NewMaterialPrefab("one"),
		2: formats.NewMaterialPrefab("two"),
	})
	_, err := set.Populate(batch, func(id int, _ *formats.MaterialPrefab) (bool, error) {
		if id == 2 {
			return false, formats.ErrNoTextureSource
		}
		return true, nil
	})
	assert.ErrorIs(t, err, formats.ErrNoTextureSource)
	assert.Equal(t, 0, set.Len())
}

func TestRawMeshBecomesHandle(t *testing.T) {
	s := newScene()
	progress := assets.NewProgressCounter()
	node := &Prefab{Mesh: cubeMesh()}

	pending, err := node.LoadSubAssets(progress, s.data)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Nil(t, node.Mesh)
	assert.True(t, node.MeshHandle.IsValid())

	pending, err = node.LoadSubAssets(progress, s.data)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, 1, progress.NumAssets())
}

func TestMeshSourceIsLoaded(t *testing.T) {
	s := newScene()
	progress := assets.NewProgressCounter()
	node := &Prefab{Source: formats.FromShape(&formats.ShapePrefab{Shape: shape.NewSphere(1)})}

	pending, err := node.LoadSubAssets(progress, s.data)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, node.Source.Handle(), node.MeshHandle)

	pending, err = node.LoadSubAssets(progress, s.data)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestMeshSourceWritesComponent(t *testing.T) {
	s := newScene()
	e, err := s.world.Create()
	require.NoError(t, err)

	unloaded := &Prefab{Source: formats.FromAsset(&formats.AssetPrefab{File: "never.obj"})}
	err = unloaded.AddToEntity(e, s.data, []ecs.Entity{e}, nil)
	assert.ErrorIs(t, err, formats.ErrMeshNotLoaded)
	assert.ErrorContains(t, err, "mesh:")
	assert.Equal(t, 0, s.data.Meshes.Components.Len())

	node := &Prefab{Source: formats.FromShape(&formats.ShapePrefab{Shape: shape.NewSphere(1)})}
	_, err = node.LoadSubAssets(assets.NewProgressCounter(), s.data)
	require.NoError(t, err)
	require.NoError(t, node.AddToEntity(e, s.data, []ecs.Entity{e}, nil))
	got, ok := s.data.Meshes.Components.Get(e)
	require.True(t, ok)
	assert.Equal(t, node.Source.Handle(), got)
}

func TestRawMeshWinsOverSource(t *testing.T) {
	s := newScene()
	e, err := s.world.Create()
	require.NoError(t, err)

	node := &Prefab{
		Mesh:   cubeMesh(),
		Source: formats.FromShape(&formats.ShapePrefab{Shape: shape.NewSphere(1)}),
	}
	_, err = node.LoadSubAssets(assets.NewProgressCounter(), s.data)
	require.NoError(t, err)
	assert.False(t, node.Source.Handle().IsValid())

	require.NoError(t, node.AddToEntity(e, s.data, []ecs.Entity{e}, nil))
	got, ok := s.data.Meshes.Components.Get(e)
	require.True(t, ok)
	assert.Equal(t, node.MeshHandle, got)
}

func TestMaterialIDNeedsOwnerFirst(t *testing.T) {
	owner := func() *Prefab {
		m := formats.NewMaterialPrefab("five")
		m.Diffuse = formats.TextureFromData(whitePixel())
		p := &Prefab{}
		p.SetMaterialBatch(NewMaterialBatch(map[int]*formats.MaterialPrefab{5: m}))
		return p
	}

	t.Run("owner first", func(t *testing.T) {
		s := newScene()
		progress := assets.NewProgressCounter()
		node := &Prefab{}
		node.SetMaterialID(5)
		assert.Equal(t, MaterialUnresolved, node.MaterialStatus())

		s.data.BeginPass()
		pending, err := owner().LoadSubAssets(progress, s.data)
		require.NoError(t, err)
		assert.True(t, pending)
		_, err = node.LoadSubAssets(progress, s.data)
		require.NoError(t, err)

		require.NotNil(t, node.Material)
		assert.Equal(t, MaterialResolved, node.MaterialStatus())
		assert.Equal(t, "five", node.Material.Name)
		assert.True(t, node.Material.IsLoaded())
		assert.Equal(t, 2, progress.NumAssets())
	})

	t.Run("node first", func(t *testing.T) {
		s := newScene()
		progress := assets.NewProgressCounter()
		node := &Prefab{}
		node.SetMaterialID(5)

		s.data.BeginPass()
		pending, err := node.LoadSubAssets(progress, s.data)
		require.NoError(t, err)
		assert.False(t, pending)
		_, err = owner().LoadSubAssets(progress, s.data)
		require.NoError(t, err)

		assert.Nil(t, node.Material)
		assert.Equal(t, MaterialUnresolved, node.MaterialStatus())
	})
}

func TestNameOnlyNodeWritesOneComponent(t *testing.T) {
	s := newScene()
	e, err := s.world.Create()
	require.NoError(t, err)

	node := &Prefab{Name: components.NewNamed("lonely")}
	require.NoError(t, node.AddToEntity(e, s.data, []ecs.Entity{e}, nil))

	assert.Equal(t, 1, s.data.Names.Len())
	assert.Equal(t, 0, s.data.Transforms.Len())
	assert.Equal(t, 0, s.data.Meshes.Components.Len())
	assert.Equal(t, 0, s.data.Materials.Components.Len())
	assert.Equal(t, 0, s.data.Animations.Sets.Len())
	assert.Equal(t, 0, s.data.Skins.Skins.Len())
	assert.Equal(t, 0, s.data.Bounds.Len())
}

func TestAddToEntityStopsAtFirstError(t *testing.T) {
	s := newScene()
	e, err := s.world.Create()
	require.NoError(t, err)

	extent := NodeExtentFromRange(math.NewVec3Zero(), math.NewVec3One())
	node := &Prefab{
		Name:     components.NewNamed("half"),
		Material: formats.NewMaterialPrefab("never loaded"),
		Extent:   &extent,
	}
	err = node.AddToEntity(e, s.data, []ecs.Entity{e}, nil)
	assert.ErrorIs(t, err, formats.ErrMaterialNotLoaded)
	assert.ErrorContains(t, err, "material:")
	assert.Equal(t, 1, s.data.Names.Len())
	assert.Equal(t, 0, s.data.Bounds.Len())
}

func TestAddToEntitySkinError(t *testing.T) {
	s := newScene()
	e, err := s.world.Create()
	require.NoError(t, err)

	node := &Prefab{Skinnable: &animation.SkinnablePrefab{Joint: &animation.JointPrefab{Skins: []int{7}}}}
	err = node.AddToEntity(e, s.data, []ecs.Entity{e}, nil)
	assert.ErrorIs(t, err, animation.ErrNodeOutOfRange)
	assert.ErrorContains(t, err, "skin:")
}

func TestSceneLoads(t *testing.T) {
	s := newScene()

	floor := formats.NewMaterialPrefab("floor")
	floor.Diffuse = formats.TextureFromData(whitePixel())
	rootExtent := NewNodeExtent()
	root := &Prefab{Name: components.NewNamed("root"), Extent: &rootExtent}
	root.SetMaterialBatch(NewMaterialBatch(map[int]*formats.MaterialPrefab{5: floor}))

	cubeExtent := NodeExtentFromRange(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1))
	cube := &Prefab{
		Name:      components.NewNamed("cube"),
		Transform: components.NewTransform(math.NewVec3(0, 1, 0), math.NewQuatIdentity(), math.NewVec3One()),
		Source:    formats.FromShape(&formats.ShapePrefab{Shape: shape.NewCube(2, 2, 2)}),
		Extent:    &cubeExtent,
	}
	plane := &Prefab{Name: components.NewNamed("plane"), Mesh: shape.NewPlane(10, 10).Generate(0)}
	plane.SetMaterialID(5)

	p := prefab.New(root)
	p.Add(0, cube)
	p.Add(0, plane)
	total := AggregateExtent(p)
	assert.Equal(t, cubeExtent, total)

	req := s.load(t, p)
	require.Equal(t, prefab.RequestStateLoaded, req.State(), "%v", req.Err())
	require.NoError(t, req.Err())
	entities := req.Entities()
	require.Len(t, entities, 3)

	assert.Equal(t, MaterialResolved, plane.MaterialStatus())
	h, ok := s.data.Materials.Components.Get(entities[2])
	require.True(t, ok)
	mat, ok := s.storages.Materials.Get(h)
	require.True(t, ok)
	assert.Equal(t, "floor", mat.Name)
	assert.True(t, s.storages.Textures.IsLoaded(mat.DiffuseMap))

	assert.True(t, s.data.Meshes.Components.Has(entities[1]))
	assert.True(t, s.data.Meshes.Components.Has(entities[2]))
	assert.False(t, s.data.Meshes.Components.Has(entities[0]))
	assert.Equal(t, 2, s.storages.Meshes.Len())

	tr, ok := s.data.Transforms.Get(entities[1])
	require.True(t, ok)
	assert.Equal(t, math.NewVec3(0, 1, 0), tr.Position)

	parents := ecs.GetStorage[components.Parent](s.world)
	parent, ok := parents.Get(entities[2])
	require.True(t, ok)
	assert.Equal(t, entities[0], parent.Entity)

	assert.Equal(t, 2, s.data.Bounds.Len())
	sphere, ok := s.data.Bounds.Get(entities[0])
	require.True(t, ok)
	assert.InDelta(t, math32.Sqrt(12)/2, sphere.Radius, 1e-5)
}

func TestPhaseOneFailureWritesNoBounds(t *testing.T) {
	t.Run("fatal", func(t *testing.T) {
		s := newScene()
		broken := formats.NewMaterialPrefab("broken")
		broken.Normal = &formats.TexturePrefab{}
		extent := NodeExtentFromRange(math.NewVec3Zero(), math.NewVec3One())
		root := &Prefab{Extent: &extent}
		root.SetMaterialBatch(NewMaterialBatch(map[int]*formats.MaterialPrefab{0: broken}))
		p := prefab.New(root)
		p.Add(0, &Prefab{Extent: &extent, Mesh: cubeMesh()})

		req := s.loader.Load(p)
		assert.Equal(t, prefab.RequestStateFailed, req.State())
		assert.ErrorIs(t, req.Err(), prefab.ErrPrefabFailed)
		assert.ErrorIs(t, req.Err(), formats.ErrNoTextureSource)
		assert.Equal(t, 0, s.data.Bounds.Len())
		assert.Equal(t, 0, s.data.MaterialSet.Len())
	})

	t.Run("asynchronous", func(t *testing.T) {
		s := newScene()
		extent := NodeExtentFromRange(math.NewVec3Zero(), math.NewVec3One())
		p := prefab.New(&Prefab{Extent: &extent, Mesh: cubeMesh()})
		p.Add(0, &Prefab{Extent: &extent, Mesh: &metadata.MeshData{Name: "empty"}})

		req := s.load(t, p)
		assert.Equal(t, prefab.RequestStateFailed, req.State())
		assert.ErrorIs(t, req.Err(), renderer.ErrEmptyGeometry)
		assert.Empty(t, req.Entities())
		assert.Equal(t, 0, s.data.Bounds.Len())
	})
}

func TestAnimatableNode(t *testing.T) {
	s := newScene()
	sampler := &animation.Sampler{Input: []float32{0, 1}, Output: []math.Vec4{{}, {X: 1}}}
	root := &Prefab{Animatable: &animation.AnimatablePrefab{
		Animations: &animation.AnimationSetPrefab{Animations: map[int]*animation.AnimationPrefab{
			0: {Name: "slide", Samplers: []animation.NodeSamplerPrefab{{Node: 1, Sampler: animation.NewSamplerPrefab(sampler)}}},
		}},
		Hierarchy: &animation.HierarchyPrefab{Nodes: []int{1}},
	}}
	p := prefab.New(root)
	p.Add(0, &Prefab{Skinnable: &animation.SkinnablePrefab{Joint: &animation.JointPrefab{Skins: []int{0}}}})

	req := s.load(t, p)
	require.Equal(t, prefab.RequestStateLoaded, req.State(), "%v", req.Err())
	h, ok := s.data.Animations.Hierarchies.Get(req.Entities()[0])
	require.True(t, ok)
	assert.Equal(t, req.Entities()[1], h.Nodes[1])
	assert.True(t, s.data.Skins.Joints.Has(req.Entities()[1]))
}

func TestMoveAndScale(t *testing.T) {
	extent := NodeExtentFromRange(math.NewVec3(0, 0, 0), math.NewVec3(2, 4, 1))
	node := &Prefab{Extent: &extent}

	node.MoveTo(math.NewVec3(10, 0, 0))
	require.NotNil(t, node.Transform)
	assert.Equal(t, math.NewVec3(9, -2, -0.5), node.Transform.Position)

	node.ScaleTo(1)
	assert.Equal(t, math.NewVec3(0.25, 0.25, 0.25), node.Transform.Scale)

	empty := &Prefab{}
	empty.MoveTo(math.NewVec3One())
	empty.ScaleTo(2)
	assert.Nil(t, empty.Transform)
}

func TestSceneOptions(t *testing.T) {
	opts, err := ParseSceneOptions([]byte("load_normals = false\nflip_v_coord = true\nscene_index = 1\ngenerate_tex_coords = [0.5, 0.25]\n"))
	require.NoError(t, err)
	assert.False(t, opts.LoadNormals)
	assert.True(t, opts.LoadColors)
	assert.True(t, opts.LoadAnimations)
	assert.True(t, opts.FlipVCoord)
	require.NotNil(t, opts.SceneIndex)
	assert.Equal(t, 1, *opts.SceneIndex)
	assert.Equal(t, [2]float32{0.5, 0.25}, opts.GenerateTexCoords)

	_, err = ParseSceneOptions([]byte("load_normals = 3"))
	assert.Error(t, err)
}

func TestResolveSceneIndex(t *testing.T) {
	defaults := DefaultSceneOptions()
	one, three := 1, 3

	_, err := ResolveSceneIndex(defaults, 0, nil)
	assert.ErrorIs(t, err, ErrNoScene)

	i, err := ResolveSceneIndex(defaults, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = ResolveSceneIndex(defaults, 2, nil)
	assert.ErrorIs(t, err, ErrAmbiguousScene)

	i, err = ResolveSceneIndex(defaults, 2, &one)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	explicit := defaults
	explicit.SceneIndex = &one
	i, err = ResolveSceneIndex(explicit, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	explicit.SceneIndex = &three
	_, err = ResolveSceneIndex(explicit, 3, &one)
	assert.ErrorIs(t, err, ErrSceneIndexOutOfRange)
}

func TestSceneOptionsApply(t *testing.T) {
	mesh := &metadata.MeshData{
		Layout:   metadata.VertexLayoutCombo,
		Vertices: []math.Vertex3D{{Texcoord: math.NewVec2(0, 0.25)}},
	}
	node := &Prefab{Mesh: mesh, Animatable: &animation.AnimatablePrefab{}}

	opts := DefaultSceneOptions()
	opts.LoadTangents = false
	opts.LoadColors = false
	opts.LoadAnimations = false
	opts.FlipVCoord = true
	opts.Apply(node)

	assert.Nil(t, node.Animatable)
	assert.Equal(t, metadata.VertexLayoutPosNormTex, mesh.Layout)
	assert.InDelta(t, 0.75, mesh.Vertices[0].Texcoord.Y, 1e-6)

	bare := &metadata.MeshData{
		Layout:   metadata.VertexAttributePosition,
		Vertices: []math.Vertex3D{{}, {}},
	}
	opts = DefaultSceneOptions()
	opts.GenerateTexCoords = [2]float32{0.5, 0.5}
	opts.Apply(&Prefab{Mesh: bare})
	assert.True(t, bare.Layout.Has(metadata.VertexAttributeTexcoord))
	assert.Equal(t, math.NewVec2(0.5, 0.5), bare.Vertices[1].Texcoord)
}
