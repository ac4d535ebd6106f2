/*
This is an example of application that will use the
engine package to load a small scene
*/
package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-prefab/engine"
	"github.com/spaghettifunk/anima-prefab/engine/components"
	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/gltf"
	"github.com/spaghettifunk/anima-prefab/engine/math"
	"github.com/spaghettifunk/anima-prefab/engine/prefab"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/formats"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/shape"
)

const configFile = "anima.toml"

type demo struct {
	request *engine.SceneRequest
}

func demoScene() *engine.Scene {
	floor := formats.NewMaterialPrefab("floor")
	floor.DiffuseColour = math.NewVec4(0.4, 0.6, 0.4, 1)
	floor.Diffuse = formats.TextureFromData(&metadata.TextureData{
		Name:         "checker",
		Width:        2,
		Height:       2,
		ChannelCount: 4,
		Pixels: []uint8{
			255, 255, 255, 255, 0, 0, 0, 255,
			0, 0, 0, 255, 255, 255, 255, 255,
		},
		Sampler: metadata.DefaultTextureSampler(),
	})

	rootExtent := gltf.NewNodeExtent()
	root := &gltf.Prefab{Name: components.NewNamed("demo"), Extent: &rootExtent}
	root.SetMaterialBatch(gltf.NewMaterialBatch(map[int]*formats.MaterialPrefab{0: floor}))

	cubeExtent := gltf.NodeExtentFromRange(math.NewVec3(-1, 0, -1), math.NewVec3(1, 2, 1))
	cube := &gltf.Prefab{
		Name:      components.NewNamed("cube"),
		Transform: components.NewTransform(math.NewVec3(0, 1, 0), math.NewQuatIdentity(), math.NewVec3One()),
		Source:    formats.FromShape(&formats.ShapePrefab{Shape: shape.NewCube(2, 2, 2)}),
		Extent:    &cubeExtent,
	}

	planeMesh := shape.NewPlane(20, 20).Generate(metadata.VertexLayoutPosNormTangTex)
	planeExtent := gltf.NodeExtentFromMesh(planeMesh)
	plane := &gltf.Prefab{
		Name:      components.NewNamed("plane"),
		Transform: components.NewTransform(math.NewVec3Zero(), math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), math.DegToRad(-90), true), math.NewVec3One()),
		Mesh:      planeMesh,
		Extent:    &planeExtent,
	}
	plane.SetMaterialID(0)

	scene := prefab.New(root)
	scene.Add(0, cube)
	scene.Add(0, plane)
	gltf.AggregateExtent(scene)
	root.MoveTo(math.NewVec3Zero())
	return scene
}

func main() {
	cfg := engine.DefaultConfig()
	if _, err := os.Stat(configFile); err == nil {
		cfg, err = engine.LoadConfig(configFile)
		if err != nil {
			panic(err)
		}
	}

	d := &demo{}
	g := &engine.Game{
		Config: cfg,
		State:  d,
		FnInitialize: func(e *engine.Engine) error {
			req, err := e.LoadScene(demoScene())
			if err != nil {
				return err
			}
			d.request = req
			return nil
		},
		FnUpdate: func(e *engine.Engine, _ float64) error {
			switch d.request.State() {
			case prefab.RequestStateLoaded:
				meshes, textures := e.Storages().Meshes.Len(), e.Storages().Textures.Len()
				core.LogInfo("scene loaded: %d entities, %d meshes, %d textures", len(d.request.Entities()), meshes, textures)
				if err := d.request.Err(); err != nil {
					core.LogWarn("some components could not be attached: %s", err)
				}
				e.Stop()
			case prefab.RequestStateFailed:
				return d.request.Err()
			}
			return nil
		},
	}

	e, err := engine.New(g, nil)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		sig := <-sigCh
		ctx := core.EventContext{}
		ctx.Data.C[0] = sig.String()
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, ctx)
	}()

	// run engine
	runErr := e.Run()
	if err := errors.Join(runErr, e.Shutdown()); err != nil {
		core.LogFatal(err.Error())
	}
}
