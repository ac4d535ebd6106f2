package engine

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-prefab/engine/animation"
	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/assets/loaders"
	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
	"github.com/spaghettifunk/anima-prefab/engine/gltf"
	"github.com/spaghettifunk/anima-prefab/engine/prefab"
	"github.com/spaghettifunk/anima-prefab/engine/renderer"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/formats"
	"github.com/spaghettifunk/anima-prefab/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Scene = prefab.Prefab[*gltf.Prefab]

type SceneRequest = prefab.Request[*gltf.Prefab]

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *Config
	isRunning    atomic.Bool
	clock        *core.Clock
	lastTime     time.Duration

	assetManager *assets.AssetManager
	jobSystem    *systems.JobSystem
	loader       *assets.Loader
	renderer     *renderer.RendererSystem
	world        *ecs.World
	storages     gltf.AssetStorages
	processors   []assets.Processor
	scenes       *prefab.LoaderSystem[*gltf.Prefab, gltf.SystemData]
	sceneOptions gltf.SceneOptions
}

/**
 * @brief Creates the engine and every system of it. Nothing touches the
 * disk before Initialize.
 * @param backend The renderer backend; nil selects the headless one.
 */
func New(g *Game, backend renderer.RendererBackend) (*Engine, error) {
	cfg := g.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	js, err := systems.NewJobSystem(cfg.Workers, cfg.QueueSize)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	if backend == nil {
		backend = renderer.NewHeadlessBackend()
	}
	rs := renderer.NewRendererSystem(backend)

	storages := gltf.AssetStorages{
		Meshes:     assets.NewStorage("meshes", rs.UploadMesh),
		Textures:   assets.NewStorage("textures", rs.UploadTexture),
		Materials:  assets.NewStorage("materials", registerMaterial),
		Samplers:   assets.NewStorage("samplers", registerSampler),
		Animations: assets.NewStorage("animations", registerAnimation),
	}
	storages.Meshes.OnUnload(rs.ReleaseMesh)
	storages.Textures.OnUnload(rs.ReleaseTexture)

	loader := assets.NewLoader(am, js)
	world := ecs.NewWorld(cfg.MaxEntities)

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		clock:        core.NewClock(),
		assetManager: am,
		jobSystem:    js,
		loader:       loader,
		renderer:     rs,
		world:        world,
		storages:     storages,
		processors:   storages.Processors(),
		scenes:       prefab.NewLoaderSystem[*gltf.Prefab, gltf.SystemData](world, gltf.NewSystemData(world, loader, storages)),
		sceneOptions: gltf.DefaultSceneOptions(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	level, err := core.ParseLogLevel(e.config.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	core.SetLogLevel(level)

	if e.config.Scene.OptionsFile != "" {
		opts, err := gltf.LoadSceneOptions(e.config.Scene.OptionsFile)
		if err != nil {
			return err
		}
		e.sceneOptions = opts
	}

	if err := os.MkdirAll(e.config.AssetsDir, 0o755); err != nil {
		return err
	}
	if err := e.assetManager.Initialize(e.config.AssetsDir, e.config.WatchAssets); err != nil {
		return err
	}
	if e.config.WatchAssets {
		assets.WatchReloads(e.loader, e.storages.Meshes)
		assets.WatchReloads(e.loader, e.storages.Textures)
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_ASSET_FAILED, e, e.onEvent)

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized, assets in '%s' (%d files)", e.assetManager.Root(), e.assetManager.Len())
	return nil
}

/**
 * @brief Applies the scene options to every node and starts loading the scene.
 * Completion is observed through the returned request after calls to Update.
 */
func (e *Engine) LoadScene(scene *Scene) (*SceneRequest, error) {
	if e.currentStage < EngineStageInitialized {
		return nil, core.ErrNotInitialized
	}
	for i := 0; i < scene.Len(); i++ {
		if node := scene.Entry(i).Data; node != nil {
			e.sceneOptions.Apply(node)
		}
	}
	return e.scenes.Load(scene), nil
}

// LoadMaterial reads a material file from the assets directory.
func (e *Engine) LoadMaterial(path string) (*formats.MaterialPrefab, error) {
	data, err := e.assetManager.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := loaders.MaterialFormat{}.Import(data)
	if err != nil {
		return nil, fmt.Errorf("material '%s': %w", path, err)
	}
	return formats.MaterialFromConfig(cfg), nil
}

/**
 * @brief Hands imported assets to their storages, then finishes scenes whose
 * sub-assets are all loaded. Must be called from the thread owning the renderer.
 * @return The number of scene requests that finished.
 */
func (e *Engine) Update() int {
	for _, p := range e.processors {
		if n := p.Process(); n > 0 {
			core.LogDebug("%s: processed %d assets", p.Name(), n)
		}
	}
	return e.scenes.Update()
}

// Run calls Update and the game every frame until Stop.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	targetFrame := time.Second / 60
	for e.isRunning.Load() {
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()

		e.Update()
		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e, delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				e.isRunning.Store(false)
				return err
			}
		}

		e.clock.Update()
		if remaining := targetFrame - (e.clock.Elapsed() - currentTime); remaining > 0 {
			time.Sleep(remaining)
		}
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.Stop()
	e.clock.Stop()

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown(e))
	}
	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	core.EventUnregister(core.EVENT_CODE_ASSET_FAILED, e)
	errs = append(errs, e.jobSystem.Shutdown())
	errs = append(errs, e.assetManager.Shutdown())
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) World() *ecs.World {
	return e.world
}

func (e *Engine) SystemData() gltf.SystemData {
	return e.scenes.Data()
}

func (e *Engine) Storages() gltf.AssetStorages {
	return e.storages
}

func (e *Engine) Renderer() *renderer.RendererSystem {
	return e.renderer
}

func (e *Engine) onEvent(code core.SystemEventCode, _ interface{}, _ interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received (%s), shutting down.", context.Data.C[0])
		e.Stop()
		return true
	case core.EVENT_CODE_ASSET_FAILED:
		core.LogWarn("asset '%s' failed: %s", context.Data.C[0], context.Data.C[1])
	}
	return false
}

func registerMaterial(m *formats.Material) (*formats.Material, error) {
	return m, nil
}

func registerSampler(s *animation.Sampler) (*animation.Sampler, error) {
	return s, nil
}

func registerAnimation(a *animation.Animation) (*animation.Animation, error) {
	return a, nil
}
