package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spaghettifunk/instanced/engine/assets"
	"github.com/spaghettifunk/instanced/engine/assets/loaders"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/platform"
	"github.com/spaghettifunk/instanced/engine/renderer"
	"github.com/spaghettifunk/instanced/engine/renderer/components"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
	"github.com/spaghettifunk/instanced/engine/renderer/opengl"
	"github.com/spaghettifunk/instanced/engine/systems"
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

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig
	isRunning    atomic.Bool

	logger  core.Logger
	console *core.Console
	clock   *core.Clock
	metrics *core.Metrics
	input   *core.InputState

	platform     *platform.Platform
	backend      renderer.Backend
	renderer     *renderer.Renderer
	camera       *components.Camera
	meshCache    *systems.MeshCache
	assetManager *assets.AssetManager
	jobSystem    *systems.JobSystem

	// Async loads not yet in the arena, by mesh id. pendingOrder keeps them
	// landing in submission order.
	pendingMeshes map[uint32]<-chan metadata.MeshLoadResult
	pendingOrder  []uint32

	width, height uint32
	lastTime      float64
	frameNumber   uint64
}

// New wires the engine's CPU side. Nothing touches the window or GPU until
// Initialize.
func New(g *Game) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("func New - game is required")
	}
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultConfig()
	}
	config := g.ApplicationConfig
	if err := config.Validate(); err != nil {
		return nil, err
	}

	console := core.NewConsole("engine", core.MAX_CONSOLE_ENTRIES)
	logger := core.NewLogger(config.Log, io.MultiWriter(os.Stderr, console))

	meshCache, err := systems.NewMeshCache(config.Meshes, assets.DiskSource{}, logger)
	if err != nil {
		return nil, err
	}

	input := core.NewInputState()
	e := &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		config:        config,
		logger:        logger,
		console:       console,
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
		input:         input,
		camera:        components.NewCamera(),
		meshCache:     meshCache,
		pendingMeshes: make(map[uint32]<-chan metadata.MeshLoadResult),
		width:         uint32(config.Window.Width),
		height:        uint32(config.Window.Height),
	}
	if !config.Headless {
		e.platform = platform.New(input, logger)
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if e.platform != nil {
		if err := e.platform.Startup(e.config.Window); err != nil {
			return err
		}
	}

	backend, err := e.createBackend()
	if err != nil {
		return err
	}
	e.backend = backend

	r, err := renderer.New(e.config.Renderer, backend, e.logger)
	if err != nil {
		return err
	}
	e.renderer = r

	if e.platform != nil {
		e.platform.OnResize(e.onResized)
	}

	if e.config.Assets.Watch && e.config.Assets.Root != "" {
		am, err := assets.NewAssetManager(e.logger)
		if err != nil {
			return err
		}
		if err := am.Initialize(e.config.Assets.Root); err != nil {
			// A missing asset directory only disables name lookups.
			e.logger.Warnf("asset index disabled: %s", err)
			_ = am.Shutdown()
		} else {
			e.assetManager = am
		}
	}

	if e.config.Jobs.Workers > 0 {
		js, err := systems.NewJobSystem(e.config.Jobs.Workers, e.config.Jobs.QueueSize, e.logger)
		if err != nil {
			return err
		}
		e.jobSystem = js
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) createBackend() (renderer.Backend, error) {
	if e.config.Headless {
		return renderer.NopBackend{}, nil
	}

	shader, err := loaders.LoadShader(e.config.Assets.ShaderDir, e.config.Assets.ShaderName)
	if err != nil {
		return nil, err
	}
	texture, err := loaders.LoadImage(e.config.Assets.DefaultTexture, metadata.ImageParams{FlipY: true})
	if err != nil {
		e.logger.Warnf("default texture: %s, using checker", err)
		texture = loaders.CheckerImage(64, 8)
	}
	return opengl.New(shader, texture, e.logger)
}

// AddMesh caches the mesh at path (or indexed short name), reads its data and
// packs it into the arena. Adding the same mesh again returns its id.
func (e *Engine) AddMesh(path string) (uint32, error) {
	path = e.resolve(path)

	meshID, err := e.meshCache.LoadMesh(path)
	if err != nil {
		return metadata.InvalidMeshID, err
	}
	if _, ok := e.renderer.Arena().Layout(meshID); ok {
		return meshID, nil
	}

	payload, err := e.meshCache.LoadMeshData(meshID)
	if err != nil {
		return metadata.InvalidMeshID, err
	}
	defer payload.Release()

	if err := e.addGeometry(meshID, path, payload); err != nil {
		return metadata.InvalidMeshID, err
	}
	return meshID, nil
}

// AddMeshAsync caches the mesh now and reads its data on the job system. The
// geometry lands in the arena at the start of the first frame after the read
// finishes; until then the mesh is not drawn. A mesh already loading is not
// read again.
func (e *Engine) AddMeshAsync(path string) (uint32, error) {
	if e.jobSystem == nil {
		return e.AddMesh(path)
	}
	path = e.resolve(path)

	meshID, err := e.meshCache.LoadMesh(path)
	if err != nil {
		return metadata.InvalidMeshID, err
	}
	if _, ok := e.renderer.Arena().Layout(meshID); ok {
		return meshID, nil
	}
	if _, ok := e.pendingMeshes[meshID]; ok {
		return meshID, nil
	}
	ch, err := e.meshCache.LoadMeshDataAsync(e.jobSystem, meshID)
	if err != nil {
		return metadata.InvalidMeshID, err
	}
	e.pendingMeshes[meshID] = ch
	e.pendingOrder = append(e.pendingOrder, meshID)
	return meshID, nil
}

// MeshID returns the id of a cached mesh by path or short name.
func (e *Engine) MeshID(name string) (uint32, bool) {
	return e.meshCache.Lookup(e.resolve(name))
}

func (e *Engine) addGeometry(meshID uint32, path string, payload *metadata.MeshPayload) error {
	if payload.Empty() {
		err := fmt.Errorf("%w: mesh id[%d] has no data", core.ErrMalformedAsset, meshID)
		e.logger.Errorf("Add Mesh failed, id[%d], path[%s]: %s", meshID, path, err)
		return err
	}
	if _, err := e.renderer.AddGeometry(meshID, payload); err != nil {
		e.logger.Errorf("Add Mesh failed, id[%d], path[%s]: %s", meshID, path, err)
		return err
	}
	if e.assetManager != nil {
		e.assetManager.MarkCached(path)
	}
	e.logger.Infof("Add Mesh, id[%d], path[%s]", meshID, path)
	return nil
}

func (e *Engine) resolve(name string) string {
	if e.assetManager == nil {
		return name
	}
	resolved, err := e.assetManager.Resolve(name)
	if errors.Is(err, assets.ErrAmbiguousName) {
		e.logger.Warnf("%s", err)
	}
	if err != nil {
		return name
	}
	return resolved
}

// drainPendingMeshes moves finished async loads into the arena without
// blocking on the ones still running.
func (e *Engine) drainPendingMeshes() {
	remaining := e.pendingOrder[:0]
	for _, meshID := range e.pendingOrder {
		select {
		case res := <-e.pendingMeshes[meshID]:
			delete(e.pendingMeshes, meshID)
			if res.Err != nil {
				e.logger.Errorf("async mesh load id[%d] job[%s]: %s", res.MeshID, res.JobID, res.Err)
				continue
			}
			if _, ok := e.renderer.Arena().Layout(res.MeshID); ok {
				// added synchronously while the read was running
				res.Payload.Release()
				continue
			}
			record, _ := e.meshCache.Record(res.MeshID)
			if err := e.addGeometry(res.MeshID, record.SourcePath, res.Payload); err != nil {
				e.logger.Warnf("async mesh id[%d] job[%s] dropped", res.MeshID, res.JobID)
			}
			res.Payload.Release()
		default:
			remaining = append(remaining, meshID)
		}
	}
	e.pendingOrder = remaining
}

// PendingMeshes reports how many async mesh loads have not reached the arena.
func (e *Engine) PendingMeshes() int {
	return len(e.pendingMeshes)
}

// Frame runs one iteration of the frame loop: camera, BeginFrame, the game's
// instance submissions, draw list and draw calls.
func (e *Engine) Frame(delta float64) error {
	if e.renderer == nil {
		return fmt.Errorf("engine not initialized")
	}
	e.drainPendingMeshes()
	e.updateCamera()

	e.renderer.BeginFrame()
	e.frameNumber++

	if e.gameInstance.FnUpdate != nil {
		ctx := &FrameContext{
			Delta:  delta,
			Time:   e.clock.Elapsed(),
			Number: e.frameNumber,
			Camera: e.camera,
			Input:  e.input,
			engine: e,
		}
		if err := e.gameInstance.FnUpdate(ctx); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}

	entries, err := e.renderer.DrawFrame(e.camera.ProjView(e.aspect()))
	if err != nil {
		return err
	}
	e.metrics.RecordDraws(len(entries), e.renderer.Arena().InstanceCount())

	if e.platform != nil {
		e.platform.SwapBuffers()
	}
	e.input.Update()
	return nil
}

func (e *Engine) updateCamera() {
	if e.input.IsKeyDown(core.KEY_ESCAPE) && e.platform != nil {
		e.platform.RequestClose()
	}
	e.camera.Look(e.input.MouseDelta())
	if e.input.IsKeyDown(core.KEY_W) {
		e.camera.MoveForward(1)
	}
	if e.input.IsKeyDown(core.KEY_S) {
		e.camera.MoveForward(-1)
	}
	if e.input.IsKeyDown(core.KEY_D) {
		e.camera.MoveRight(1)
	}
	if e.input.IsKeyDown(core.KEY_A) {
		e.camera.MoveRight(-1)
	}
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if e.platform != nil && !e.platform.PumpMessages() {
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if err := e.Frame(delta); err != nil {
			e.logger.Errorf("Frame failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		e.metrics.Update(delta)
		e.lastTime = currentTime

		if e.config.MaxFrames > 0 && e.frameNumber >= e.config.MaxFrames {
			break
		}
	}
	e.isRunning.Store(false)
	return nil
}

// Stop asks Run to return after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases everything Initialize acquired. Must run on the thread
// that owns the window.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.jobSystem != nil {
		errs = append(errs, e.jobSystem.Shutdown())
	}
	if e.assetManager != nil {
		errs = append(errs, e.assetManager.Shutdown())
	}
	errs = append(errs, e.meshCache.Shutdown())
	if e.renderer != nil {
		errs = append(errs, e.renderer.Shutdown())
	}
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
	}

	e.logger.Infof("Engine shut down after %d frames", e.frameNumber)
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

func (e *Engine) onResized(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	e.width, e.height = uint32(width), uint32(height)
	if rs, ok := e.backend.(interface{ Resize(int, int) }); ok {
		rs.Resize(width, height)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			e.logger.Errorf("game resize: %s", err)
		}
	}
}

func (e *Engine) aspect() float32 {
	if e.width == 0 || e.height == 0 {
		return 16.0 / 9.0
	}
	return float32(e.width) / float32(e.height)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) MeshCache() *systems.MeshCache {
	return e.meshCache
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) Logger() core.Logger {
	return e.logger
}

func (e *Engine) Console() *core.Console {
	return e.console
}

func (e *Engine) Camera() *components.Camera {
	return e.camera
}
