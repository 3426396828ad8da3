package engine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/components"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize runs once the renderer is up; meshes are added here.
type Initialize func(e *Engine) error

// Update runs every frame between the arena's BeginFrame and the draw.
type Update func(frame *FrameContext) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error

// FrameContext is what a game sees of the engine during Update.
type FrameContext struct {
	// Seconds since the previous frame.
	Delta float64
	// Seconds since Run started.
	Time   float64
	Number uint64
	Camera *components.Camera
	Input  *core.InputState

	engine *Engine
}

// AddInstances submits this frame's transforms for a mesh. Failures are
// logged and returned; the mesh is then simply not drawn this frame.
func (fc *FrameContext) AddInstances(meshID uint32, transforms []mgl32.Mat4) (metadata.InstanceBinding, error) {
	binding, err := fc.engine.renderer.AddInstances(meshID, transforms)
	if err != nil {
		fc.engine.logger.Errorf("AddInstances mesh id[%d]: %s", meshID, err)
	}
	return binding, err
}

// Mesh returns the id of a mesh added earlier by path or short name.
func (fc *FrameContext) Mesh(name string) (uint32, bool) {
	return fc.engine.MeshID(name)
}
