package testbed

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

const (
	SphereMesh = "assets/meshes/sphere.mesh"
	CubeMesh   = "assets/meshes/cube.mesh"
	AmmoMesh   = "assets/meshes/ammo.mesh"

	// Side of the square grid of cubes drawn around the sphere.
	cubeGrid = 8
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	engine *engine.Engine

	sphereID uint32
	cubeID   uint32
	ammoID   uint32

	width  uint32
	height uint32

	// Reused every frame.
	cubes []mgl32.Mat4
	ammo  []mgl32.Mat4
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	state := g.State.(*gameState)
	state.engine = e

	var err error
	if state.sphereID, err = e.AddMesh(SphereMesh); err != nil {
		return err
	}
	if state.cubeID, err = e.AddMesh(CubeMesh); err != nil {
		return err
	}
	// Not needed for the first frame.
	if state.ammoID, err = e.AddMeshAsync(AmmoMesh); err != nil {
		return err
	}

	state.cubes = make([]mgl32.Mat4, cubeGrid*cubeGrid)
	state.ammo = make([]mgl32.Mat4, 3)
	return nil
}

func (g *TestGame) Update(frame *engine.FrameContext) error {
	state := g.State.(*gameState)
	t := float32(frame.Time)

	sphere := []mgl32.Mat4{mgl32.HomogRotate3DY(t)}

	for i := range state.cubes {
		x := float32(i%cubeGrid) - cubeGrid/2
		z := float32(i/cubeGrid) - cubeGrid/2
		y := 0.25 * float32(math.Sin(float64(t+x*0.5+z*0.3)))
		state.cubes[i] = mgl32.Translate3D(x*2, y-2, z*2).
			Mul4(mgl32.HomogRotate3D(t, mgl32.Vec3{1, 1, 0}.Normalize())).
			Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))
	}

	for i := range state.ammo {
		angle := t + float32(i)*2*math.Pi/3
		state.ammo[i] = mgl32.HomogRotate3DY(angle).
			Mul4(mgl32.Translate3D(2, 0, 0)).
			Mul4(mgl32.HomogRotate3D(t*3, mgl32.Vec3{0, 1, 1}.Normalize()))
	}

	// A failed submission only drops that mesh from this frame.
	_, _ = frame.AddInstances(state.sphereID, sphere)
	_, _ = frame.AddInstances(state.cubeID, state.cubes)
	if _, ok := state.engine.Renderer().Arena().Layout(state.ammoID); ok {
		_, _ = frame.AddInstances(state.ammoID, state.ammo)
	}

	if frame.Input.IsKeyDown(core.KEY_SPACE) && !frame.Input.WasKeyDown(core.KEY_SPACE) {
		m := state.engine.Metrics()
		state.engine.Logger().Infof("FPS: %5.1f(%4.1fms) draws[%d] instances[%d] pos[%v]",
			m.FPS(), m.FrameTime(), m.DrawCalls(), m.Instances(), frame.Camera.Position)
	}
	if frame.Input.IsButtonDown(core.BUTTON_LEFT) && !frame.Input.MousePrevious.Buttons[core.BUTTON_LEFT] {
		g.logPick(frame)
	}
	return nil
}

// logPick reports which way the cursor points in the world.
func (g *TestGame) logPick(frame *engine.FrameContext) {
	state := g.State.(*gameState)
	if state.width == 0 || state.height == 0 {
		return
	}
	ndcX := float32(frame.Input.MouseCurrent.X)/float32(state.width)*2 - 1
	ndcY := 1 - float32(frame.Input.MouseCurrent.Y)/float32(state.height)*2
	dir := frame.Camera.MouseRay(ndcX, ndcY, float32(state.width)/float32(state.height))
	state.engine.Logger().Debugf("mouse ray from %v towards %v", frame.Camera.Position, dir)
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	state.cubes = nil
	state.ammo = nil
	state.sphereID, state.cubeID, state.ammoID = metadata.InvalidMeshID, metadata.InvalidMeshID, metadata.InvalidMeshID
	return nil
}
