package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

// Renderer is the geometry pass: it owns the arena, builds the draw list each
// frame and issues one instanced draw per listed mesh on the backend.
type Renderer struct {
	backend  Backend
	arena    *GeometryArena
	drawList *DrawListBuilder
	logger   core.Logger
}

func New(config ArenaConfig, backend Backend, logger core.Logger) (*Renderer, error) {
	if backend == nil {
		backend = NopBackend{}
	}
	arena, err := NewGeometryArena(config, backend, logger)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		backend:  backend,
		arena:    arena,
		drawList: NewDrawListBuilder(),
		logger:   core.OrNop(logger),
	}, nil
}

func (r *Renderer) Arena() *GeometryArena {
	return r.arena
}

func (r *Renderer) AddGeometry(meshID uint32, payload *metadata.MeshPayload) (metadata.GeometryLayout, error) {
	return r.arena.AddGeometry(meshID, payload)
}

// BeginFrame opens the instance submission window for a new frame.
func (r *Renderer) BeginFrame() {
	r.arena.BeginFrame()
}

func (r *Renderer) AddInstances(meshID uint32, transforms []mgl32.Mat4) (metadata.InstanceBinding, error) {
	return r.arena.AddInstances(meshID, transforms)
}

// DrawFrame builds this frame's draw list and issues it. The returned slice is
// reused by the next call.
func (r *Renderer) DrawFrame(projView mgl32.Mat4) ([]metadata.DrawEntry, error) {
	entries := r.drawList.Update(r.arena)

	if err := r.backend.BeginFrame(projView); err != nil {
		return nil, fmt.Errorf("renderer begin frame: %w", err)
	}
	for _, e := range entries {
		r.backend.DrawInstanced(e)
	}
	if err := r.backend.EndFrame(); err != nil {
		r.logger.Errorf("RendererEndFrame failed: %s", err)
		return nil, err
	}
	return entries, nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}
