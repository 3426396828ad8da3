package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

// BufferBackend receives the arena's region writes. Offsets are in bytes from
// the start of the region; data is only valid for the duration of the call.
type BufferBackend interface {
	CreateBuffers(regionSize uint32, vertexLayout, instanceLayout metadata.BufferLayout) error
	WriteVertices(offset uint32, data []byte) error
	WriteIndices(offset uint32, data []byte) error
	WriteInstances(offset uint32, data []byte) error
}

// Backend is the GPU side of the renderer. Shader and texture state are bound
// in BeginFrame, before any DrawInstanced call of that frame.
type Backend interface {
	BufferBackend
	BeginFrame(projView mgl32.Mat4) error
	DrawInstanced(entry metadata.DrawEntry)
	EndFrame() error
	Shutdown() error
}

// NopBackend accepts and discards everything. Used for headless runs.
type NopBackend struct{}

func (NopBackend) CreateBuffers(uint32, metadata.BufferLayout, metadata.BufferLayout) error {
	return nil
}
func (NopBackend) WriteVertices(uint32, []byte) error  { return nil }
func (NopBackend) WriteIndices(uint32, []byte) error   { return nil }
func (NopBackend) WriteInstances(uint32, []byte) error { return nil }
func (NopBackend) BeginFrame(mgl32.Mat4) error         { return nil }
func (NopBackend) DrawInstanced(metadata.DrawEntry)    {}
func (NopBackend) EndFrame() error                     { return nil }
func (NopBackend) Shutdown() error                     { return nil }
