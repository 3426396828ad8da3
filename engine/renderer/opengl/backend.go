package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

// Backend draws the arena's regions with OpenGL 4.6. All methods must be
// called from the goroutine that owns the GL context.
type Backend struct {
	logger core.Logger

	shader  *metadata.ShaderSource
	texture *metadata.ImageData

	vao            uint32
	vertexBuffer   uint32
	indexBuffer    uint32
	instanceBuffer uint32
	regionSize     uint32

	program    uint32
	projViewLc int32
	textureLc  int32
	textureID  uint32

	width, height int32
	initialized   bool
}

// New builds a backend that compiles shader and uploads texture once the
// buffers are created. The GL context must be current.
func New(shader *metadata.ShaderSource, texture *metadata.ImageData, logger core.Logger) (*Backend, error) {
	if shader == nil {
		return nil, fmt.Errorf("func New - shader source is required")
	}
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	b := &Backend{
		logger:  core.OrNop(logger),
		shader:  shader,
		texture: texture,
	}
	b.logger.Infof("OpenGL version %s", gl.GoStr(gl.GetString(gl.VERSION)))
	return b, nil
}

func (b *Backend) CreateBuffers(regionSize uint32, vertexLayout, instanceLayout metadata.BufferLayout) error {
	if b.initialized {
		return fmt.Errorf("draw buffers already created")
	}
	b.regionSize = regionSize

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	b.vertexBuffer = newBuffer(gl.ARRAY_BUFFER, regionSize)
	declareLayout(vertexLayout)

	b.instanceBuffer = newBuffer(gl.ARRAY_BUFFER, regionSize)
	declareLayout(instanceLayout)

	// The element buffer binding is VAO state.
	b.indexBuffer = newBuffer(gl.ELEMENT_ARRAY_BUFFER, regionSize)

	gl.BindVertexArray(0)

	program, err := buildProgram(b.shader.Vertex, b.shader.Fragment)
	if err != nil {
		return fmt.Errorf("shader %s: %w", b.shader.Name, err)
	}
	b.program = program
	b.projViewLc = gl.GetUniformLocation(program, gl.Str("proj_view\x00"))
	b.textureLc = gl.GetUniformLocation(program, gl.Str("albedo\x00"))

	if b.texture != nil {
		b.textureID = uploadTexture(b.texture)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	gl.ClearColor(0.1, 0.1, 0.12, 1)

	if err := glError("CreateBuffers"); err != nil {
		return err
	}
	b.initialized = true
	return nil
}

func (b *Backend) WriteVertices(offset uint32, data []byte) error {
	return b.write(b.vertexBuffer, offset, data)
}

func (b *Backend) WriteIndices(offset uint32, data []byte) error {
	return b.write(b.indexBuffer, offset, data)
}

func (b *Backend) WriteInstances(offset uint32, data []byte) error {
	return b.write(b.instanceBuffer, offset, data)
}

// Resize sets the viewport. Called from the window's framebuffer callback.
func (b *Backend) Resize(width, height int) {
	b.width, b.height = int32(width), int32(height)
}

func (b *Backend) BeginFrame(projView mgl32.Mat4) error {
	if !b.initialized {
		return fmt.Errorf("BeginFrame before CreateBuffers")
	}
	if b.width > 0 && b.height > 0 {
		gl.Viewport(0, 0, b.width, b.height)
	}
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(b.program)
	gl.UniformMatrix4fv(b.projViewLc, 1, false, &projView[0])
	if b.textureID != 0 {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, b.textureID)
		gl.Uniform1i(b.textureLc, 0)
	}
	gl.BindVertexArray(b.vao)
	return nil
}

func (b *Backend) DrawInstanced(e metadata.DrawEntry) {
	gl.DrawElementsInstancedBaseVertexBaseInstance(
		gl.TRIANGLES,
		int32(e.IndexCount),
		gl.UNSIGNED_INT,
		gl.PtrOffset(int(e.IndexByteOffset)),
		int32(e.InstanceCount),
		int32(e.BaseVertex),
		e.BaseInstance,
	)
}

func (b *Backend) EndFrame() error {
	gl.BindVertexArray(0)
	return glError("EndFrame")
}

func (b *Backend) Shutdown() error {
	if !b.initialized {
		return nil
	}
	buffers := []uint32{b.vertexBuffer, b.indexBuffer, b.instanceBuffer}
	gl.DeleteBuffers(int32(len(buffers)), &buffers[0])
	gl.DeleteVertexArrays(1, &b.vao)
	if b.textureID != 0 {
		gl.DeleteTextures(1, &b.textureID)
	}
	gl.DeleteProgram(b.program)
	b.initialized = false
	return nil
}

func (b *Backend) write(buffer uint32, offset uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if uint64(offset)+uint64(len(data)) > uint64(b.regionSize) {
		return fmt.Errorf("write of %d bytes at %d past buffer size %d", len(data), offset, b.regionSize)
	}
	// DSA: the element buffer binding is VAO state and must not be touched here.
	gl.NamedBufferSubData(buffer, int(offset), len(data), gl.Ptr(data))
	return glError("NamedBufferSubData")
}

func newBuffer(target uint32, size uint32) uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(target, id)
	gl.BufferData(target, int(size), nil, gl.DYNAMIC_DRAW)
	return id
}

// declareLayout points the layout's attributes at the buffer bound to
// ARRAY_BUFFER.
func declareLayout(layout metadata.BufferLayout) {
	for _, a := range layout.Attributes {
		gl.EnableVertexAttribArray(a.Location)
		gl.VertexAttribPointerWithOffset(a.Location, a.Components, gl.FLOAT, false, int32(layout.Stride), uintptr(a.Offset))
		if layout.PerInstance {
			gl.VertexAttribDivisor(a.Location, 1)
		}
	}
}

func glError(where string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", where, code)
	}
	return nil
}
