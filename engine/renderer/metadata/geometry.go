package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief Interleaved vertex record as laid out in the vertex region:
 * vec3 position, vec3 normal, vec2 uv.
 */
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

const (
	// VertexStride is the size of one interleaved Vertex in bytes.
	VertexStride uint32 = uint32(unsafe.Sizeof(Vertex{}))
	// IndexSize is the size of one uint32 index.
	IndexSize uint32 = 4
	// InstanceStride is the size of one per-instance 4x4 float matrix.
	InstanceStride uint32 = uint32(unsafe.Sizeof(mgl32.Mat4{}))

	// First attribute location used by the per-instance matrix columns.
	InstanceAttribBase uint32 = 3
)

/** @brief A single float vertex attribute inside a buffer record. */
type VertexAttribute struct {
	Location   uint32
	Components int32
	Offset     uint32
}

/**
 * @brief Attribute layout of a buffer: its stride, its attributes and whether
 * the attributes advance per instance instead of per vertex.
 */
type BufferLayout struct {
	Stride      uint32
	Attributes  []VertexAttribute
	PerInstance bool
}

// MeshVertexLayout is position(0), normal(1), uv(2).
func MeshVertexLayout() BufferLayout {
	return BufferLayout{
		Stride: VertexStride,
		Attributes: []VertexAttribute{
			{Location: 0, Components: 3, Offset: 0},
			{Location: 1, Components: 3, Offset: 12},
			{Location: 2, Components: 2, Offset: 24},
		},
	}
}

// InstanceLayout spreads the matrix over four vec4 attributes starting at
// InstanceAttribBase, each advancing once per instance.
func InstanceLayout() BufferLayout {
	attrs := make([]VertexAttribute, 4)
	for i := uint32(0); i < 4; i++ {
		attrs[i] = VertexAttribute{Location: InstanceAttribBase + i, Components: 4, Offset: i * 16}
	}
	return BufferLayout{
		Stride:      InstanceStride,
		Attributes:  attrs,
		PerInstance: true,
	}
}

/**
 * @brief Where a mesh's geometry lives inside the shared buffers.
 * Assigned once by the arena, never moved.
 */
type GeometryLayout struct {
	MeshID      uint32
	VertexCount uint32
	IndexCount  uint32
	/** @brief In vertices: vertex cursor / VertexStride at the time of the add. */
	BaseVertex uint32
	/** @brief In bytes into the index region. */
	IndexByteOffset uint32
}

/** @brief A mesh's instance block for the current frame. */
type InstanceBinding struct {
	MeshID        uint32
	InstanceCount uint32
	/** @brief In instances into the instance region. */
	BaseInstance uint32
}

/** @brief Fully resolved parameters of one instanced indexed draw call. */
type DrawEntry struct {
	MeshID          uint32
	IndexCount      uint32
	IndexByteOffset uint32
	BaseVertex      uint32
	InstanceCount   uint32
	BaseInstance    uint32
}
