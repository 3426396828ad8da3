package metadata

import (
	"github.com/go-gl/mathgl/mgl32"
)

/** @brief Mesh id reserved as "no mesh". Valid ids start at 1. */
const InvalidMeshID uint32 = 0

/**
 * @brief Metadata the mesh cache keeps for every asset it has seen.
 * Vertex and index data are never retained here.
 */
type MeshRecord struct {
	/** @brief Stable, non-zero handle. */
	ID uint32
	/** @brief The path the mesh was loaded from. Unique across records. */
	SourcePath string
	/** @brief Vertex count read from the asset header at cache time. */
	VertexCount uint32
	/** @brief Index count read from the asset header at cache time. */
	IndexCount uint32
	Cached     bool
}

/**
 * @brief Raw vertex/index data of one mesh as read from disk.
 * Owned by the caller between load and Release.
 */
type MeshPayload struct {
	VertexCount uint32
	IndexCount  uint32
	Positions   []mgl32.Vec3
	Normals     []mgl32.Vec3
	UVs         []mgl32.Vec2
	Indices     []uint32
}

// Empty reports whether the payload carries no data, which is what loading an
// unknown mesh id yields.
func (p *MeshPayload) Empty() bool {
	return p == nil || (p.VertexCount == 0 && p.IndexCount == 0 && len(p.Positions) == 0 && len(p.Indices) == 0)
}

// Valid reports whether every attribute array matches the header counts.
func (p *MeshPayload) Valid() bool {
	if p == nil {
		return false
	}
	n := int(p.VertexCount)
	return len(p.Positions) == n && len(p.Normals) == n && len(p.UVs) == n && len(p.Indices) == int(p.IndexCount)
}

// Release drops the payload's arrays so they can be collected. The payload is
// empty afterwards.
func (p *MeshPayload) Release() {
	if p == nil {
		return
	}
	*p = MeshPayload{}
}

// Also used as result data from the mesh load job.
type MeshLoadResult struct {
	JobID   string
	MeshID  uint32
	Payload *MeshPayload
	Err     error
}
