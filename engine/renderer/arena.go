package renderer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

const DefaultRegionSize uint32 = 256 * 1024

type ArenaConfig struct {
	// Size in bytes of each of the vertex, index and instance regions.
	RegionSize uint32 `toml:"region_size"`
}

func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{RegionSize: DefaultRegionSize}
}

// GeometryArena packs mesh geometry and per-frame instance transforms into
// three fixed-size regions (vertex, index, instance). Geometry is appended
// once per mesh and never moves; instances are appended once per mesh per
// frame and reset by BeginFrame.
//
// The arena is not safe for concurrent use; it belongs to the frame goroutine.
type GeometryArena struct {
	regionSize uint32
	backend    BufferBackend
	logger     core.Logger

	// CPU copies of what was pushed to the backend.
	vertexRegion   []byte
	indexRegion    []byte
	instanceRegion []byte

	vertexCursor uint32
	indexCursor  uint32

	// In insertion order.
	layouts     []metadata.GeometryLayout
	layoutIndex map[uint32]int

	// Current frame only, in submission order.
	bindings      []metadata.InstanceBinding
	bindingIndex  map[uint32]int
	instanceCount uint32

	frame     uint64
	frameOpen bool
}

// NewGeometryArena allocates the three regions and declares the vertex and
// instance layouts to the backend.
func NewGeometryArena(config ArenaConfig, backend BufferBackend, logger core.Logger) (*GeometryArena, error) {
	if config.RegionSize == 0 {
		return nil, fmt.Errorf("func NewGeometryArena - config.RegionSize must be > 0")
	}
	if backend == nil {
		backend = NopBackend{}
	}
	ga := &GeometryArena{
		regionSize:     config.RegionSize,
		backend:        backend,
		logger:         core.OrNop(logger),
		vertexRegion:   make([]byte, config.RegionSize),
		indexRegion:    make([]byte, config.RegionSize),
		instanceRegion: make([]byte, config.RegionSize),
		layoutIndex:    make(map[uint32]int),
		bindingIndex:   make(map[uint32]int),
	}

	if err := backend.CreateBuffers(config.RegionSize, metadata.MeshVertexLayout(), metadata.InstanceLayout()); err != nil {
		return nil, fmt.Errorf("creating draw buffers: %w", err)
	}

	ga.logger.Infof("Init Draw Buffer | Size : [%d], [%d] bytes total", config.RegionSize, uint64(config.RegionSize)*3)
	return ga, nil
}

// AddGeometry interleaves the payload's vertices, appends them and the indices
// to their regions and records the mesh's layout. Nothing is written when an
// error is returned. The payload can be released afterwards.
func (ga *GeometryArena) AddGeometry(meshID uint32, payload *metadata.MeshPayload) (metadata.GeometryLayout, error) {
	if meshID == metadata.InvalidMeshID {
		return metadata.GeometryLayout{}, core.ErrInvalidMesh
	}
	if _, exists := ga.layoutIndex[meshID]; exists {
		return metadata.GeometryLayout{}, fmt.Errorf("%w: mesh id[%d]", core.ErrDuplicateMesh, meshID)
	}
	if err := validatePayload(payload); err != nil {
		return metadata.GeometryLayout{}, fmt.Errorf("mesh id[%d]: %w", meshID, err)
	}

	vertexSize := uint64(payload.VertexCount) * uint64(metadata.VertexStride)
	indexSize := uint64(payload.IndexCount) * uint64(metadata.IndexSize)

	if err := ga.checkFits(core.RegionVertex, ga.vertexCursor, vertexSize); err != nil {
		ga.logger.Errorf("Geom VBO size exceeded! - %d", uint64(ga.vertexCursor)+vertexSize)
		return metadata.GeometryLayout{}, err
	}
	if err := ga.checkFits(core.RegionIndex, ga.indexCursor, indexSize); err != nil {
		ga.logger.Errorf("Index VBO size exceeded! - %d", uint64(ga.indexCursor)+indexSize)
		return metadata.GeometryLayout{}, err
	}

	vertexBytes := ga.vertexRegion[ga.vertexCursor : uint64(ga.vertexCursor)+vertexSize]
	for i := uint32(0); i < payload.VertexCount; i++ {
		rec := vertexBytes[i*metadata.VertexStride:]
		putVec3(rec[0:], payload.Positions[i])
		putVec3(rec[12:], payload.Normals[i])
		putFloat(rec[24:], payload.UVs[i][0])
		putFloat(rec[28:], payload.UVs[i][1])
	}
	indexBytes := ga.indexRegion[ga.indexCursor : uint64(ga.indexCursor)+indexSize]
	for i, idx := range payload.Indices {
		binary.LittleEndian.PutUint32(indexBytes[i*4:], idx)
	}

	if err := ga.backend.WriteVertices(ga.vertexCursor, vertexBytes); err != nil {
		return metadata.GeometryLayout{}, fmt.Errorf("uploading vertices of mesh id[%d]: %w", meshID, err)
	}
	if err := ga.backend.WriteIndices(ga.indexCursor, indexBytes); err != nil {
		return metadata.GeometryLayout{}, fmt.Errorf("uploading indices of mesh id[%d]: %w", meshID, err)
	}

	layout := metadata.GeometryLayout{
		MeshID:          meshID,
		VertexCount:     payload.VertexCount,
		IndexCount:      payload.IndexCount,
		BaseVertex:      ga.vertexCursor / metadata.VertexStride,
		IndexByteOffset: ga.indexCursor,
	}
	ga.layoutIndex[meshID] = len(ga.layouts)
	ga.layouts = append(ga.layouts, layout)

	ga.vertexCursor += uint32(vertexSize)
	ga.indexCursor += uint32(indexSize)

	return layout, nil
}

// BeginFrame opens a new submission window: the running instance count goes
// back to zero and every binding of the previous frame is dropped.
func (ga *GeometryArena) BeginFrame() {
	ga.instanceCount = 0
	ga.bindings = ga.bindings[:0]
	clear(ga.bindingIndex)
	ga.frame++
	ga.frameOpen = true
}

// AddInstances appends the mesh's transforms for this frame right after the
// ones submitted before it. A mesh may be submitted once per frame.
func (ga *GeometryArena) AddInstances(meshID uint32, transforms []mgl32.Mat4) (metadata.InstanceBinding, error) {
	if !ga.frameOpen {
		return metadata.InstanceBinding{}, core.ErrFrameNotStarted
	}
	if _, ok := ga.layoutIndex[meshID]; !ok {
		ga.logger.Errorf("Instances do not match a stored mesh! id[%d]", meshID)
		return metadata.InstanceBinding{}, fmt.Errorf("%w: id[%d]", core.ErrUnknownMesh, meshID)
	}
	if _, ok := ga.bindingIndex[meshID]; ok {
		return metadata.InstanceBinding{}, fmt.Errorf("%w: id[%d] frame[%d]", core.ErrInstancesAlreadySet, meshID, ga.frame)
	}

	count := uint64(len(transforms))
	instanceSize := count * uint64(metadata.InstanceStride)
	instanceOffset := uint64(ga.instanceCount) * uint64(metadata.InstanceStride)
	if err := ga.checkFits(core.RegionInstance, uint32(instanceOffset), instanceSize); err != nil {
		return metadata.InstanceBinding{}, err
	}

	instanceBytes := ga.instanceRegion[instanceOffset : instanceOffset+instanceSize]
	for i, m := range transforms {
		rec := instanceBytes[i*int(metadata.InstanceStride):]
		for j, v := range m {
			putFloat(rec[j*4:], v)
		}
	}
	if count > 0 {
		if err := ga.backend.WriteInstances(uint32(instanceOffset), instanceBytes); err != nil {
			return metadata.InstanceBinding{}, fmt.Errorf("uploading instances of mesh id[%d]: %w", meshID, err)
		}
	}

	binding := metadata.InstanceBinding{
		MeshID:        meshID,
		InstanceCount: uint32(count),
		BaseInstance:  ga.instanceCount,
	}
	ga.bindingIndex[meshID] = len(ga.bindings)
	ga.bindings = append(ga.bindings, binding)
	ga.instanceCount += uint32(count)

	return binding, nil
}

func (ga *GeometryArena) LayoutCount() int {
	return len(ga.layouts)
}

// LayoutAt returns the i-th layout in insertion order.
func (ga *GeometryArena) LayoutAt(i int) metadata.GeometryLayout {
	return ga.layouts[i]
}

// Layouts returns a copy of every layout in insertion order.
func (ga *GeometryArena) Layouts() []metadata.GeometryLayout {
	out := make([]metadata.GeometryLayout, len(ga.layouts))
	copy(out, ga.layouts)
	return out
}

func (ga *GeometryArena) Layout(meshID uint32) (metadata.GeometryLayout, bool) {
	i, ok := ga.layoutIndex[meshID]
	if !ok {
		return metadata.GeometryLayout{}, false
	}
	return ga.layouts[i], true
}

// Binding returns the mesh's instance binding for the current frame.
func (ga *GeometryArena) Binding(meshID uint32) (metadata.InstanceBinding, bool) {
	i, ok := ga.bindingIndex[meshID]
	if !ok {
		return metadata.InstanceBinding{}, false
	}
	return ga.bindings[i], true
}

// Bindings returns a copy of this frame's bindings in submission order.
func (ga *GeometryArena) Bindings() []metadata.InstanceBinding {
	out := make([]metadata.InstanceBinding, len(ga.bindings))
	copy(out, ga.bindings)
	return out
}

// InstanceCount is the number of instances submitted so far this frame.
func (ga *GeometryArena) InstanceCount() uint32 {
	return ga.instanceCount
}

func (ga *GeometryArena) VertexCursor() uint32 {
	return ga.vertexCursor
}

func (ga *GeometryArena) IndexCursor() uint32 {
	return ga.indexCursor
}

func (ga *GeometryArena) Capacity() uint32 {
	return ga.regionSize
}

// Frame is the number of BeginFrame calls so far.
func (ga *GeometryArena) Frame() uint64 {
	return ga.frame
}

// VertexBytes returns a copy of the used part of the vertex region.
func (ga *GeometryArena) VertexBytes() []byte {
	return append([]byte(nil), ga.vertexRegion[:ga.vertexCursor]...)
}

// IndexBytes returns a copy of the used part of the index region.
func (ga *GeometryArena) IndexBytes() []byte {
	return append([]byte(nil), ga.indexRegion[:ga.indexCursor]...)
}

// InstanceBytes returns a copy of this frame's part of the instance region.
func (ga *GeometryArena) InstanceBytes() []byte {
	return append([]byte(nil), ga.instanceRegion[:uint64(ga.instanceCount)*uint64(metadata.InstanceStride)]...)
}

func (ga *GeometryArena) checkFits(region core.Region, cursor uint32, size uint64) error {
	available := uint64(ga.regionSize) - uint64(cursor)
	if size > available {
		return &core.OverflowError{Region: region, Requested: size, Available: available}
	}
	return nil
}

func validatePayload(p *metadata.MeshPayload) error {
	if p.Empty() {
		return fmt.Errorf("%w: empty payload", core.ErrMalformedAsset)
	}
	if !p.Valid() {
		return fmt.Errorf("%w: attribute arrays do not match counts %d/%d", core.ErrMalformedAsset, p.VertexCount, p.IndexCount)
	}
	for i, idx := range p.Indices {
		if idx >= p.VertexCount {
			return fmt.Errorf("%w: index %d references vertex %d of %d", core.ErrMalformedAsset, i, idx, p.VertexCount)
		}
	}
	return nil
}

func putFloat(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func putVec3(b []byte, v mgl32.Vec3) {
	putFloat(b[0:], v[0])
	putFloat(b[4:], v[1])
	putFloat(b[8:], v[2])
}
