package systems

import (
	"fmt"
	"io"
	"sync"

	"github.com/spaghettifunk/instanced/engine/assets"
	"github.com/spaghettifunk/instanced/engine/assets/loaders"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

const (
	DefaultMaxMeshCount  uint32 = 16
	DefaultMaxPathLength uint32 = 64
)

type MeshCacheConfig struct {
	// Number of mesh slots. Never grows at runtime.
	MaxMeshCount uint32 `toml:"max_mesh_count"`
	// Size of the path buffer, terminator included: paths must be shorter.
	MaxPathLength uint32 `toml:"max_path_length"`
}

func DefaultMeshCacheConfig() MeshCacheConfig {
	return MeshCacheConfig{
		MaxMeshCount:  DefaultMaxMeshCount,
		MaxPathLength: DefaultMaxPathLength,
	}
}

// MeshCache deduplicates mesh assets by path and hands out stable ids. It only
// keeps metadata: vertex and index data are read from disk on demand by
// LoadMeshData and owned by the caller.
type MeshCache struct {
	config MeshCacheConfig
	source assets.Source
	logger core.Logger

	mu          sync.RWMutex
	records     []metadata.MeshRecord
	byPath      map[string]int
	byID        map[uint32]int
	totalCached uint32
}

func NewMeshCache(config MeshCacheConfig, source assets.Source, logger core.Logger) (*MeshCache, error) {
	if config.MaxMeshCount == 0 {
		return nil, fmt.Errorf("func NewMeshCache - config.MaxMeshCount must be > 0")
	}
	if config.MaxPathLength == 0 {
		return nil, fmt.Errorf("func NewMeshCache - config.MaxPathLength must be > 0")
	}
	if source == nil {
		source = assets.DiskSource{}
	}
	return &MeshCache{
		config:  config,
		source:  source,
		logger:  core.OrNop(logger),
		records: make([]metadata.MeshRecord, 0, config.MaxMeshCount),
		byPath:  make(map[string]int, config.MaxMeshCount),
		byID:    make(map[uint32]int, config.MaxMeshCount),
	}, nil
}

// LoadMesh caches the mesh at path and returns its id. A path seen before
// returns the id it got the first time without touching disk. Otherwise only
// the header is read to prove the asset exists.
func (mc *MeshCache) LoadMesh(path string) (uint32, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if slot, ok := mc.byPath[path]; ok {
		mc.logger.Debugf("%s already cached!", path)
		return mc.records[slot].ID, nil
	}

	if path == "" {
		return metadata.InvalidMeshID, fmt.Errorf("%w: empty path", core.ErrAssetNotFound)
	}
	if uint32(len(path)) >= mc.config.MaxPathLength {
		err := fmt.Errorf("%w: %q is %d bytes, max %d", core.ErrPathTooLong, path, len(path), mc.config.MaxPathLength-1)
		mc.logger.Errorf("%s", err)
		return metadata.InvalidMeshID, err
	}
	if uint32(len(mc.records)) >= mc.config.MaxMeshCount {
		err := fmt.Errorf("%w: cannot cache %s, all %d mesh slots in use", core.ErrCapacity, path, mc.config.MaxMeshCount)
		mc.logger.Errorf("%s", err)
		return metadata.InvalidMeshID, err
	}

	vertexCount, indexCount, err := mc.readHeader(path)
	if err != nil {
		mc.logger.Errorf("could not open model file: %s (%s)", path, err)
		return metadata.InvalidMeshID, err
	}

	mc.totalCached++
	record := metadata.MeshRecord{
		ID:          mc.totalCached,
		SourcePath:  path,
		VertexCount: vertexCount,
		IndexCount:  indexCount,
		Cached:      true,
	}
	slot := len(mc.records)
	mc.records = append(mc.records, record)
	mc.byPath[path] = slot
	mc.byID[record.ID] = slot

	mc.logger.Debugf("Cached mesh id[%d] path[%s] vertices[%d] indices[%d]", record.ID, path, vertexCount, indexCount)
	return record.ID, nil
}

// LoadMeshData reads the full payload of a cached mesh. An unknown id yields
// an empty payload and no error; callers check Empty.
func (mc *MeshCache) LoadMeshData(meshID uint32) (*metadata.MeshPayload, error) {
	record, ok := mc.Record(meshID)
	if !ok {
		return &metadata.MeshPayload{}, nil
	}

	f, err := mc.open(record.SourcePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	payload, err := loaders.DecodeMesh(f)
	if err != nil {
		return nil, fmt.Errorf("loading mesh id[%d] %s: %w", meshID, record.SourcePath, err)
	}
	if payload.VertexCount != record.VertexCount || payload.IndexCount != record.IndexCount {
		mc.logger.Warnf("mesh %s changed since it was cached: %d/%d now %d/%d",
			record.SourcePath, record.VertexCount, record.IndexCount, payload.VertexCount, payload.IndexCount)
	}
	return payload, nil
}

// LoadMeshDataAsync runs LoadMeshData on the job system. The returned channel
// receives exactly one result and is then closed. The payload must still be
// added to the arena from the frame goroutine.
func (mc *MeshCache) LoadMeshDataAsync(js *JobSystem, meshID uint32) (<-chan metadata.MeshLoadResult, error) {
	out := make(chan metadata.MeshLoadResult, 1)
	_, err := js.Submit(metadata.JobTask{
		OnStart: func() (interface{}, error) {
			return mc.LoadMeshData(meshID)
		},
		OnComplete: func(jobID string, result interface{}) {
			out <- metadata.MeshLoadResult{JobID: jobID, MeshID: meshID, Payload: result.(*metadata.MeshPayload)}
			close(out)
		},
		OnFailure: func(jobID string, err error) {
			out <- metadata.MeshLoadResult{JobID: jobID, MeshID: meshID, Err: err}
			close(out)
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (mc *MeshCache) Record(meshID uint32) (metadata.MeshRecord, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	slot, ok := mc.byID[meshID]
	if !ok {
		return metadata.MeshRecord{}, false
	}
	return mc.records[slot], true
}

// Lookup returns the id of an already cached path.
func (mc *MeshCache) Lookup(path string) (uint32, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	slot, ok := mc.byPath[path]
	if !ok {
		return metadata.InvalidMeshID, false
	}
	return mc.records[slot].ID, true
}

// Records returns a copy of every record in cache order.
func (mc *MeshCache) Records() []metadata.MeshRecord {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make([]metadata.MeshRecord, len(mc.records))
	copy(out, mc.records)
	return out
}

func (mc *MeshCache) Count() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.records)
}

func (mc *MeshCache) Shutdown() error {
	return nil
}

func (mc *MeshCache) readHeader(path string) (uint32, uint32, error) {
	f, err := mc.open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	vertexCount, indexCount, err := loaders.ReadMeshHeader(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %w", core.ErrAssetNotFound, path, err)
	}
	return vertexCount, indexCount, nil
}

func (mc *MeshCache) open(path string) (io.ReadCloser, error) {
	f, err := mc.source.Open(path)
	if err != nil {
		// Missing, unreadable or a directory: the asset cannot be used either way.
		return nil, fmt.Errorf("%w: %s: %v", core.ErrAssetNotFound, path, err)
	}
	return f, nil
}
