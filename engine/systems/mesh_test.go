package systems

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/assets"
	"github.com/spaghettifunk/instanced/engine/assets/loaders"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

// countingSource wraps a DiskSource and counts every Open.
type countingSource struct {
	assets.DiskSource
	mu    sync.Mutex
	opens map[string]int
}

func newCountingSource(root string) *countingSource {
	return &countingSource{DiskSource: assets.DiskSource{Root: root}, opens: make(map[string]int)}
}

func (cs *countingSource) Open(path string) (io.ReadCloser, error) {
	cs.mu.Lock()
	cs.opens[path]++
	cs.mu.Unlock()
	return cs.DiskSource.Open(path)
}

func (cs *countingSource) total() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	n := 0
	for _, c := range cs.opens {
		n += c
	}
	return n
}

func writeMesh(t *testing.T, dir, name string, p *metadata.MeshPayload) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := loaders.EncodeMesh(f, p); err != nil {
		t.Fatal(err)
	}
	return name
}

func newTestCache(t *testing.T, config MeshCacheConfig) (*MeshCache, *countingSource, string) {
	t.Helper()
	dir := t.TempDir()
	src := newCountingSource(dir)
	mc, err := NewMeshCache(config, src, core.NopLogger())
	if err != nil {
		t.Fatalf("NewMeshCache() error = %v", err)
	}
	return mc, src, dir
}

func TestNewMeshCacheRejectsZeroConfig(t *testing.T) {
	if _, err := NewMeshCache(MeshCacheConfig{MaxPathLength: 64}, nil, nil); err == nil {
		t.Error("NewMeshCache(MaxMeshCount 0) error = nil")
	}
	if _, err := NewMeshCache(MeshCacheConfig{MaxMeshCount: 16}, nil, nil); err == nil {
		t.Error("NewMeshCache(MaxPathLength 0) error = nil")
	}
}

func TestLoadMeshIdempotent(t *testing.T) {
	mc, src, dir := newTestCache(t, DefaultMeshCacheConfig())
	cube := writeMesh(t, dir, "cube.mesh", loaders.GenerateBox(mgl32.Vec3{1, 1, 1}))

	first, err := mc.LoadMesh(cube)
	if err != nil {
		t.Fatalf("LoadMesh() error = %v", err)
	}
	opens := src.total()

	for i := 0; i < 5; i++ {
		id, err := mc.LoadMesh(cube)
		if err != nil {
			t.Fatalf("LoadMesh() repeat %d error = %v", i, err)
		}
		if id != first {
			t.Errorf("LoadMesh() repeat %d = %d, want %d", i, id, first)
		}
	}
	if src.total() != opens {
		t.Errorf("repeated LoadMesh opened the file %d more times", src.total()-opens)
	}
	if mc.Count() != 1 {
		t.Errorf("Count() = %d, want 1", mc.Count())
	}
}

func TestLoadMeshAssignsSequentialIDs(t *testing.T) {
	mc, _, dir := newTestCache(t, DefaultMeshCacheConfig())

	var names []string
	for _, n := range []string{"a.mesh", "b.mesh", "c.mesh"} {
		names = append(names, writeMesh(t, dir, n, loaders.GenerateBox(mgl32.Vec3{1, 1, 1})))
	}

	seen := map[uint32]string{}
	for i, name := range names {
		id, err := mc.LoadMesh(name)
		if err != nil {
			t.Fatalf("LoadMesh(%s) error = %v", name, err)
		}
		if id != uint32(i+1) {
			t.Errorf("LoadMesh(%s) = %d, want %d", name, id, i+1)
		}
		if prev, dup := seen[id]; dup {
			t.Errorf("id %d given to both %s and %s", id, prev, name)
		}
		seen[id] = name
	}

	for _, r := range mc.Records() {
		if !r.Cached || r.SourcePath != seen[r.ID] {
			t.Errorf("record %+v does not match %s", r, seen[r.ID])
		}
		if r.VertexCount != 8 || r.IndexCount != 36 {
			t.Errorf("record %d counts = %d/%d, want 8/36", r.ID, r.VertexCount, r.IndexCount)
		}
		if id, ok := mc.Lookup(r.SourcePath); !ok || id != r.ID {
			t.Errorf("Lookup(%s) = %d, %v", r.SourcePath, id, ok)
		}
	}
}

func TestLoadMeshPathTooLong(t *testing.T) {
	mc, src, dir := newTestCache(t, MeshCacheConfig{MaxMeshCount: 4, MaxPathLength: 16})

	fits := writeMesh(t, dir, strings.Repeat("a", 10)+".mesh", loaders.GenerateBox(mgl32.Vec3{1, 1, 1})) // 15 bytes
	tooLong := strings.Repeat("b", 11) + ".mesh"                                                           // 16 bytes

	if _, err := mc.LoadMesh(fits); err != nil {
		t.Fatalf("LoadMesh(15 bytes) error = %v", err)
	}
	opens := src.total()
	if _, err := mc.LoadMesh(tooLong); !errors.Is(err, core.ErrPathTooLong) {
		t.Fatalf("LoadMesh(16 bytes) error = %v, want ErrPathTooLong", err)
	}
	if src.total() != opens {
		t.Error("a rejected path was opened")
	}
	if mc.Count() != 1 {
		t.Errorf("Count() = %d, want 1", mc.Count())
	}
}

func TestLoadMeshCapacity(t *testing.T) {
	mc, src, dir := newTestCache(t, MeshCacheConfig{MaxMeshCount: 2, MaxPathLength: 64})
	a := writeMesh(t, dir, "a.mesh", loaders.GenerateBox(mgl32.Vec3{1, 1, 1}))
	b := writeMesh(t, dir, "b.mesh", loaders.GenerateBox(mgl32.Vec3{1, 1, 1}))
	c := writeMesh(t, dir, "c.mesh", loaders.GenerateBox(mgl32.Vec3{1, 1, 1}))

	for _, p := range []string{a, b} {
		if _, err := mc.LoadMesh(p); err != nil {
			t.Fatalf("LoadMesh(%s) error = %v", p, err)
		}
	}
	opens := src.total()
	if _, err := mc.LoadMesh(c); !errors.Is(err, core.ErrCapacity) {
		t.Fatalf("LoadMesh(third) error = %v, want ErrCapacity", err)
	}
	if src.total() != opens {
		t.Error("a mesh was opened while the cache was full")
	}
	// cached paths are still served when full
	if id, err := mc.LoadMesh(b); err != nil || id != 2 {
		t.Errorf("LoadMesh(cached) = %d, %v, want 2, nil", id, err)
	}
}

func TestLoadMeshNotFound(t *testing.T) {
	mc, _, dir := newTestCache(t, DefaultMeshCacheConfig())
	if err := os.WriteFile(filepath.Join(dir, "short.mesh"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.mesh"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"missing.mesh", "", "short.mesh", "folder.mesh"} {
		if _, err := mc.LoadMesh(p); !errors.Is(err, core.ErrAssetNotFound) {
			t.Errorf("LoadMesh(%q) error = %v, want ErrAssetNotFound", p, err)
		}
	}
	if mc.Count() != 0 {
		t.Errorf("Count() = %d, want 0", mc.Count())
	}

	// a failure does not burn an id
	ok := writeMesh(t, dir, "ok.mesh", loaders.GenerateBox(mgl32.Vec3{1, 1, 1}))
	if id, err := mc.LoadMesh(ok); err != nil || id != 1 {
		t.Errorf("LoadMesh() after failures = %d, %v, want 1, nil", id, err)
	}
}

func TestLoadMeshData(t *testing.T) {
	mc, _, dir := newTestCache(t, DefaultMeshCacheConfig())
	sphere := loaders.GenerateIcosphere(1, 1)
	path := writeMesh(t, dir, "sphere.mesh", sphere)

	id, err := mc.LoadMesh(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := mc.LoadMeshData(id)
	if err != nil {
		t.Fatalf("LoadMeshData() error = %v", err)
	}
	if p.VertexCount != 42 || p.IndexCount != 240 || !p.Valid() {
		t.Fatalf("LoadMeshData() = %d/%d valid %v", p.VertexCount, p.IndexCount, p.Valid())
	}
	for i := range sphere.Indices {
		if p.Indices[i] != sphere.Indices[i] {
			t.Fatalf("Indices[%d] = %d, want %d", i, p.Indices[i], sphere.Indices[i])
		}
	}

	p.Release()
	if !p.Empty() || p.Positions != nil {
		t.Error("Release() left data behind")
	}
}

func TestLoadMeshDataUnknownID(t *testing.T) {
	mc, src, _ := newTestCache(t, DefaultMeshCacheConfig())

	for _, id := range []uint32{metadata.InvalidMeshID, 1, 999} {
		p, err := mc.LoadMeshData(id)
		if err != nil {
			t.Errorf("LoadMeshData(%d) error = %v, want nil", id, err)
		}
		if p == nil || !p.Empty() {
			t.Errorf("LoadMeshData(%d) = %+v, want empty payload", id, p)
		}
	}
	if src.total() != 0 {
		t.Errorf("unknown ids opened %d files", src.total())
	}
}

func TestLoadMeshDataTruncatedBody(t *testing.T) {
	mc, _, dir := newTestCache(t, DefaultMeshCacheConfig())
	path := writeMesh(t, dir, "cube.mesh", loaders.GenerateBox(mgl32.Vec3{1, 1, 1}))
	id, err := mc.LoadMesh(path)
	if err != nil {
		t.Fatal(err)
	}

	full := filepath.Join(dir, path)
	if err := os.Truncate(full, loaders.EncodedMeshSize(8, 36)-2); err != nil {
		t.Fatal(err)
	}
	if _, err := mc.LoadMeshData(id); !errors.Is(err, core.ErrMalformedAsset) {
		t.Errorf("LoadMeshData(truncated) error = %v, want ErrMalformedAsset", err)
	}

	if err := os.Remove(full); err != nil {
		t.Fatal(err)
	}
	if _, err := mc.LoadMeshData(id); !errors.Is(err, core.ErrAssetNotFound) {
		t.Errorf("LoadMeshData(removed) error = %v, want ErrAssetNotFound", err)
	}
}

func TestLoadMeshDataAsync(t *testing.T) {
	mc, _, dir := newTestCache(t, DefaultMeshCacheConfig())
	js, err := NewJobSystem(2, 4, core.NopLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { js.Shutdown() })

	path := writeMesh(t, dir, "cube.mesh", loaders.GenerateCube(mgl32.Vec3{1, 1, 1}))
	id, err := mc.LoadMesh(path)
	if err != nil {
		t.Fatal(err)
	}

	ch, err := mc.LoadMeshDataAsync(js, id)
	if err != nil {
		t.Fatalf("LoadMeshDataAsync() error = %v", err)
	}
	res := <-ch
	if res.Err != nil {
		t.Fatalf("result error = %v", res.Err)
	}
	if res.MeshID != id || res.JobID == "" || res.Payload.VertexCount != 24 {
		t.Errorf("result = %+v", res)
	}
	if _, open := <-ch; open {
		t.Error("result channel not closed")
	}

	if err := os.Remove(filepath.Join(dir, path)); err != nil {
		t.Fatal(err)
	}
	ch, err = mc.LoadMeshDataAsync(js, id)
	if err != nil {
		t.Fatal(err)
	}
	if res := <-ch; !errors.Is(res.Err, core.ErrAssetNotFound) {
		t.Errorf("result error = %v, want ErrAssetNotFound", res.Err)
	}
}
