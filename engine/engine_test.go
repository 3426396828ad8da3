package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/assets/loaders"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

func writeMesh(t *testing.T, path string, p *metadata.MeshPayload) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := loaders.EncodeMesh(f, p); err != nil {
		t.Fatal(err)
	}
}

func headlessConfig(t *testing.T) (*ApplicationConfig, string) {
	t.Helper()
	dir := t.TempDir()
	writeMesh(t, filepath.Join(dir, "cube.mesh"), loaders.GenerateBox(mgl32.Vec3{1, 1, 1}))
	writeMesh(t, filepath.Join(dir, "sphere.mesh"), loaders.GenerateIcosphere(1, 1))
	writeMesh(t, filepath.Join(dir, "ammo.mesh"), loaders.GenerateCube(mgl32.Vec3{0.2, 0.2, 0.6}))

	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.Log.Level = "error"
	cfg.Meshes.MaxPathLength = 512
	cfg.Assets.Root = dir
	cfg.Jobs.Workers = 1
	return cfg, dir
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	data := `
headless = true
max_frames = 10

[meshes]
max_mesh_count = 4

[renderer]
region_size = 1024

[log]
level = "warn"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.Headless || cfg.MaxFrames != 10 || cfg.Meshes.MaxMeshCount != 4 || cfg.Renderer.RegionSize != 1024 || cfg.Log.Level != "warn" {
		t.Errorf("LoadConfig() = %+v", cfg)
	}
	// untouched keys keep their defaults
	if cfg.Meshes.MaxPathLength != 64 || cfg.Assets.ShaderName != "geom" || cfg.Window.Width != 1920 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown key", "[renderer]\nregion_bytes = 4\n", "region_bytes"},
		{"zero meshes", "[meshes]\nmax_mesh_count = 0\n", "max_mesh_count"},
		{"tiny region", "[renderer]\nregion_size = 32\n", "region_size"},
		{"bad window", "[window]\nwidth = 0\n", "window size"},
		{"not toml", "this is = = not toml", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "engine.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("LoadConfig() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want ErrNotExist", err)
	}
}

func TestEngineHeadlessFrames(t *testing.T) {
	cfg, dir := headlessConfig(t)
	cfg.MaxFrames = 3

	var (
		cubeID, sphereID uint32
		updates          int
	)
	g := &Game{
		ApplicationConfig: cfg,
		FnInitialize: func(e *Engine) error {
			var err error
			if cubeID, err = e.AddMesh(filepath.Join(dir, "cube.mesh")); err != nil {
				return err
			}
			sphereID, err = e.AddMesh(filepath.Join(dir, "sphere.mesh"))
			return err
		},
		FnUpdate: func(frame *FrameContext) error {
			updates++
			if frame.Number != uint64(updates) {
				t.Errorf("frame.Number = %d, want %d", frame.Number, updates)
			}
			if _, err := frame.AddInstances(cubeID, []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4()}); err != nil {
				return err
			}
			_, err := frame.AddInstances(sphereID, []mgl32.Mat4{mgl32.Translate3D(0, 2, 0)})
			return err
		},
	}

	e, err := New(g)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })

	if cubeID != 1 || sphereID != 2 {
		t.Fatalf("mesh ids = %d, %d, want 1, 2", cubeID, sphereID)
	}
	sphere, _ := e.Renderer().Arena().Layout(sphereID)
	if sphere.BaseVertex != 8 || sphere.IndexCount != 240 {
		t.Errorf("sphere layout = %+v, want BaseVertex 8 and 240 indices", sphere)
	}

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if updates != 3 {
		t.Errorf("updates = %d, want 3", updates)
	}
	if e.Metrics().DrawCalls() != 2 || e.Metrics().Instances() != 4 {
		t.Errorf("last frame draws %d instances %d, want 2 and 4", e.Metrics().DrawCalls(), e.Metrics().Instances())
	}
}

func TestEngineAddMesh(t *testing.T) {
	cfg, dir := headlessConfig(t)
	e, err := New(&Game{ApplicationConfig: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })

	path := filepath.Join(dir, "cube.mesh")
	first, err := e.AddMesh(path)
	if err != nil {
		t.Fatalf("AddMesh() error = %v", err)
	}
	again, err := e.AddMesh(path)
	if err != nil || again != first {
		t.Errorf("AddMesh() again = %d, %v, want %d", again, err, first)
	}
	// short names resolve through the asset index
	if byName, err := e.AddMesh("cube"); err != nil || byName != first {
		t.Errorf("AddMesh(\"cube\") = %d, %v, want %d", byName, err, first)
	}
	if id, ok := e.MeshID("cube"); !ok || id != first {
		t.Errorf("MeshID(\"cube\") = %d, %v", id, ok)
	}
	if got := e.Renderer().Arena().LayoutCount(); got != 1 {
		t.Errorf("LayoutCount() = %d, want 1", got)
	}

	cursor := e.Renderer().Arena().VertexCursor()
	if _, err := e.AddMesh(filepath.Join(dir, "missing.mesh")); !errors.Is(err, core.ErrAssetNotFound) {
		t.Errorf("AddMesh(missing) error = %v, want ErrAssetNotFound", err)
	}
	if e.Renderer().Arena().VertexCursor() != cursor {
		t.Error("failed AddMesh changed the arena")
	}

	var found bool
	for _, entry := range e.Console().Entries() {
		if strings.Contains(entry.Text, "Add Mesh, id[1]") {
			found = true
		}
	}
	if found {
		t.Error("info line reached the console below the configured level")
	}
}

func TestEngineAddMeshAsync(t *testing.T) {
	cfg, dir := headlessConfig(t)
	var ammoID uint32
	var submitted []bool
	g := &Game{
		ApplicationConfig: cfg,
		FnInitialize: func(e *Engine) error {
			var err error
			ammoID, err = e.AddMeshAsync(filepath.Join(dir, "ammo.mesh"))
			return err
		},
		FnUpdate: func(frame *FrameContext) error {
			_, err := frame.AddInstances(ammoID, []mgl32.Mat4{mgl32.Ident4()})
			submitted = append(submitted, err == nil)
			if err != nil && !errors.Is(err, core.ErrUnknownMesh) {
				return err
			}
			return nil
		},
	}
	e, err := New(g)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })

	if ammoID == metadata.InvalidMeshID {
		t.Fatal("AddMeshAsync() returned the invalid id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := e.Frame(1.0 / 60); err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
		if submitted[len(submitted)-1] {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("async mesh never reached the arena")
		}
		time.Sleep(time.Millisecond)
	}

	layout, ok := e.Renderer().Arena().Layout(ammoID)
	if !ok || layout.VertexCount != 24 || layout.IndexCount != 36 {
		t.Errorf("ammo layout = %+v, %v", layout, ok)
	}
	if e.Metrics().DrawCalls() != 1 {
		t.Errorf("DrawCalls() = %d, want 1", e.Metrics().DrawCalls())
	}
}

func TestEngineFrameBeforeInitialize(t *testing.T) {
	cfg, _ := headlessConfig(t)
	e, err := New(&Game{ApplicationConfig: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Frame(0); err == nil {
		t.Error("Frame() before Initialize error = nil")
	}
}

func TestEngineAddMeshAsyncTwice(t *testing.T) {
	cfg, dir := headlessConfig(t)
	e, err := New(&Game{ApplicationConfig: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })

	path := filepath.Join(dir, "ammo.mesh")
	first, err := e.AddMeshAsync(path)
	if err != nil {
		t.Fatalf("AddMeshAsync() error = %v", err)
	}
	second, err := e.AddMeshAsync(path)
	if err != nil || second != first {
		t.Fatalf("AddMeshAsync() again = %d, %v, want %d", second, err, first)
	}
	if got := e.PendingMeshes(); got != 1 || len(e.pendingOrder) != 1 {
		t.Fatalf("PendingMeshes() = %d (order %v), want a single load in flight", got, e.pendingOrder)
	}

	deadline := time.Now().Add(5 * time.Second)
	for e.PendingMeshes() > 0 {
		if err := e.Frame(1.0 / 60); err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("async mesh never reached the arena")
		}
		time.Sleep(time.Millisecond)
	}

	if got := e.Renderer().Arena().LayoutCount(); got != 1 {
		t.Errorf("LayoutCount() = %d, want 1", got)
	}

	// a synchronous add while the read runs wins; the async result is dropped quietly
	cube := filepath.Join(dir, "cube.mesh")
	if _, err := e.AddMeshAsync(cube); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddMesh(cube); err != nil {
		t.Fatalf("AddMesh() during async load error = %v", err)
	}
	for e.PendingMeshes() > 0 {
		if err := e.Frame(1.0 / 60); err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("async mesh never drained")
		}
		time.Sleep(time.Millisecond)
	}
	if got := e.Renderer().Arena().LayoutCount(); got != 2 {
		t.Errorf("LayoutCount() = %d, want 2", got)
	}

	// once in the arena a mesh is neither read nor queued again
	if third, err := e.AddMeshAsync(path); err != nil || third != first || e.PendingMeshes() != 0 {
		t.Errorf("AddMeshAsync() after landing = %d, %v, pending %d", third, err, e.PendingMeshes())
	}
	for _, entry := range e.Console().Entries() {
		if entry.Level == "ERRO" {
			t.Errorf("unexpected error logged: %s", entry.Text)
		}
	}
}
