package assets

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spaghettifunk/instanced/engine/core"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{0, 0, 0, 0, 0, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newIndexedManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "cube.mesh"))
	touch(t, filepath.Join(dir, "props", "sphere.mesh"))
	touch(t, filepath.Join(dir, "textures", "default.jpg"))

	am, err := NewAssetManager(nil)
	if err != nil {
		t.Fatalf("NewAssetManager() error = %v", err)
	}
	if err := am.Initialize(dir); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = am.Shutdown() })
	return am, dir
}

func TestAssetManagerIndex(t *testing.T) {
	am, dir := newIndexedManager(t)

	want := []string{
		filepath.Join(dir, "cube.mesh"),
		filepath.Join(dir, "props", "sphere.mesh"),
	}
	if got := am.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestAssetManagerResolve(t *testing.T) {
	am, dir := newIndexedManager(t)
	sphere := filepath.Join(dir, "props", "sphere.mesh")

	tests := []struct {
		name string
		want string
	}{
		{"sphere", sphere},
		{sphere, sphere},
		{filepath.Join(dir, "props", ".", "sphere.mesh"), sphere},
		{"cube", filepath.Join(dir, "cube.mesh")},
	}
	for _, tt := range tests {
		got, err := am.Resolve(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%q) = %q, %v, want %q", tt.name, got, err, tt.want)
		}
	}

	for _, name := range []string{"default", "missing", filepath.Join(dir, "textures", "default.jpg")} {
		if _, err := am.Resolve(name); !errors.Is(err, core.ErrAssetNotFound) {
			t.Errorf("Resolve(%q) error = %v, want ErrAssetNotFound", name, err)
		}
	}
}

func TestAssetManagerWatch(t *testing.T) {
	am, dir := newIndexedManager(t)
	cube := filepath.Join(dir, "cube.mesh")
	ammo := filepath.Join(dir, "ammo.mesh")

	am.MarkCached(cube)
	touch(t, ammo)
	if err := os.WriteFile(cube, []byte{1, 0, 0, 0, 0, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, func() bool {
		_, err := am.Resolve("ammo")
		stale := am.Stale()
		return err == nil && len(stale) == 1 && stale[0] == cube
	})

	if err := os.Remove(ammo); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		_, err := am.Resolve("ammo")
		return errors.Is(err, core.ErrAssetNotFound)
	})
}

func TestAssetManagerInitializeMissingDir(t *testing.T) {
	am, err := NewAssetManager(core.NopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Initialize(missing) error = nil")
	}
	// never started: Shutdown closes the watcher directly
	if err := am.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := am.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestDiskSource(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "cube.mesh"))

	for _, tt := range []struct {
		src  DiskSource
		path string
	}{
		{DiskSource{Root: dir}, "cube.mesh"},
		{DiskSource{Root: "elsewhere"}, filepath.Join(dir, "cube.mesh")},
		{DiskSource{}, filepath.Join(dir, "cube.mesh")},
	} {
		rc, err := tt.src.Open(tt.path)
		if err != nil {
			t.Errorf("%+v.Open(%q) error = %v", tt.src, tt.path, err)
			continue
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if len(data) != 8 {
			t.Errorf("%+v.Open(%q) read %d bytes, want 8", tt.src, tt.path, len(data))
		}
	}

	if _, err := (DiskSource{Root: dir}).Open("missing.mesh"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want ErrNotExist", err)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before the deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAssetManagerResolveAmbiguous(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "props", "cube.mesh")
	touch(t, filepath.Join(dir, "cube.mesh"))
	touch(t, other)
	touch(t, filepath.Join(dir, "props", "sphere.mesh"))

	am, err := NewAssetManager(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = am.Shutdown() })

	for i := 0; i < 10; i++ {
		if _, err := am.Resolve("cube"); !errors.Is(err, ErrAmbiguousName) {
			t.Fatalf("Resolve(\"cube\") error = %v, want ErrAmbiguousName", err)
		}
	}
	for _, path := range []string{filepath.Join(dir, "cube.mesh"), other} {
		if got, err := am.Resolve(path); err != nil || got != path {
			t.Errorf("Resolve(%q) = %q, %v", path, got, err)
		}
	}
	if got, err := am.Resolve("sphere"); err != nil || got != filepath.Join(dir, "props", "sphere.mesh") {
		t.Errorf("Resolve(\"sphere\") = %q, %v", got, err)
	}
}
