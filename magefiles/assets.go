//go:build mage

package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/magefile/mage/mg"

	"github.com/spaghettifunk/instanced/engine/assets/loaders"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

type Assets mg.Namespace

const (
	meshDir        = "assets/meshes"
	defaultTexture = "assets/textures/default.jpg"
)

// Writes the demo meshes (sphere, cube, ammo) and the default texture.
func (Assets) Meshes() error {
	if err := os.MkdirAll(meshDir, 0o755); err != nil {
		return err
	}
	meshes := map[string]*metadata.MeshPayload{
		"sphere.mesh": loaders.GenerateIcosphere(1, 2),
		"cube.mesh":   loaders.GenerateCube(mgl32.Vec3{1, 1, 1}),
		"ammo.mesh":   loaders.GenerateBox(mgl32.Vec3{0.15, 0.15, 0.6}),
	}
	for name, p := range meshes {
		path := filepath.Join(meshDir, name)
		if err := writeMesh(path, p); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d vertices, %d indices)\n", path, p.VertexCount, p.IndexCount)
	}
	return writeTexture(defaultTexture)
}

func writeMesh(path string, p *metadata.MeshPayload) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := loaders.EncodeMesh(f, p); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func writeTexture(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	checker := loaders.CheckerImage(256, 32)
	img := &image.RGBA{
		Pix:    checker.Pixels,
		Stride: int(checker.Width) * 4,
		Rect:   image.Rect(0, 0, int(checker.Width), int(checker.Height)),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return f.Close()
}
