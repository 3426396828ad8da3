//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Checks every GLSL stage is present and, when glslangValidator is installed,
// that it compiles.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the demo binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	return goTask("build", "-o", "bin/instanced", ".").run()
}

func buildShaders() error {
	stages, err := filepath.Glob(filepath.Join(shaderDir, "*.vert"))
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		return fmt.Errorf("no vertex shaders in %s", shaderDir)
	}
	for _, vert := range stages {
		frag := vert[:len(vert)-len(".vert")] + ".frag"
		if _, err := os.Stat(frag); err != nil {
			return fmt.Errorf("%s has no fragment stage: %w", vert, err)
		}
	}

	if _, err := exec.LookPath("glslangValidator"); err != nil {
		fmt.Println("glslangValidator not found, skipping shader compilation check")
		return nil
	}
	frags, _ := filepath.Glob(filepath.Join(shaderDir, "*.frag"))
	for _, s := range append(stages, frags...) {
		if err := (task{name: "glslangValidator", args: []string{s}}).run(); err != nil {
			return err
		}
	}
	return nil
}
