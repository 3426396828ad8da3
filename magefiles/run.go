//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Generates the demo assets, checks the shaders and runs the demo.
func (Run) Engine() error {
	mg.Deps(Assets.Meshes)
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	return goTask("run", ".", "-config", "config/engine.toml").run()
}

// Runs the demo without a window for a fixed number of frames.
func (Run) Headless() error {
	mg.Deps(Assets.Meshes)
	return goTask("run", ".", "-headless", "-frames", "600").run()
}
