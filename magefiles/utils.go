//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

// task describes one external command run by a mage target.
type task struct {
	name string
	args []string
	// Echo output while the command runs instead of only on failure.
	live bool
}

func goTask(args ...string) task {
	return task{name: "go", args: args, live: true}
}

func (t task) run() error {
	fmt.Printf("> %s %s\n", t.name, strings.Join(t.args, " "))

	var out bytes.Buffer
	cmd := exec.Command(t.name, t.args...)
	cmd.Stdout, cmd.Stderr = &out, &out
	live := t.live || mg.Verbose()
	if live {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	}

	if err := cmd.Run(); err != nil {
		if !live {
			os.Stderr.Write(out.Bytes())
		}
		return fmt.Errorf("%s %s: %w", t.name, strings.Join(t.args, " "), err)
	}
	return nil
}
