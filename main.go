/*
Demo application: a sphere, a grid of cubes and a few rounds of ammo, each
mesh drawn with a single instanced draw call per frame.
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/instanced/engine"
	"github.com/spaghettifunk/instanced/testbed"
)

func main() {
	configPath := flag.String("config", "config/engine.toml", "path to the engine configuration")
	headless := flag.Bool("headless", false, "run without a window")
	frames := flag.Uint64("frames", 0, "stop after this many frames (0 keeps the configured value)")
	flag.Parse()

	config, err := engine.LoadConfig(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		config = engine.DefaultConfig()
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *headless {
		config.Headless = true
	}
	if *frames > 0 {
		config.MaxFrames = *frames
	}

	tb := testbed.NewTestGame(config)

	e, err := engine.New(tb.Game)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := e.Initialize(); err != nil {
		e.Logger().Errorf("initialize: %s", err)
		_ = e.Shutdown()
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// the window and GL context belong to this thread: only ask Run to return
	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		e.Logger().Errorf("shutdown: %s", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
