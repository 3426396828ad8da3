package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/platform"
	"github.com/spaghettifunk/instanced/engine/renderer"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
	"github.com/spaghettifunk/instanced/engine/systems"
)

type AssetsConfig struct {
	// Directory indexed and watched for mesh files.
	Root string `toml:"root"`
	// Watch the root for changes to already cached meshes.
	Watch bool `toml:"watch"`
	// Directory holding <name>.vert and <name>.frag.
	ShaderDir  string `toml:"shader_dir"`
	ShaderName string `toml:"shader_name"`
	// Falls back to a checker texture when missing.
	DefaultTexture string `toml:"default_texture"`
}

type JobsConfig struct {
	// Zero disables async mesh loading.
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type ApplicationConfig struct {
	Window   platform.WindowConfig   `toml:"window"`
	Log      core.LogConfig          `toml:"log"`
	Meshes   systems.MeshCacheConfig `toml:"meshes"`
	Renderer renderer.ArenaConfig    `toml:"renderer"`
	Assets   AssetsConfig            `toml:"assets"`
	Jobs     JobsConfig              `toml:"jobs"`
	// Run without a window or GL context; draws go to a NopBackend.
	Headless bool `toml:"headless"`
	// Stop after this many frames. Zero runs until the window closes.
	MaxFrames uint64 `toml:"max_frames"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: platform.WindowConfig{
			Title:         "Instanced Renderer",
			PosX:          100,
			PosY:          100,
			Width:         1920,
			Height:        1080,
			VSync:         true,
			CaptureCursor: true,
		},
		Log: core.LogConfig{
			Level: "info",
		},
		Meshes:   systems.DefaultMeshCacheConfig(),
		Renderer: renderer.DefaultArenaConfig(),
		Assets: AssetsConfig{
			Root:           "assets",
			Watch:          true,
			ShaderDir:      "assets/shaders",
			ShaderName:     "geom",
			DefaultTexture: "assets/textures/default.jpg",
		},
		Jobs: JobsConfig{
			Workers:   2,
			QueueSize: 16,
		},
	}
}

// LoadConfig reads a TOML file over the defaults. Unknown keys are an error.
func LoadConfig(path string) (*ApplicationConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if !c.Headless && (c.Window.Width <= 0 || c.Window.Height <= 0) {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Meshes.MaxMeshCount == 0 {
		return fmt.Errorf("meshes.max_mesh_count must be > 0")
	}
	if c.Meshes.MaxPathLength < 2 {
		return fmt.Errorf("meshes.max_path_length must be at least 2, got %d", c.Meshes.MaxPathLength)
	}
	if c.Renderer.RegionSize < metadata.InstanceStride {
		return fmt.Errorf("renderer.region_size must hold at least one instance (%d bytes), got %d", metadata.InstanceStride, c.Renderer.RegionSize)
	}
	if c.Jobs.Workers < 0 || c.Jobs.QueueSize < 0 {
		return fmt.Errorf("jobs.workers and jobs.queue_size must not be negative")
	}
	if !c.Headless && c.Assets.ShaderName == "" {
		return fmt.Errorf("assets.shader_name is required")
	}
	return nil
}
