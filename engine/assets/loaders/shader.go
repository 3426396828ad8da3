package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

const (
	VertexShaderExtension   = ".vert"
	FragmentShaderExtension = ".frag"
)

// LoadShader reads <dir>/<name>.vert and <dir>/<name>.frag.
func LoadShader(dir, name string) (*metadata.ShaderSource, error) {
	vert, err := os.ReadFile(filepath.Join(dir, name+VertexShaderExtension))
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	frag, err := os.ReadFile(filepath.Join(dir, name+FragmentShaderExtension))
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	return &metadata.ShaderSource{
		Name:     name,
		Vertex:   string(vert),
		Fragment: string(frag),
	}, nil
}
