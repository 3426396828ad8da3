package assets

import (
	"io"
	"os"
	"path/filepath"
)

// Source opens asset files for reading. The mesh cache reads everything
// through one, which keeps disk access countable and replaceable in tests.
type Source interface {
	Open(path string) (io.ReadCloser, error)
}

// DiskSource opens files from the local filesystem. Relative paths are
// resolved against Root when it is set.
type DiskSource struct {
	Root string
}

func (ds DiskSource) Open(path string) (io.ReadCloser, error) {
	if ds.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(ds.Root, path)
	}
	return os.Open(path)
}
