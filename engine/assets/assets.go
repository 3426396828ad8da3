package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/instanced/engine/core"
)

// MeshExtension is the file extension of mesh assets.
const MeshExtension = ".mesh"

// ErrAmbiguousName is returned by Resolve when a short name matches mesh files
// in more than one directory.
var ErrAmbiguousName = errors.New("mesh name matches several files")

type AssetInfo struct {
	Path     string
	Name     string
	Modified time.Time
	// Set when the file changed on disk after MarkCached was called for it.
	Stale bool

	cached bool
}

// AssetManager indexes the mesh files under a root directory and keeps the
// index current with fsnotify. Cached meshes are never reloaded; a change to
// one only marks it stale.
type AssetManager struct {
	root   string
	assets map[string]*AssetInfo
	logger core.Logger

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	watcher  *fsnotify.Watcher
	isClosed bool
	started  bool
}

func NewAssetManager(logger core.Logger) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]*AssetInfo),
		logger:   core.OrNop(logger),
		watcher:  fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize indexes assetsDir recursively and starts watching it.
func (am *AssetManager) Initialize(assetsDir string) error {
	am.root = assetsDir
	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}
	am.started = true
	go am.start()
	am.logger.Infof("Asset manager watching %s (%d meshes indexed)", assetsDir, len(am.List()))
	return nil
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	started := am.started
	am.mutex.Unlock()

	if !started {
		return am.watcher.Close()
	}
	close(am.done)
	<-am.stopped
	return nil
}

// Resolve maps a short mesh name ("cube") or a path to an indexed mesh file.
// A short name shared by several files must be given as a path instead.
func (am *AssetManager) Resolve(name string) (string, error) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	if info, ok := am.assets[filepath.Clean(name)]; ok {
		return info.Path, nil
	}
	var matches []string
	for _, info := range am.assets {
		if info.Name == name {
			matches = append(matches, info.Path)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", core.ErrAssetNotFound, name)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %s: %s", ErrAmbiguousName, name, strings.Join(matches, ", "))
	}
}

// List returns every indexed mesh path, sorted.
func (am *AssetManager) List() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	out := make([]string, 0, len(am.assets))
	for p := range am.assets {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarkCached records that path has been handed to the mesh cache; later
// writes to it flag the asset as stale.
func (am *AssetManager) MarkCached(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if info, ok := am.assets[filepath.Clean(path)]; ok {
		info.cached = true
	}
}

// Stale returns the cached meshes whose files changed since they were cached.
func (am *AssetManager) Stale() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var out []string
	for p, info := range am.assets {
		if info.Stale {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (am *AssetManager) addRecursive(dir string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(dir)
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.watcher.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						am.logger.Errorf("watching %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.watcher.Errors:
			if !ok {
				return
			}
			am.logger.Errorf("asset watcher: %s", err)

		case <-am.done:
			am.watcher.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the mesh files it finds.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.watcher.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes a created mesh file or refreshes a known one.
func (am *AssetManager) handleFileEvent(path string) {
	if !strings.EqualFold(filepath.Ext(path), MeshExtension) {
		return
	}
	path = filepath.Clean(path)

	var modified time.Time
	if fi, err := os.Stat(path); err == nil {
		modified = fi.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	if info, ok := am.assets[path]; ok {
		info.Modified = modified
		if info.cached && !info.Stale {
			info.Stale = true
			am.logger.Warnf("mesh %s changed on disk after it was cached; restart to pick it up", path)
		}
		return
	}
	am.assets[path] = &AssetInfo{
		Path:     path,
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Modified: modified,
	}
}

// removeAsset drops a deleted or renamed mesh from the index.
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}
