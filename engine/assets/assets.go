package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/compute/spirv"
)

type OverrideInfo struct {
	Path       string
	Words      []uint32
	LastLoaded time.Time
}

// ShaderOverrides watches a directory for hand-dropped SPIR-V binaries
// and exposes them by kernel name. A file named calc_vertex_attrs_u16.comp.spv
// (or calc_vertex_attrs_u16.spv) overrides the embedded binary of the
// kernel with that name the next time it is constructed.
type ShaderOverrides struct {
	overrides map[string]OverrideInfo

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewShaderOverrides() (*ShaderOverrides, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ShaderOverrides{
		overrides: make(map[string]OverrideInfo),
		fsnotify:  fsWatch,
		done:      make(chan struct{}),
	}, nil
}

// Initialize scans the directory once so overrides present at startup
// are visible immediately, then watches it for changes.
func (so *ShaderOverrides) Initialize(dir string) error {
	if so.isClosed {
		return core.ErrWatcherClosed
	}

	if err := filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return so.fsnotify.Add(walkPath)
		}
		so.handleFileEvent(walkPath)
		return nil
	}); err != nil {
		return err
	}

	go so.start()
	return nil
}

// Override returns the replacement binary for the named kernel, if one
// has been dropped into the watched directory.
func (so *ShaderOverrides) Override(name string) ([]uint32, bool) {
	so.mutex.RLock()
	defer so.mutex.RUnlock()

	info, exists := so.overrides[name]
	if !exists {
		return nil, false
	}
	return info.Words, true
}

// Names returns the kernels that currently have an override.
func (so *ShaderOverrides) Names() []string {
	so.mutex.RLock()
	defer so.mutex.RUnlock()

	names := make([]string, 0, len(so.overrides))
	for name := range so.overrides {
		names = append(names, name)
	}
	return names
}

func (so *ShaderOverrides) Close() error {
	if so.isClosed {
		return core.ErrWatcherClosed
	}
	so.isClosed = true
	close(so.done)
	return nil
}

func (so *ShaderOverrides) start() {
	for {
		select {
		case e := <-so.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					so.fsnotify.Add(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				so.handleFileEvent(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				so.removeOverride(e.Name)
			}

		case e := <-so.fsnotify.Errors:
			core.LogError(e.Error())

		case <-so.done:
			so.fsnotify.Close()
			return
		}
	}
}

// handleFileEvent loads and validates a dropped binary. Invalid files
// are logged and skipped so a half-written file never replaces a
// working kernel.
func (so *ShaderOverrides) handleFileEvent(path string) {
	name, ok := kernelNameFor(path)
	if !ok {
		return
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		core.LogWarn("shader override %s unreadable: %s", path, err)
		return
	}
	words, err := spirv.Words(blob)
	if err != nil {
		core.LogWarn("shader override %s rejected: %s", path, err)
		return
	}

	so.mutex.Lock()
	defer so.mutex.Unlock()

	so.overrides[name] = OverrideInfo{
		Path:       path,
		Words:      words,
		LastLoaded: time.Now(),
	}
	core.LogInfo("shader override loaded for kernel %q from %s", name, path)
}

func (so *ShaderOverrides) removeOverride(path string) {
	name, ok := kernelNameFor(path)
	if !ok {
		return
	}

	so.mutex.Lock()
	defer so.mutex.Unlock()

	delete(so.overrides, name)
}

func kernelNameFor(path string) (string, bool) {
	base := filepath.Base(path)
	if filepath.Ext(base) != ".spv" {
		return "", false
	}
	name := strings.TrimSuffix(base, ".spv")
	name = strings.TrimSuffix(name, ".comp")
	return name, true
}
