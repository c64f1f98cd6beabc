package loader

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/vgen"
)

// Watcher watches a vgen directory and a ScinthDef directory, reloading a
// document whenever it is written and falling back to whatever was
// previously registered if the new contents fail to parse — a bad save
// never drops a working VGen or ScinthDef out from under a running server.
// Grounded on the teacher's engine/assets.AssetManager: an fsnotify.Watcher
// field, done channel, and a single event-pump goroutine.
type Watcher struct {
	logger *core.Logger

	vgenDir      string
	scinthDefDir string

	registry *vgen.Registry

	onScinthDef func(path string, doc []byte)

	mu   sync.Mutex
	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Watcher over vgenDir and scinthDefDir. onScinthDef is called
// (on the watcher's internal goroutine) with the raw bytes of every
// ScinthDef file loaded or changed; the caller is responsible for parsing
// it against the Watcher's live vgen.Registry and registering the result
// with the command dispatcher.
func New(logger *core.Logger, vgenDir, scinthDefDir string, registry *vgen.Registry, onScinthDef func(path string, doc []byte)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.NewError(core.KindRuntime, err)
	}
	w := &Watcher{
		logger:       logger,
		vgenDir:      vgenDir,
		scinthDefDir: scinthDefDir,
		registry:     registry,
		onScinthDef:  onScinthDef,
		fsw:          fsw,
		done:         make(chan struct{}),
	}
	return w, nil
}

// LoadAll performs an initial, synchronous directory scan of both
// directories before watching begins, so the registry is populated before
// the server starts accepting commands.
func (w *Watcher) LoadAll() {
	w.scanDir(w.vgenDir, w.loadVGenFile)
	w.scanDir(w.scinthDefDir, w.loadScinthDefFile)
}

func (w *Watcher) scanDir(dir string, loadOne func(path string)) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if w.logger != nil {
			w.logger.Warnf("loader: reading %s: %v", dir, err)
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		loadOne(filepath.Join(dir, e.Name()))
	}
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func (w *Watcher) loadVGenFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if w.logger != nil {
			w.logger.Warnf("loader: reading %s: %v", path, err)
		}
		return
	}
	abstract, err := ParseVGen(data)
	if err != nil {
		if w.logger != nil {
			w.logger.Errorf("loader: %s: %v (keeping previously-loaded vgen, if any)", path, err)
		}
		return
	}
	w.mu.Lock()
	w.registry.Register(abstract)
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Infof("loader: registered vgen %q from %s", abstract.Name, path)
	}
}

func (w *Watcher) loadScinthDefFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if w.logger != nil {
			w.logger.Warnf("loader: reading %s: %v", path, err)
		}
		return
	}
	if w.onScinthDef != nil {
		w.onScinthDef(path, data)
	}
}

// Start begins watching both directories for create/write events. Returns
// an error only if adding a watch to either directory fails, which includes
// a directory that does not exist; an empty directory path is skipped.
func (w *Watcher) Start() error {
	for _, dir := range []string{w.vgenDir, w.scinthDefDir} {
		if dir == "" {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return core.NewError(core.KindRuntime, err)
		}
	}
	w.wg.Add(1)
	go w.pump()
	return nil
}

func (w *Watcher) pump() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isYAML(event.Name) {
				continue
			}
			if w.vgenDir != "" && filepath.Dir(event.Name) == filepath.Clean(w.vgenDir) {
				w.loadVGenFile(event.Name)
			} else if w.scinthDefDir != "" && filepath.Dir(event.Name) == filepath.Clean(w.scinthDefDir) {
				w.loadScinthDefFile(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Errorf("loader: watch error: %v", err)
			}
		case <-w.done:
			return
		}
	}
}

// Stop halts the watch goroutine and releases the underlying fsnotify
// watcher.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsw.Close()
	w.wg.Wait()
}
