package watcher

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the window over which raw events are coalesced.
const DefaultDebounce = 500 * time.Millisecond

// ChangeHandler is called once per debounce window with the paths that changed in it.
type ChangeHandler func(paths []string)

// ErrorHandler is called for errors reported by the watch backend.
type ErrorHandler func(err error)

// FileWatcher is one recursive, debounced watch session over any number of roots.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
	onChange ChangeHandler
	onError  ErrorHandler

	mu      sync.Mutex
	roots   []string
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewFileWatcher creates a watch session. Nothing is watched until AddRecursive is called.
func NewFileWatcher(debounce time.Duration, logger *zap.Logger, onChange ChangeHandler, onError ErrorHandler) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw := &FileWatcher{
		watcher:  watcher,
		logger:   logger,
		debounce: debounce,
		onChange: onChange,
		onError:  onError,
		pending:  make(map[string]struct{}),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go fw.watchLoop()
	return fw, nil
}

// AddRecursive watches root and every non-hidden directory below it.
func (fw *FileWatcher) AddRecursive(root string) error {
	if err := fw.addRecursive(root); err != nil {
		return err
	}
	fw.mu.Lock()
	fw.roots = append(fw.roots, root)
	fw.mu.Unlock()
	return nil
}

// Roots returns the roots registered so far, sorted.
func (fw *FileWatcher) Roots() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	roots := append([]string(nil), fw.roots...)
	sort.Strings(roots)
	return roots
}

// Close stops the session and releases the native handles. Pending changes are dropped.
func (fw *FileWatcher) Close() error {
	var err error
	fw.closeOnce.Do(func() {
		fw.mu.Lock()
		fw.closed = true
		if fw.timer != nil {
			fw.timer.Stop()
			fw.timer = nil
		}
		fw.mu.Unlock()

		close(fw.stopChan)
		err = fw.watcher.Close()
		<-fw.done
	})
	return err
}

func (fw *FileWatcher) watchLoop() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			if fw.onError != nil {
				fw.onError(err)
			}

		case <-fw.stopChan:
			return
		}
	}
}

func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if ignored(event.Name) {
		return
	}

	// new directories are not covered by the parent watch
	if event.Has(fsnotify.Create) {
		if err := fw.addRecursive(event.Name); err != nil {
			fw.logger.Debug("could not watch new path", zap.String("path", event.Name), zap.Error(err))
		}
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return
	}
	fw.pending[event.Name] = struct{}{}
	if fw.timer == nil {
		fw.timer = time.AfterFunc(fw.debounce, fw.flush)
	}
}

// flush runs at the end of a debounce window.
func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(fw.pending))
	for p := range fw.pending {
		paths = append(paths, p)
	}
	fw.pending = make(map[string]struct{})
	fw.timer = nil
	fw.mu.Unlock()

	if len(paths) == 0 || fw.onChange == nil {
		return
	}
	sort.Strings(paths)
	fw.onChange(paths)
}

// addRecursive adds root and its subdirectories. Only a failure on root itself is returned.
func (fw *FileWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path) {
			return filepath.SkipDir
		}
		if addErr := fw.watcher.Add(path); addErr != nil {
			if path == root {
				return addErr
			}
			fw.logger.Warn("could not watch directory", zap.String("path", path), zap.Error(addErr))
		}
		return nil
	})
}
