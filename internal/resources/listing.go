// Package resources lists the grid files available in the server's
// resource directory, restricted to extensions the parser registry
// supports. The listing is cached and invalidated on filesystem change
// events rather than recomputed on every request.
package resources

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// File describes one entry in the resource directory listing.
type File struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
}

// Lister caches the resource directory listing, refreshing it when
// fsnotify reports a change and lazily on first access.
type Lister struct {
	dir     string
	exts    []string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu    sync.RWMutex
	files []File
	dirty bool
}

// New builds a Lister over dir, restricted to files whose lowercase
// extension (without dot) appears in supportedExtensions. It starts a
// background watch on dir; Close stops it. logger may be nil.
func New(dir string, supportedExtensions []string, logger *slog.Logger) (*Lister, error) {
	if logger == nil {
		logger = slog.Default()
	}

	patterns := make([]string, len(supportedExtensions))
	for i, ext := range supportedExtensions {
		patterns[i] = "*." + ext
	}

	l := &Lister{
		dir:    dir,
		exts:   patterns,
		logger: logger,
		dirty:  true,
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	l.watcher = watcher

	go l.watch()
	return l, nil
}

// Close releases the underlying fsnotify watcher.
func (l *Lister) Close() error {
	return l.watcher.Close()
}

// List returns the current resource directory listing, recomputing it if
// a filesystem change was observed since the last call.
func (l *Lister) List() ([]File, error) {
	l.mu.RLock()
	if !l.dirty {
		files := l.files
		l.mu.RUnlock()
		return files, nil
	}
	l.mu.RUnlock()

	files, err := l.scan()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.files = files
	l.dirty = false
	l.mu.Unlock()
	return files, nil
}

func (l *Lister) scan() ([]File, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !l.matchesSupportedExtension(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			Name:      entry.Name(),
			Extension: extensionOf(entry.Name()),
			Size:      info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (l *Lister) matchesSupportedExtension(name string) bool {
	for _, pattern := range l.exts {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func extensionOf(name string) string {
	ext := filepath.Ext(name)
	if len(ext) > 0 {
		ext = ext[1:]
	}
	return ext
}

// watch marks the listing dirty whenever the resource directory changes,
// deferring the actual rescan to the next List call.
func (l *Lister) watch() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				l.mu.Lock()
				l.dirty = true
				l.mu.Unlock()
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("resource directory watch error", "error", err)
		}
	}
}
