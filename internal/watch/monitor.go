// Package watch delivers file change notifications for URI properties.
//
// The Monitor watches the parent directory of every registered file with
// fsnotify, so editors that save by renaming are still seen. Events are
// queued by a background goroutine and handed to callbacks only when the
// owner calls Poll, which keeps all model mutation on one thread.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ajitpratap0/scenecore/internal/core"
)

// ErrClosed is returned by Register after Close.
var ErrClosed = errors.New("monitor closed")

// Monitor implements core.FileMonitor on top of fsnotify.
type Monitor struct {
	base    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu        sync.Mutex
	listeners map[string]map[*listener]struct{} // resolved path -> listeners
	dirs      map[string]int                    // watched dir -> registered paths
	pending   map[string]struct{}
	nextSeq   uint64
	closed    bool

	ready    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New starts a monitor. Relative paths are resolved against base.
func New(base string, logger *slog.Logger) (*Monitor, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", base, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	m := &Monitor{
		base:      abs,
		watcher:   w,
		logger:    logger,
		listeners: make(map[string]map[*listener]struct{}),
		dirs:      make(map[string]int),
		pending:   make(map[string]struct{}),
		ready:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go m.processEvents()
	return m, nil
}

var _ core.FileMonitor = (*Monitor)(nil)

type listener struct {
	m        *Monitor
	path     string
	seq      uint64 // registration order
	onChange func()
	once     sync.Once
}

// Close unregisters the listener. It is safe to call more than once.
func (l *listener) Close() error {
	l.once.Do(func() { l.m.unregister(l) })
	return nil
}

func (m *Monitor) resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.base, path)
	}
	return filepath.Clean(path)
}

// Register calls onChange from Poll whenever path changes on disk.
func (m *Monitor) Register(path string, onChange func()) (core.Listener, error) {
	resolved := m.resolve(path)
	dir := filepath.Dir(resolved)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.dirs[dir] == 0 {
		if err := m.watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	m.dirs[dir]++

	m.nextSeq++
	l := &listener{m: m, path: resolved, seq: m.nextSeq, onChange: onChange}
	set := m.listeners[resolved]
	if set == nil {
		set = make(map[*listener]struct{})
		m.listeners[resolved] = set
	}
	set[l] = struct{}{}
	m.logger.Debug("file listener registered", "path", resolved)
	return l, nil
}

func (m *Monitor) unregister(l *listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.listeners[l.path]
	if _, ok := set[l]; !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(m.listeners, l.path)
	}
	dir := filepath.Dir(l.path)
	m.dirs[dir]--
	if m.dirs[dir] <= 0 {
		delete(m.dirs, dir)
		if !m.closed {
			if err := m.watcher.Remove(dir); err != nil {
				m.logger.Debug("removing watch", "dir", dir, "error", err)
			}
		}
	}
}

// Watched returns the number of paths with at least one listener.
func (m *Monitor) Watched() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// Notify queues a change for path as if it had been reported by the
// filesystem.
func (m *Monitor) Notify(path string) {
	m.enqueue(m.resolve(path))
}

func (m *Monitor) enqueue(path string) {
	m.mu.Lock()
	if _, ok := m.listeners[path]; !ok {
		m.mu.Unlock()
		return
	}
	m.pending[path] = struct{}{}
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready is signaled when changes are waiting for Poll.
func (m *Monitor) Ready() <-chan struct{} { return m.ready }

// Poll runs the callbacks of every path that changed since the last call,
// in path order and, within a path, in registration order. It returns the
// number of callbacks run.
func (m *Monitor) Poll() int {
	m.mu.Lock()
	paths := make([]string, 0, len(m.pending))
	for p := range m.pending {
		paths = append(paths, p)
	}
	m.pending = make(map[string]struct{})
	sort.Strings(paths)

	var calls []*listener
	for _, p := range paths {
		start := len(calls)
		for l := range m.listeners[p] {
			calls = append(calls, l)
		}
		batch := calls[start:]
		sort.Slice(batch, func(i, j int) bool { return batch[i].seq < batch[j].seq })
	}
	m.mu.Unlock()

	for _, l := range calls {
		l.onChange()
	}
	return len(calls)
}

func (m *Monitor) processEvents() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			m.enqueue(filepath.Clean(event.Name))
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops watching. Registered listeners stay valid but never fire.
func (m *Monitor) Close() error {
	var err error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.done)
		err = m.watcher.Close()
	})
	return err
}
