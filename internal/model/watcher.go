package model

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the avatar when the model file changes on disk, so an
// artist can re-export without restarting the app. Reload events are
// debounced because exporters write in several bursts.
type Watcher struct {
	path      string
	headName  string
	teethName string
	logger    zerolog.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	debounce *time.Timer
	onReload func(*Avatar)
	closed   bool
}

const reloadDebounce = 250 * time.Millisecond

// NewWatcher creates a watcher for the given model path. onReload receives
// the freshly loaded avatar; the caller decides how to swap it in.
func NewWatcher(path, headName, teethName string, onReload func(*Avatar), logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors and exporters often replace the file,
	// which drops a watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:      path,
		headName:  headName,
		teethName: teethName,
		logger:    logger.With().Str("component", "model-watcher").Logger(),
		fsw:       fsw,
		onReload:  onReload,
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Model watch error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	cb := w.onReload
	w.mu.Unlock()

	avatar, err := LoadAvatar(w.path, w.headName, w.teethName)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("Model reload failed, keeping current avatar")
		return
	}

	w.logger.Info().Str("path", w.path).Int("headTargets", avatar.Head.TargetCount()).Msg("Model reloaded")
	if cb != nil {
		cb(avatar)
	}
}

// Close stops watching. Pending debounced reloads are cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
