package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// watchDebounce coalesces bursts of filesystem events into one reload.
const watchDebounce = 300 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	path     string
	onChange func(Config)
	watcher  *fsnotify.Watcher
	stop     chan struct{}
}

// NewWatcher watches configPath and invokes onChange with each
// successfully reloaded config. Editors replace files instead of writing
// in place, so the parent directory is watched rather than the file.
func NewWatcher(configPath string, onChange func(Config)) (*Watcher, error) {
	fsWatcher, errNew := fsnotify.NewWatcher()
	if errNew != nil {
		return nil, errNew
	}
	if errAdd := fsWatcher.Add(filepath.Dir(configPath)); errAdd != nil {
		_ = fsWatcher.Close()
		return nil, errAdd
	}

	w := &Watcher{
		path:     configPath,
		onChange: onChange,
		watcher:  fsWatcher,
		stop:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, w.reload)
		case errWatch, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(errWatch).Warn("config watcher: filesystem error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, errLoad := Load(w.path)
	if errLoad != nil {
		log.WithError(errLoad).Warn("config watcher: reload failed, keeping previous config")
		return
	}
	log.Info("config watcher: configuration reloaded")
	w.onChange(cfg)
}
