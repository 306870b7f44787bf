package yallaconfig

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Loader reads a config file from disk and deep-merges it over the
// defaults, the way gsh's config.Loader parses `.gshrc.gsh` — here the
// source format is YAML (spec.md §6: "a file that yields a nested map").
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a config file loader. logger may be nil.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads path, deep-merging its contents over Default(). A missing
// file is not an error: defaults are returned unchanged.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("yallaconfig: reading %s: %w", path, err)
	}

	var layer map[string]any
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("yallaconfig: parsing %s: %w", path, err)
	}

	if err := cfg.Merge(layer); err != nil {
		return nil, fmt.Errorf("yallaconfig: merging %s: %w", path, err)
	}

	return cfg, nil
}

// Watch installs an fsnotify watch on path and invokes onChange with the
// freshly reloaded Config whenever the file is written. It returns a
// stop function the caller must invoke to release the watcher. A failure
// to create the watcher is logged and treated as "no hot-reload available"
// rather than a fatal error, since config watching is a convenience, not
// a spec-mandated capability.
func (l *Loader) Watch(path string, onChange func(*Config)) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("config watch unavailable", zap.Error(err))
		}
		return func() {}, nil
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		if l.logger != nil {
			l.logger.Warn("config watch add failed", zap.String("path", path), zap.Error(err))
		}
		return func() {}, nil
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := l.Load(path)
				if err != nil {
					if l.logger != nil {
						l.logger.Warn("config reload failed", zap.Error(err))
					}
					continue
				}
				onChange(cfg)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
