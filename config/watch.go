package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Editors often write a file in several steps; reload once things settle.
const settleDelay = 50 * time.Millisecond

// Watch reloads the config at path whenever it changes and delivers each
// valid result on the returned channel. Invalid edits are logged and
// skipped. The directory is watched rather than the file so that editors
// replacing the file by rename are noticed. The channel closes when ctx is
// done.
func Watch(ctx context.Context, path string, logger *zap.Logger) (<-chan *Config, error) {
	if path == "" {
		return nil, fmt.Errorf("watch config: no path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("config")

	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch config: %w", err)
	}

	out := make(chan *Config, 1)
	settled := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(settleDelay, func() {
					select {
					case settled <- struct{}{}:
					default:
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher", zap.Error(err))
			case <-settled:
				cfg, err := Load(path)
				if err != nil {
					log.Warn("config reload rejected", zap.String("path", path), zap.Error(err))
					continue
				}
				log.Info("config reloaded", zap.String("path", path))
				// Keep only the newest config if the reader is behind.
				select {
				case <-out:
				default:
				}
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
