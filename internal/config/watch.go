package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch watches every file Load read (the root file plus its includes)
// and calls onReload with a freshly reloaded Config whenever one of them
// changes. It returns a stop function; callers running a TFTP or Telnet
// server swap in the new Config between connections, never mid-transfer.
func Watch(cfg *Config, filename string, log *slog.Logger, onReload func(*Config)) (stop func(), err error) {
	if log == nil {
		log = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, f := range cfg.LoadedFiles {
		if err := watcher.Add(f); err != nil {
			log.Warn("failed to watch config file", "file", relPath(f), "err", err)
		}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				next, err := Load(filename)
				if err != nil {
					log.Error("failed to reload config", "file", relPath(event.Name), "err", err)
					continue
				}
				if !next.HotReload {
					log.Info("hot reload disabled in new config, ignoring change", "file", relPath(event.Name))
					continue
				}
				log.Info("config file changed, reloading", "file", relPath(event.Name))
				onReload(next)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("config watcher error", "err", werr)
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

func relPath(path string) string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, path); err == nil {
			return rel
		}
	}
	return path
}
