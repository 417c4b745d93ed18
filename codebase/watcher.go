package codebase

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher keeps a Codebase in sync with the files under its root.
// Directories created after Start are watched as they appear.
type FileWatcher struct {
	codebase *Codebase
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	done     sync.WaitGroup
	// OnChange, when set, is called after a document was updated or removed.
	OnChange func(path string, removed bool)
}

func NewFileWatcher(c *Codebase) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		codebase: c,
		watcher:  w,
		stopCh:   make(chan struct{}),
	}, nil
}

func (w *FileWatcher) Start() error {
	if err := w.addTree(w.codebase.RootDir()); err != nil {
		w.watcher.Close()
		return err
	}
	w.done.Add(1)
	go w.run()
	return nil
}

func (w *FileWatcher) Stop() {
	close(w.stopCh)
	w.done.Wait()
}

func (w *FileWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *FileWatcher) run() {
	defer w.done.Done()
	defer w.watcher.Close()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watcher: %v", err)
		}
	}
}

func (w *FileWatcher) handle(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				log.Warningf("watch %s: %v", event.Name, err)
			}
			return
		}
		if !w.codebase.Matches(event.Name) {
			return
		}
		err = w.codebase.ScanFile(event.Name)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			log.Warningf("rescan %s: %v", event.Name, err)
		}
		w.notify(event.Name, false)
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if w.codebase.GetFile(event.Name) == nil {
			return
		}
		w.codebase.RemoveFile(event.Name)
		w.notify(event.Name, true)
	}
}

func (w *FileWatcher) notify(path string, removed bool) {
	if w.OnChange != nil {
		w.OnChange(path, removed)
	}
}
