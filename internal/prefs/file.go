package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileStore keeps preferences in a YAML file of key: bool pairs and reloads
// it when the file changes on disk. A missing file is an empty store.
type FileStore struct {
	path string

	mu     sync.RWMutex
	values map[string]bool
	ls     listeners

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// OpenFileStore loads the preference file at path.
func OpenFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve preferences path: %w", err)
	}
	values, err := readFile(abs)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: abs, values: values}, nil
}

func readFile(path string) (map[string]bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	values := map[string]bool{}
	if len(bytes.TrimSpace(b)) == 0 {
		return values, nil
	}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("decode preferences yaml: %w", err)
	}
	return values, nil
}

// Path returns the absolute path of the preference file.
func (s *FileStore) Path() string {
	return s.path
}

// Bool returns the stored value for key, or def if absent.
func (s *FileStore) Bool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return def
	}
	return v
}

// OnChange registers fn to be called with the key of every changed value.
func (s *FileStore) OnChange(fn func(key string)) {
	s.ls.add(fn)
}

// Set writes value for key to the file and notifies listeners if it changed.
func (s *FileStore) Set(key string, value bool) error {
	s.mu.Lock()
	next := make(map[string]bool, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value
	if err := writeFile(s.path, next); err != nil {
		s.mu.Unlock()
		return err
	}
	changed := diff(s.values, next)
	s.values = next
	s.mu.Unlock()

	s.ls.notify(changed)
	return nil
}

func writeFile(path string, values map[string]bool) error {
	b, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode preferences yaml: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}

// Reload rereads the file and notifies listeners for every key whose value
// was added, removed or flipped.
func (s *FileStore) Reload() error {
	values, err := readFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	changed := diff(s.values, values)
	s.values = values
	s.mu.Unlock()

	s.ls.notify(changed)
	return nil
}

// diff returns the keys that differ between a and b, sorted.
func diff(a, b map[string]bool) []string {
	var keys []string
	for k, av := range a {
		if bv, ok := b[k]; !ok || av != bv {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Watch reloads the store whenever the file is written, created or renamed
// into place. It watches the containing directory so editors that replace
// the file are handled. Stop with ctx or Close.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create preferences watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop(ctx)
	return nil
}

func (s *FileStore) watchLoop(ctx context.Context) {
	defer close(s.done)
	name := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				log.Printf("prefs: reload %s: %v", s.path, err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("prefs: watcher error: %v", err)
		}
	}
}

// Close stops watching. It is safe to call without Watch.
func (s *FileStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	return err
}
