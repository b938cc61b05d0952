// Package prefs provides boolean preference stores with change notification.
package prefs

import "sync"

// listeners is a set of change callbacks shared by the stores.
type listeners struct {
	mu  sync.Mutex
	fns []func(key string)
}

func (l *listeners) add(fn func(key string)) {
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

func (l *listeners) notify(keys []string) {
	l.mu.Lock()
	fns := append([]func(string){}, l.fns...)
	l.mu.Unlock()
	for _, key := range keys {
		for _, fn := range fns {
			fn(key)
		}
	}
}

// MemoryStore is an in-memory preference store. Set notifies listeners when
// the stored value changes.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]bool
	ls     listeners
}

// NewMemoryStore creates a store with the given initial values.
func NewMemoryStore(values map[string]bool) *MemoryStore {
	m := &MemoryStore{values: make(map[string]bool, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Bool returns the stored value for key, or def if absent.
func (m *MemoryStore) Bool(key string, def bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return def
	}
	return v
}

// OnChange registers fn to be called with the key of every changed value.
func (m *MemoryStore) OnChange(fn func(key string)) {
	m.ls.add(fn)
}

// Set stores value for key and notifies listeners if it changed.
func (m *MemoryStore) Set(key string, value bool) {
	m.mu.Lock()
	old, ok := m.values[key]
	m.values[key] = value
	m.mu.Unlock()
	if ok && old == value {
		return
	}
	m.ls.notify([]string{key})
}

// Remove deletes key and notifies listeners if it was present.
func (m *MemoryStore) Remove(key string) {
	m.mu.Lock()
	_, ok := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()
	if ok {
		m.ls.notify([]string{key})
	}
}
