package gpio

import (
	"fmt"
	"time"
)

// FakeWatcher is a test double that records watched lines and lets tests
// inject edges with Fire.
type FakeWatcher struct {
	// handlers maps offsets with an open watch to their handler.
	handlers map[int]func(LineEvent)

	// Requests counts Watch calls per offset.
	Requests map[int]int

	// WatchError, if set, will be returned by Watch.
	WatchError error

	// Closed tracks if Close was called.
	Closed bool

	// Now supplies event timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewFakeWatcher creates a FakeWatcher with no open lines.
func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{
		handlers: make(map[int]func(LineEvent)),
		Requests: make(map[int]int),
		Now:      time.Now,
	}
}

// Watch records the handler for offset. Watching an offset that is already
// open fails, as the kernel would report the line busy.
func (f *FakeWatcher) Watch(offset int, handler func(LineEvent)) (Line, error) {
	if f.WatchError != nil {
		return nil, f.WatchError
	}
	if _, busy := f.handlers[offset]; busy {
		return nil, fmt.Errorf("request line %d: device or resource busy", offset)
	}
	f.Requests[offset]++
	f.handlers[offset] = handler
	return &fakeLine{watcher: f, offset: offset}, nil
}

// Watching reports whether offset currently has an open watch.
func (f *FakeWatcher) Watching(offset int) bool {
	_, ok := f.handlers[offset]
	return ok
}

// Fire delivers an edge on offset. It reports false if the line is not watched.
func (f *FakeWatcher) Fire(offset int, active bool) bool {
	h, ok := f.handlers[offset]
	if !ok {
		return false
	}
	h(LineEvent{Offset: offset, Active: active, Time: f.Now()})
	return true
}

// Close marks the watcher as closed.
func (f *FakeWatcher) Close() error {
	f.Closed = true
	return nil
}

type fakeLine struct {
	watcher *FakeWatcher
	offset  int
	closed  bool
}

func (l *fakeLine) Close() error {
	if l.closed {
		return fmt.Errorf("line %d already closed", l.offset)
	}
	l.closed = true
	delete(l.watcher.handlers, l.offset)
	return nil
}
