package platform

import (
	"context"
	"sync"

	"github.com/sweeney/gesture-sensor/internal/logic"
)

// FakePlatform is a scripted platform and screen source for tests.
type FakePlatform struct {
	mu sync.Mutex

	Interactive    bool
	InteractiveErr error
	Doze           bool
	DozeErr        error

	DozeCalls int

	post func(logic.Event)
}

// NewFakePlatform returns a fake with the display on and doze enabled.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{Interactive: true, Doze: true}
}

// DisplayInteractive returns the scripted display state.
func (f *FakePlatform) DisplayInteractive() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Interactive, f.InteractiveErr
}

// DozeEnabled returns the scripted doze policy and counts the query.
func (f *FakePlatform) DozeEnabled() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DozeCalls++
	return f.Doze, f.DozeErr
}

// SetDoze changes the doze policy returned by later queries.
func (f *FakePlatform) SetDoze(enabled bool, err error) {
	f.mu.Lock()
	f.Doze = enabled
	f.DozeErr = err
	f.mu.Unlock()
}

// Notify stores the handler used by Turn.
func (f *FakePlatform) Notify(ctx context.Context, post func(logic.Event)) error {
	f.mu.Lock()
	f.post = post
	f.mu.Unlock()
	return nil
}

// Turn sets the display state and posts the matching event. It reports
// false if no handler is attached.
func (f *FakePlatform) Turn(interactive bool) bool {
	f.mu.Lock()
	f.Interactive = interactive
	post := f.post
	f.mu.Unlock()
	if post == nil {
		return false
	}
	post(screenEvent(interactive))
	return true
}
