package mqtt

import (
	"context"
	"sync"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/logic"
)

// FakeClient records published events for test assertions and lets tests
// drive screen transitions.
type FakeClient struct {
	mu sync.Mutex

	// Actions contains all action events that were published.
	Actions []action.Event

	// Payloads contains the JSON payloads of published action events.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishAction.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// Interactive and InteractiveError are returned by DisplayInteractive.
	Interactive      bool
	InteractiveError error

	post func(logic.Event)
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// PublishAction records the action event.
func (f *FakeClient) PublishAction(event action.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Actions = append(f.Actions, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// ActionNames returns the names of published actions in order.
func (f *FakeClient) ActionNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.Actions))
	for i, a := range f.Actions {
		names[i] = a.Action
	}
	return names
}

// DisplayInteractive returns the scripted display state.
func (f *FakeClient) DisplayInteractive() (bool, error) {
	return f.Interactive, f.InteractiveError
}

// Notify stores the handler used by Screen.
func (f *FakeClient) Notify(ctx context.Context, post func(logic.Event)) error {
	f.post = post
	return nil
}

// Screen delivers a screen payload as if it arrived on the screen topic.
// It reports false if the payload is invalid or no handler is attached.
func (f *FakeClient) Screen(payload string) bool {
	ev, err := ParseScreenPayload([]byte(payload))
	if err != nil || f.post == nil {
		return false
	}
	f.Interactive = ev.Kind == logic.EventScreenOn
	f.post(ev)
	return true
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Actions = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
