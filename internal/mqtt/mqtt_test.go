package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/logic"
)

func TestNewTopics(t *testing.T) {
	tests := []struct {
		prefix string
		want   Topics
	}{
		{"", Topics{"device/gestures/actions", "device/gestures/system", "device/gestures/screen"}},
		{"phone/osprey", Topics{"phone/osprey/actions", "phone/osprey/system", "phone/osprey/screen"}},
		{"phone/osprey/", Topics{"phone/osprey/actions", "phone/osprey/system", "phone/osprey/screen"}},
	}
	for _, tt := range tests {
		if got := NewTopics(tt.prefix); got != tt.want {
			t.Errorf("NewTopics(%q): expected %+v, got %+v", tt.prefix, tt.want, got)
		}
	}
}

func TestFormatPayload(t *testing.T) {
	event := action.Event{
		ID:        "3f2c7a0e-8f43-4b8e-9a49-0c6f2f1d7b11",
		Action:    action.NameDozePulse,
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"gesture":{"id":"3f2c7a0e-8f43-4b8e-9a49-0c6f2f1d7b11","timestamp":"2026-02-02T22:18:12Z","action":"doze_pulse"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := action.Event{
		Action:    action.NameSilence,
		Timestamp: time.Date(2026, 2, 3, 0, 18, 12, 0, loc),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Gesture.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Gesture.Timestamp)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload to be returned as-is, got %s", payload)
	}
}

func TestParseScreenPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    logic.EventKind
		wantErr bool
	}{
		{"ON", logic.EventScreenOn, false},
		{"OFF", logic.EventScreenOff, false},
		{"on", logic.EventScreenOn, false},
		{" off\n", logic.EventScreenOff, false},
		{"", "", true},
		{"DOZE", "", true},
		{`{"screen":"on"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			ev, err := ParseScreenPayload([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Kind != tt.want {
				t.Errorf("expected %s, got %s", tt.want, ev.Kind)
			}
		})
	}
}

func newScreenOnlyClient(wait time.Duration) *RealClient {
	return &RealClient{wait: wait, screenSeen: make(chan struct{})}
}

func TestRealClientScreenBeforeNotify(t *testing.T) {
	c := newScreenOnlyClient(10 * time.Millisecond)

	if _, err := c.DisplayInteractive(); !errors.Is(err, ErrNoScreenState) {
		t.Fatalf("expected ErrNoScreenState, got %v", err)
	}

	c.handleScreen([]byte("OFF"))
	c.handleScreen([]byte("garbage"))

	on, err := c.DisplayInteractive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if on {
		t.Error("expected display not interactive")
	}

	var got []logic.Event
	if err := c.Notify(context.Background(), func(ev logic.Event) { got = append(got, ev) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Kind != logic.EventScreenOff {
		t.Fatalf("expected queued SCREEN_OFF to be flushed, got %v", got)
	}

	c.handleScreen([]byte("ON"))
	if len(got) != 2 || got[1].Kind != logic.EventScreenOn {
		t.Errorf("expected SCREEN_ON to be forwarded, got %v", got)
	}
	if on, _ := c.DisplayInteractive(); !on {
		t.Error("expected display interactive after ON")
	}
}

// A screen message arriving while Notify flushes the queue must be
// delivered after everything queued before it.
func TestRealClientNotifyReplayKeepsOrder(t *testing.T) {
	c := newScreenOnlyClient(time.Second)
	c.handleScreen([]byte("ON"))
	c.handleScreen([]byte("OFF"))

	var (
		mu   sync.Mutex
		got  []logic.EventKind
		once sync.Once
		late = make(chan struct{})
	)
	post := func(ev logic.Event) {
		mu.Lock()
		got = append(got, ev.Kind)
		mu.Unlock()
		once.Do(func() {
			go func() {
				c.handleScreen([]byte("ON"))
				close(late)
			}()
			time.Sleep(20 * time.Millisecond)
		})
	}
	if err := c.Notify(context.Background(), post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-late:
	case <-time.After(time.Second):
		t.Fatal("late screen message never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []logic.EventKind{logic.EventScreenOn, logic.EventScreenOff, logic.EventScreenOn}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if on, _ := c.DisplayInteractive(); !on {
		t.Error("expected cached state to match the last message")
	}
}

func TestRealClientZeroWaitUsesCachedState(t *testing.T) {
	c := newScreenOnlyClient(0)
	c.handleScreen([]byte("ON"))

	for i := 0; i < 100; i++ {
		on, err := c.DisplayInteractive()
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if !on {
			t.Fatalf("call %d: expected display interactive", i)
		}
	}
}

func TestFakeClientPublishAction(t *testing.T) {
	f := NewFakeClient()
	event := action.Event{ID: "a", Action: action.NameCameraActivation, Timestamp: time.Now()}

	if err := f.PublishAction(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Actions) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 action and payload, got %d/%d", len(f.Actions), len(f.Payloads))
	}
	if names := f.ActionNames(); names[0] != action.NameCameraActivation {
		t.Errorf("unexpected action names: %v", names)
	}
}

func TestFakeClientErrors(t *testing.T) {
	f := NewFakeClient()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	if err := f.PublishAction(action.Event{}); err == nil {
		t.Error("expected action publish error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected system publish error")
	}
	if len(f.Actions) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakeClientScreen(t *testing.T) {
	f := NewFakeClient()
	if f.Screen("ON") {
		t.Error("Screen without a handler should report false")
	}

	var got []logic.Event
	f.Notify(context.Background(), func(ev logic.Event) { got = append(got, ev) })

	if !f.Screen("OFF") {
		t.Fatal("Screen should deliver with a handler attached")
	}
	if f.Screen("bogus") {
		t.Error("invalid payload should report false")
	}
	if len(got) != 1 || got[0].Kind != logic.EventScreenOff {
		t.Errorf("expected one SCREEN_OFF, got %v", got)
	}
	if f.Interactive {
		t.Error("fake should track display state")
	}
}

func TestFakeClientReset(t *testing.T) {
	f := NewFakeClient()
	f.PublishAction(action.Event{Action: action.NameSilence})
	f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	f.Connected = true
	f.Close()

	f.Reset()

	if f.Actions != nil || f.Payloads != nil || f.SystemEvents != nil || f.SystemPayloads != nil {
		t.Error("recorded events should be cleared")
	}
	if f.Closed || f.Connected {
		t.Error("flags should be cleared")
	}
}

var (
	_ Publisher        = (*RealClient)(nil)
	_ Publisher        = (*FakeClient)(nil)
	_ ConnectionStatus = (*RealClient)(nil)
	_ action.Emitter   = (*RealClient)(nil)
	_ action.Emitter   = (*FakeClient)(nil)
)
