// Package logic contains the gesture orchestration rules.
// This package has NO external dependencies (no GPIO, MQTT, D-Bus or files).
// Sensors, actions, preferences and platform queries are injected as interfaces.
package logic

import "sync/atomic"

// Preference keys. Every key defaults to true when absent from the store.
const (
	KeyGestureIRWake    = "gesture_ir_wake"
	KeyGestureIRSilence = "gesture_ir_silence"
	KeyGestureCamera    = "gesture_camera"
)

// EventKind tags an input delivered to the controller.
type EventKind string

const (
	EventScreenOn          EventKind = "SCREEN_ON"
	EventScreenOff         EventKind = "SCREEN_OFF"
	EventPreferenceChanged EventKind = "PREFERENCE_CHANGED"
)

// Event is a single controller input. Key is set for EventPreferenceChanged only.
type Event struct {
	Kind EventKind
	Key  string
}

// IRGesture selects one of the independently enabled IR sub-gestures.
type IRGesture string

const (
	IRGestureWake    IRGesture = "WAKE"
	IRGestureSilence IRGesture = "SILENCE"
)

// Sensor is a gesture sensor that can be armed and disarmed.
type Sensor interface {
	Enable()
	Disable()
}

// IRSensor extends Sensor with per-gesture enablement and a screen hint.
type IRSensor interface {
	Sensor
	EnableGesture(g IRGesture)
	DisableGesture(g IRGesture)
	SetScreenOn(on bool)
}

// Action is triggered by a sensor when it recognizes a gesture.
type Action interface {
	Perform()
}

// PreferenceStore is a boolean key/value store with change notification.
type PreferenceStore interface {
	Bool(key string, def bool) bool
	OnChange(fn func(key string))
}

// Platform answers power and settings queries.
type Platform interface {
	// DisplayInteractive reports whether the display is lit and accepting input.
	DisplayInteractive() (bool, error)
	// DozeEnabled reports whether the platform doze feature is switched on.
	DozeEnabled() (bool, error)
}

// ScreenView is a read-only view of the shared screen flag.
type ScreenView interface {
	ScreenOn() bool
}

// ScreenState holds the screen-on flag shared between the controller and the
// collaborators it builds. Only the controller calls set.
type ScreenState struct {
	on atomic.Bool
}

// ScreenOn reports the last screen state applied by the controller.
func (s *ScreenState) ScreenOn() bool {
	return s.on.Load()
}

func (s *ScreenState) set(on bool) {
	s.on.Store(on)
}

// Flags caches the gesture preference values.
type Flags struct {
	Camera    bool
	IRWake    bool
	IRSilence bool
}

// Snapshot is a point-in-time view of controller state.
type Snapshot struct {
	ScreenOn        bool
	Flags           Flags
	DozeEnabled     bool // doze policy observed at the last screen-off transition
	EventsHandled   int
	ScreenOnCount   int
	ScreenOffCount  int
	PrefChangeCount int
}
