// Package metrics records gesture, sensor and screen counters.
package metrics

// Recorder receives observability hooks from sensors, actions and the run loop.
// Implementations must be safe for concurrent use: gesture callbacks run on
// GPIO event goroutines.
type Recorder interface {
	// ActionPerformed counts an action that was carried out.
	ActionPerformed(action string)
	// ActionSuppressed counts an action that was skipped (e.g. doze pulse
	// with the screen on).
	ActionSuppressed(action string)
	// SensorToggled counts a sensor or IR sub-gesture changing armed state.
	SensorToggled(sensor string, enabled bool)
	// ScreenTransition counts a screen-on or screen-off transition.
	ScreenTransition(on bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ActionPerformed(string)     {}
func (NoopRecorder) ActionSuppressed(string)    {}
func (NoopRecorder) SensorToggled(string, bool) {}
func (NoopRecorder) ScreenTransition(bool)      {}
