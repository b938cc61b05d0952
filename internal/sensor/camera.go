package sensor

import (
	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/logic"
	"github.com/sweeney/gesture-sensor/internal/metrics"
)

// CameraActivation performs its action on every edge into the active level
// (the sensor hub raises the line on a recognized camera gesture).
type CameraActivation struct {
	line   *lineSensor
	action logic.Action
}

// NewCameraActivation creates a disabled camera activation sensor.
func NewCameraActivation(w gpio.Watcher, offset int, action logic.Action, rec metrics.Recorder) *CameraActivation {
	s := &CameraActivation{action: action}
	s.line = newLineSensor(NameCamera, w, offset, rec, s.onEdge)
	return s
}

func (s *CameraActivation) onEdge(e gpio.LineEvent) {
	if e.Active {
		s.action.Perform()
	}
}

// Enable arms the sensor.
func (s *CameraActivation) Enable() { s.line.enable() }

// Disable disarms the sensor.
func (s *CameraActivation) Disable() { s.line.disable() }

// Enabled reports whether the sensor is armed.
func (s *CameraActivation) Enabled() bool { return s.line.enabled() }
