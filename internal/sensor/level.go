package sensor

import (
	"sync"

	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/logic"
	"github.com/sweeney/gesture-sensor/internal/metrics"
)

type level int

const (
	levelUnknown level = iota
	levelActive
	levelInactive
)

// releaseSensor tracks a condition line (device lying flat, device stowed)
// and performs its action when the condition ends while the screen is off.
type releaseSensor struct {
	line   *lineSensor
	screen logic.ScreenView
	action logic.Action

	mu   sync.Mutex
	last level
}

func newReleaseSensor(name string, w gpio.Watcher, offset int, screen logic.ScreenView, action logic.Action, rec metrics.Recorder) *releaseSensor {
	s := &releaseSensor{screen: screen, action: action}
	s.line = newLineSensor(name, w, offset, rec, s.onEdge)
	return s
}

// onEdge fires on the first inactive edge after anything but another
// inactive edge. The line only reports edges, so an inactive edge seen right
// after arming still means the condition just ended.
func (s *releaseSensor) onEdge(e gpio.LineEvent) {
	s.mu.Lock()
	prev := s.last
	if e.Active {
		s.last = levelActive
	} else {
		s.last = levelInactive
	}
	s.mu.Unlock()

	if e.Active || prev == levelInactive {
		return
	}
	if s.screen.ScreenOn() {
		return
	}
	s.action.Perform()
}

func (s *releaseSensor) enable() {
	s.mu.Lock()
	s.last = levelUnknown
	s.mu.Unlock()
	s.line.enable()
}

// FlatUp pulses the doze display when the device is picked up from lying
// face up.
type FlatUp struct {
	*releaseSensor
}

// NewFlatUp creates a disabled flat-up sensor.
func NewFlatUp(w gpio.Watcher, offset int, screen logic.ScreenView, action logic.Action, rec metrics.Recorder) *FlatUp {
	return &FlatUp{newReleaseSensor(NameFlatUp, w, offset, screen, action, rec)}
}

// Enable arms the sensor.
func (s *FlatUp) Enable() { s.enable() }

// Disable disarms the sensor.
func (s *FlatUp) Disable() { s.line.disable() }

// Enabled reports whether the sensor is armed.
func (s *FlatUp) Enabled() bool { return s.line.enabled() }

// Stow pulses the doze display when the device is taken out of a pocket or bag.
type Stow struct {
	*releaseSensor
}

// NewStow creates a disabled stow sensor.
func NewStow(w gpio.Watcher, offset int, screen logic.ScreenView, action logic.Action, rec metrics.Recorder) *Stow {
	return &Stow{newReleaseSensor(NameStow, w, offset, screen, action, rec)}
}

// Enable arms the sensor.
func (s *Stow) Enable() { s.enable() }

// Disable disarms the sensor.
func (s *Stow) Disable() { s.line.disable() }

// Enabled reports whether the sensor is armed.
func (s *Stow) Enabled() bool { return s.line.enabled() }
