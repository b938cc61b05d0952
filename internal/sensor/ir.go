package sensor

import (
	"sync/atomic"

	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/logic"
	"github.com/sweeney/gesture-sensor/internal/metrics"
)

// IRLines holds the interrupt line offsets of the IR gesture sensor.
type IRLines struct {
	Wake    int
	Silence int
}

// IRGesture recognizes two hand gestures over the infrared sensor:
// a wave (wake) that pulses the doze display while the screen is off, and a
// cover (silence) that silences an incoming alert. Each gesture is armed
// independently.
type IRGesture struct {
	wake    *lineSensor
	silence *lineSensor

	doze       logic.Action
	silenceAct logic.Action
	screenIsOn atomic.Bool
}

// NewIRGesture creates an IR sensor with both gestures disarmed. Until told
// otherwise the screen is assumed on, so wake gestures do not pulse.
func NewIRGesture(w gpio.Watcher, lines IRLines, doze, silence logic.Action, rec metrics.Recorder) *IRGesture {
	s := &IRGesture{doze: doze, silenceAct: silence}
	s.screenIsOn.Store(true)
	s.wake = newLineSensor(NameIRWake, w, lines.Wake, rec, s.onWake)
	s.silence = newLineSensor(NameIRSilence, w, lines.Silence, rec, s.onSilence)
	return s
}

func (s *IRGesture) onWake(e gpio.LineEvent) {
	if !e.Active || s.screenIsOn.Load() {
		return
	}
	s.doze.Perform()
}

func (s *IRGesture) onSilence(e gpio.LineEvent) {
	if e.Active {
		s.silenceAct.Perform()
	}
}

func (s *IRGesture) gesture(g logic.IRGesture) *lineSensor {
	switch g {
	case logic.IRGestureWake:
		return s.wake
	case logic.IRGestureSilence:
		return s.silence
	}
	return nil
}

// Enable arms both gestures.
func (s *IRGesture) Enable() {
	s.wake.enable()
	s.silence.enable()
}

// Disable disarms both gestures.
func (s *IRGesture) Disable() {
	s.wake.disable()
	s.silence.disable()
}

// EnableGesture arms a single gesture.
func (s *IRGesture) EnableGesture(g logic.IRGesture) {
	if l := s.gesture(g); l != nil {
		l.enable()
	}
}

// DisableGesture disarms a single gesture.
func (s *IRGesture) DisableGesture(g logic.IRGesture) {
	if l := s.gesture(g); l != nil {
		l.disable()
	}
}

// GestureEnabled reports whether a gesture is armed.
func (s *IRGesture) GestureEnabled(g logic.IRGesture) bool {
	if l := s.gesture(g); l != nil {
		return l.enabled()
	}
	return false
}

// SetScreenOn records the screen hint used to gate wake gestures.
func (s *IRGesture) SetScreenOn(on bool) {
	s.screenIsOn.Store(on)
}
