// Package sensor implements the gesture sensors on top of GPIO interrupt lines.
// Each sensor arms its line(s) on Enable and releases them on Disable; a
// recognized gesture performs the bound action directly on the GPIO event
// goroutine.
package sensor

import (
	"log"
	"sync"

	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/metrics"
)

// Sensor names used in logs and metrics.
const (
	NameCamera    = "camera"
	NameFlatUp    = "flat_up"
	NameStow      = "stow"
	NameIRWake    = "ir_wake"
	NameIRSilence = "ir_silence"
)

// lineSensor owns one watched line. Enable and Disable are idempotent.
type lineSensor struct {
	name    string
	watcher gpio.Watcher
	offset  int
	handle  func(gpio.LineEvent)
	rec     metrics.Recorder

	mu   sync.Mutex
	line gpio.Line
}

func newLineSensor(name string, w gpio.Watcher, offset int, rec metrics.Recorder, handle func(gpio.LineEvent)) *lineSensor {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &lineSensor{
		name:    name,
		watcher: w,
		offset:  offset,
		handle:  handle,
		rec:     rec,
	}
}

func (s *lineSensor) enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line != nil {
		return
	}
	line, err := s.watcher.Watch(s.offset, s.handle)
	if err != nil {
		log.Printf("sensor %s: enable failed: %v", s.name, err)
		return
	}
	s.line = line
	s.rec.SensorToggled(s.name, true)
	log.Printf("sensor %s: enabled (line %d)", s.name, s.offset)
}

func (s *lineSensor) disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == nil {
		return
	}
	if err := s.line.Close(); err != nil {
		log.Printf("sensor %s: release line: %v", s.name, err)
	}
	s.line = nil
	s.rec.SensorToggled(s.name, false)
	log.Printf("sensor %s: disabled", s.name)
}

func (s *lineSensor) enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line != nil
}
