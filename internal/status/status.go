// Package status provides a thread-safe status tracker for the gesture-sensor daemon.
// It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gesture-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker       string
	TopicPrefix  string
	HTTPAddr     string
	ScreenSource string
	PrefsPath    string
	SettingsPath string
	GPIOChip     string
	DebounceMs   int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Controller    logic.Snapshot
	Sensors       logic.SensorStates
	Ready         bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the controller state and sensor enablement.
// Called from runLoop after every handled event.
func (t *Tracker) Update(ctrl logic.Snapshot, sensors logic.SensorStates) {
	t.mu.Lock()
	t.snap.Controller = ctrl
	t.snap.Sensors = sensors
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
