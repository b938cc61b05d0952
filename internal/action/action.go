// Package action implements the gesture actions. Actions do not execute
// anything on the device themselves: each one publishes an event for the
// executor (camera launcher, display pulse, alert mute) to consume.
package action

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/gesture-sensor/internal/logic"
	"github.com/sweeney/gesture-sensor/internal/metrics"
)

// Action names, as published and used in metrics.
const (
	NameCameraActivation = "camera_activation"
	NameDozePulse        = "doze_pulse"
	NameSilence          = "silence"
)

// Event is a performed action.
type Event struct {
	ID        string
	Action    string
	Timestamp time.Time
}

// Emitter delivers action events. Implementations must be safe for concurrent
// use; sensors perform actions from their own event goroutines.
type Emitter interface {
	PublishAction(event Event) error
}

// Options are shared by every action.
type Options struct {
	Emitter  Emitter
	Recorder metrics.Recorder
	// Now supplies event timestamps. Defaults to time.Now.
	Now func() time.Time
}

type emitter struct {
	name string
	opts Options
}

func newEmitter(name string, opts Options) emitter {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return emitter{name: name, opts: opts}
}

// emit publishes the action. Failures are logged, never returned: the sensor
// that triggered the action has nothing useful to do with them.
func (e emitter) emit() {
	event := Event{
		ID:        uuid.NewString(),
		Action:    e.name,
		Timestamp: e.opts.Now(),
	}
	e.opts.Recorder.ActionPerformed(e.name)
	log.Printf("action: %s (id=%s)", e.name, event.ID)
	if err := e.opts.Emitter.PublishAction(event); err != nil {
		log.Printf("action %s: publish error: %v", e.name, err)
	}
}

// CameraActivation asks the executor to launch the camera.
type CameraActivation struct {
	emitter
}

// NewCameraActivation creates the camera activation action.
func NewCameraActivation(opts Options) *CameraActivation {
	return &CameraActivation{newEmitter(NameCameraActivation, opts)}
}

// Perform publishes a camera activation.
func (a *CameraActivation) Perform() { a.emit() }

// Silence asks the executor to silence the current alert.
type Silence struct {
	emitter
}

// NewSilence creates the silence action.
func NewSilence(opts Options) *Silence {
	return &Silence{newEmitter(NameSilence, opts)}
}

// Perform publishes a silence request.
func (a *Silence) Perform() { a.emit() }

// DozePulse asks the executor to briefly light the display in doze mode.
// A pulse is meaningless with the screen already on and is skipped.
type DozePulse struct {
	emitter
	screen logic.ScreenView
}

// NewDozePulse creates the doze pulse action reading the shared screen flag.
func NewDozePulse(screen logic.ScreenView, opts Options) *DozePulse {
	return &DozePulse{emitter: newEmitter(NameDozePulse, opts), screen: screen}
}

// Perform publishes a doze pulse unless the screen is on.
func (a *DozePulse) Perform() {
	if a.screen.ScreenOn() {
		a.opts.Recorder.ActionSuppressed(a.name)
		return
	}
	a.emit()
}
