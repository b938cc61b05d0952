package logic

import (
	"log"
	"sync"
)

// eventQueueSize bounds the controller's input queue.
const eventQueueSize = 64

// Wiring builds the controller's collaborators. The controller calls each
// constructor once and connects them in a fixed topology:
//
//	camera sensor -> camera action
//	flat-up sensor -> doze action
//	IR sensor     -> doze action, silence action
//	stow sensor   -> doze action
type Wiring struct {
	CameraAction  func() Action
	DozeAction    func(screen ScreenView) Action
	SilenceAction func() Action

	CameraSensor func(camera Action) Sensor
	FlatUpSensor func(screen ScreenView, doze Action) Sensor
	IRSensor     func(doze, silence Action) IRSensor
	StowSensor   func(screen ScreenView, doze Action) Sensor
}

// Controller decides which gesture sensors are armed based on screen state,
// gesture preferences and the platform doze policy.
//
// Inputs arrive on a single FIFO queue (see Post and Events) and must be
// handled by one goroutine. The controller takes no locks.
type Controller struct {
	screen   *ScreenState
	prefs    PreferenceStore
	platform Platform

	camera Sensor
	flatUp Sensor
	ir     IRSensor
	stow   Sensor

	flags       Flags
	dozeEnabled bool

	eventsHandled   int
	screenOnCount   int
	screenOffCount  int
	prefChangeCount int

	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
}

// NewController builds the sensors and actions, loads preferences, arms the
// preference-driven sensors and applies the current screen state.
func NewController(prefs PreferenceStore, platform Platform, w Wiring) *Controller {
	c := &Controller{
		screen:      &ScreenState{},
		prefs:       prefs,
		platform:    platform,
		dozeEnabled: true,
		events:      make(chan Event, eventQueueSize),
		done:        make(chan struct{}),
	}

	cameraAction := w.CameraAction()
	dozeAction := w.DozeAction(c.screen)
	silenceAction := w.SilenceAction()

	c.camera = w.CameraSensor(cameraAction)
	c.flatUp = w.FlatUpSensor(c.screen, dozeAction)
	c.ir = w.IRSensor(dozeAction, silenceAction)
	c.stow = w.StowSensor(c.screen, dozeAction)

	c.loadPreferences()
	prefs.OnChange(func(key string) {
		c.Post(Event{Kind: EventPreferenceChanged, Key: key})
	})

	if c.flags.Camera {
		c.camera.Enable()
	}
	if c.flags.IRWake {
		c.ir.EnableGesture(IRGestureWake)
	}
	if c.flags.IRSilence {
		c.ir.EnableGesture(IRGestureSilence)
	}

	if c.displayInteractive() {
		c.ScreenTurnedOn()
	} else {
		c.ScreenTurnedOff()
	}

	return c
}

// Screen returns the read-only view of the shared screen flag.
func (c *Controller) Screen() ScreenView {
	return c.screen
}

// Events returns the controller's input queue.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Post appends an event to the input queue. Events are handled strictly in
// the order they were posted. After Stop, Post drops the event instead of
// blocking on a queue nobody drains.
func (c *Controller) Post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
		log.Printf("controller: stopped, dropping %s event", ev.Kind)
	}
}

// Stop releases producers blocked in Post. It is safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Handle dispatches a single event by kind.
func (c *Controller) Handle(ev Event) {
	c.eventsHandled++
	switch ev.Kind {
	case EventScreenOn:
		c.ScreenTurnedOn()
	case EventScreenOff:
		c.ScreenTurnedOff()
	case EventPreferenceChanged:
		c.PreferenceChanged(ev.Key)
	default:
		log.Printf("controller: ignoring unknown event kind %q", ev.Kind)
	}
}

// ScreenTurnedOn disarms the doze-only sensors and tells the IR sensor the
// screen is lit. IR sub-gesture enablement is left alone.
func (c *Controller) ScreenTurnedOn() {
	c.screenOnCount++
	c.screen.set(true)
	c.flatUp.Disable()
	c.stow.Disable()
	c.ir.SetScreenOn(true)
}

// ScreenTurnedOff arms the doze-only sensors if the platform doze policy is
// enabled at this moment. With doze disabled they are disarmed and the IR
// sensor is not told about the transition.
func (c *Controller) ScreenTurnedOff() {
	c.screenOffCount++
	c.screen.set(false)
	c.dozeEnabled = c.dozePolicy()
	if c.dozeEnabled {
		c.flatUp.Enable()
		c.stow.Enable()
		c.ir.SetScreenOn(false)
		return
	}
	c.flatUp.Disable()
	c.stow.Disable()
}

// PreferenceChanged refreshes the cached flag for key and applies it to the
// sensor it governs. Keys other than the three gesture keys are ignored.
func (c *Controller) PreferenceChanged(key string) {
	switch key {
	case KeyGestureIRWake:
		c.prefChangeCount++
		c.flags.IRWake = c.prefs.Bool(KeyGestureIRWake, true)
		c.applyIR(IRGestureWake, c.flags.IRWake)
	case KeyGestureIRSilence:
		c.prefChangeCount++
		c.flags.IRSilence = c.prefs.Bool(KeyGestureIRSilence, true)
		c.applyIR(IRGestureSilence, c.flags.IRSilence)
	case KeyGestureCamera:
		c.prefChangeCount++
		c.flags.Camera = c.prefs.Bool(KeyGestureCamera, true)
		if c.flags.Camera {
			c.camera.Enable()
		} else {
			c.camera.Disable()
		}
	}
}

// Flags returns the cached preference flags.
func (c *Controller) Flags() Flags {
	return c.flags
}

// Snapshot returns the controller state for status reporting.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		ScreenOn:        c.screen.ScreenOn(),
		Flags:           c.flags,
		DozeEnabled:     c.dozeEnabled,
		EventsHandled:   c.eventsHandled,
		ScreenOnCount:   c.screenOnCount,
		ScreenOffCount:  c.screenOffCount,
		PrefChangeCount: c.prefChangeCount,
	}
}

// Sensors returns the enablement of every sensor that can report it.
func (c *Controller) Sensors() SensorStates {
	return SensorStates{
		Camera:    sensorEnabled(c.camera),
		FlatUp:    sensorEnabled(c.flatUp),
		Stow:      sensorEnabled(c.stow),
		IRWake:    gestureEnabled(c.ir, IRGestureWake),
		IRSilence: gestureEnabled(c.ir, IRGestureSilence),
	}
}

func (c *Controller) loadPreferences() {
	c.flags = Flags{
		IRWake:    c.prefs.Bool(KeyGestureIRWake, true),
		IRSilence: c.prefs.Bool(KeyGestureIRSilence, true),
		Camera:    c.prefs.Bool(KeyGestureCamera, true),
	}
}

func (c *Controller) applyIR(g IRGesture, enabled bool) {
	if enabled {
		c.ir.EnableGesture(g)
	} else {
		c.ir.DisableGesture(g)
	}
}

// displayInteractive treats a failed query as interactive.
func (c *Controller) displayInteractive() bool {
	on, err := c.platform.DisplayInteractive()
	if err != nil {
		log.Printf("controller: display query failed, assuming interactive: %v", err)
		return true
	}
	return on
}

// dozePolicy fails open: a failed query counts as doze enabled.
func (c *Controller) dozePolicy() bool {
	enabled, err := c.platform.DozeEnabled()
	if err != nil {
		log.Printf("controller: doze policy query failed, assuming enabled: %v", err)
		return true
	}
	return enabled
}
