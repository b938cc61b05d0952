// Package platform answers the controller's power and settings queries and
// turns display notifications into screen events.
package platform

import (
	"context"

	"github.com/sweeney/gesture-sensor/internal/logic"
)

// ScreenSource reports whether the display is interactive and delivers
// subsequent screen transitions.
type ScreenSource interface {
	DisplayInteractive() (bool, error)
	Notify(ctx context.Context, post func(logic.Event)) error
}

// DozeSource reports the platform doze policy.
type DozeSource interface {
	DozeEnabled() (bool, error)
}

// System combines a display source and a doze source into a logic.Platform.
type System struct {
	Display ScreenSource
	Doze    DozeSource
}

// DisplayInteractive delegates to the display source.
func (s System) DisplayInteractive() (bool, error) {
	return s.Display.DisplayInteractive()
}

// DozeEnabled delegates to the doze source.
func (s System) DozeEnabled() (bool, error) {
	return s.Doze.DozeEnabled()
}

// screenEvent maps a display state to a controller event.
func screenEvent(interactive bool) logic.Event {
	if interactive {
		return logic.Event{Kind: logic.EventScreenOn}
	}
	return logic.Event{Kind: logic.EventScreenOff}
}
