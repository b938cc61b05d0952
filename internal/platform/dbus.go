package platform

import (
	"context"
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"

	"github.com/sweeney/gesture-sensor/internal/logic"
)

const (
	screenSaverName  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	screenSaverIface = "org.freedesktop.ScreenSaver"
	activeChanged    = "ActiveChanged"
)

// DBusScreen tracks the desktop screensaver on the session bus. The display
// is interactive while the screensaver is inactive.
type DBusScreen struct {
	conn *dbus.Conn
}

// NewDBusScreen opens a private session bus connection.
func NewDBusScreen() (*DBusScreen, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBusScreen{conn: conn}, nil
}

// DisplayInteractive asks the screensaver whether it is active.
func (d *DBusScreen) DisplayInteractive() (bool, error) {
	var active bool
	obj := d.conn.Object(screenSaverName, screenSaverPath)
	if err := obj.Call(screenSaverIface+".GetActive", 0).Store(&active); err != nil {
		return false, fmt.Errorf("screensaver GetActive: %w", err)
	}
	return !active, nil
}

// Notify subscribes to ActiveChanged and posts a screen event for each
// signal until ctx is done.
func (d *DBusScreen) Notify(ctx context.Context, post func(logic.Event)) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(screenSaverPath),
		dbus.WithMatchInterface(screenSaverIface),
		dbus.WithMatchMember(activeChanged),
	}
	if err := d.conn.AddMatchSignal(opts...); err != nil {
		return fmt.Errorf("subscribe %s: %w", activeChanged, err)
	}

	signals := make(chan *dbus.Signal, 16)
	d.conn.Signal(signals)

	go func() {
		defer func() {
			d.conn.RemoveSignal(signals)
			if err := d.conn.RemoveMatchSignal(opts...); err != nil {
				log.Printf("dbus: unsubscribe %s: %v", activeChanged, err)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if ev, ok := signalEvent(sig); ok {
					post(ev)
				}
			}
		}
	}()
	return nil
}

// Close releases the bus connection.
func (d *DBusScreen) Close() error {
	return d.conn.Close()
}

// signalEvent converts an ActiveChanged signal into a screen event.
func signalEvent(sig *dbus.Signal) (logic.Event, bool) {
	if sig == nil || sig.Name != screenSaverIface+"."+activeChanged || len(sig.Body) != 1 {
		return logic.Event{}, false
	}
	active, ok := sig.Body[0].(bool)
	if !ok {
		log.Printf("dbus: unexpected %s body %T", activeChanged, sig.Body[0])
		return logic.Event{}, false
	}
	return screenEvent(!active), true
}
