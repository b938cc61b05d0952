package logic

// SensorStates reports the armed state of each sensor.
type SensorStates struct {
	Camera    bool
	FlatUp    bool
	Stow      bool
	IRWake    bool
	IRSilence bool
}

// enabledReporter is implemented by sensors that expose their armed state.
type enabledReporter interface {
	Enabled() bool
}

// gestureReporter is implemented by IR sensors that expose per-gesture state.
type gestureReporter interface {
	GestureEnabled(g IRGesture) bool
}

func sensorEnabled(s Sensor) bool {
	if r, ok := s.(enabledReporter); ok {
		return r.Enabled()
	}
	return false
}

func gestureEnabled(s IRSensor, g IRGesture) bool {
	if r, ok := s.(gestureReporter); ok {
		return r.GestureEnabled(g)
	}
	return false
}
