package main

import (
	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/config"
	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/logic"
	"github.com/sweeney/gesture-sensor/internal/metrics"
	"github.com/sweeney/gesture-sensor/internal/sensor"
)

// buildWiring binds the real sensors to the GPIO lines in lines and the
// actions to emitter.
func buildWiring(w gpio.Watcher, lines config.GPIOConfig, emitter action.Emitter, rec metrics.Recorder) logic.Wiring {
	opts := action.Options{Emitter: emitter, Recorder: rec}
	return logic.Wiring{
		CameraAction: func() logic.Action { return action.NewCameraActivation(opts) },
		DozeAction: func(screen logic.ScreenView) logic.Action {
			return action.NewDozePulse(screen, opts)
		},
		SilenceAction: func() logic.Action { return action.NewSilence(opts) },

		CameraSensor: func(camera logic.Action) logic.Sensor {
			return sensor.NewCameraActivation(w, lines.Camera, camera, rec)
		},
		FlatUpSensor: func(screen logic.ScreenView, doze logic.Action) logic.Sensor {
			return sensor.NewFlatUp(w, lines.FlatUp, screen, doze, rec)
		},
		IRSensor: func(doze, silence logic.Action) logic.IRSensor {
			return sensor.NewIRGesture(w, sensor.IRLines{Wake: lines.IRWake, Silence: lines.IRSilence}, doze, silence, rec)
		},
		StowSensor: func(screen logic.ScreenView, doze logic.Action) logic.Sensor {
			return sensor.NewStow(w, lines.Stow, screen, doze, rec)
		},
	}
}
