package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Screen        string      `json:"screen"`
	DozeEnabled   bool        `json:"doze_enabled"`
	Ready         bool        `json:"ready"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Preferences   PrefsJSON   `json:"preferences"`
	Sensors       SensorsJSON `json:"sensors"`
	Counts        CountsJSON  `json:"event_counts"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// PrefsJSON is the JSON representation of the gesture preference flags.
type PrefsJSON struct {
	Camera    bool `json:"gesture_camera"`
	IRWake    bool `json:"gesture_ir_wake"`
	IRSilence bool `json:"gesture_ir_silence"`
}

// SensorsJSON reports which sensors are armed.
type SensorsJSON struct {
	Camera    bool `json:"camera"`
	FlatUp    bool `json:"flat_up"`
	Stow      bool `json:"stow"`
	IRWake    bool `json:"ir_wake"`
	IRSilence bool `json:"ir_silence"`
}

// CountsJSON is the JSON representation of controller event counts.
type CountsJSON struct {
	Handled     int `json:"handled"`
	ScreenOn    int `json:"screen_on"`
	ScreenOff   int `json:"screen_off"`
	PrefChanges int `json:"preference_changes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker       string `json:"broker"`
	TopicPrefix  string `json:"topic_prefix"`
	HTTPAddr     string `json:"http_addr"`
	ScreenSource string `json:"screen_source"`
	PrefsPath    string `json:"preferences_path"`
	SettingsPath string `json:"settings_path"`
	GPIOChip     string `json:"gpio_chip"`
	DebounceMs   int64  `json:"debounce_ms"`
}

// ScreenString renders the screen state, UNKNOWN until the first update.
func ScreenString(snap Snapshot) string {
	switch {
	case !snap.Ready:
		return "UNKNOWN"
	case snap.Controller.ScreenOn:
		return "ON"
	default:
		return "OFF"
	}
}

func buildInner(snap Snapshot) StatusInner {
	ctrl := snap.Controller
	return StatusInner{
		Screen:        ScreenString(snap),
		DozeEnabled:   ctrl.DozeEnabled,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Preferences: PrefsJSON{
			Camera:    ctrl.Flags.Camera,
			IRWake:    ctrl.Flags.IRWake,
			IRSilence: ctrl.Flags.IRSilence,
		},
		Sensors: SensorsJSON{
			Camera:    snap.Sensors.Camera,
			FlatUp:    snap.Sensors.FlatUp,
			Stow:      snap.Sensors.Stow,
			IRWake:    snap.Sensors.IRWake,
			IRSilence: snap.Sensors.IRSilence,
		},
		Counts: CountsJSON{
			Handled:     ctrl.EventsHandled,
			ScreenOn:    ctrl.ScreenOnCount,
			ScreenOff:   ctrl.ScreenOffCount,
			PrefChanges: ctrl.PrefChangeCount,
		},
		Config: ConfigJSON{
			Broker:       snap.Config.Broker,
			TopicPrefix:  snap.Config.TopicPrefix,
			HTTPAddr:     snap.Config.HTTPAddr,
			ScreenSource: snap.Config.ScreenSource,
			PrefsPath:    snap.Config.PrefsPath,
			SettingsPath: snap.Config.SettingsPath,
			GPIOChip:     snap.Config.GPIOChip,
			DebounceMs:   snap.Config.DebounceMs,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
