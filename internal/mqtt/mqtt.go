// Package mqtt provides MQTT publishing and screen-state subscription with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/logic"
)

// DefaultTopicPrefix is the default root for all gesture-sensor topics.
const DefaultTopicPrefix = "device/gestures"

// Topics are the MQTT topics used by the daemon.
type Topics struct {
	Actions string // outbound action events
	System  string // outbound lifecycle events (STARTUP, SHUTDOWN, RECONNECTED)
	Screen  string // inbound screen state ("ON" / "OFF")
}

// NewTopics derives the topic set from a prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Actions: prefix + "/actions",
		System:  prefix + "/system",
		Screen:  prefix + "/screen",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishAction sends a gesture action event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishAction(event action.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for an action event.
type Payload struct {
	Gesture GesturePayload `json:"gesture"`
}

// GesturePayload contains the action event details.
type GesturePayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

// FormatPayload creates the JSON payload for an action event.
func FormatPayload(event action.Event) ([]byte, error) {
	payload := Payload{
		Gesture: GesturePayload{
			ID:        event.ID,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Action:    event.Action,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ParseScreenPayload converts a screen topic payload into a controller event.
// Accepts ON/OFF (any case, surrounding whitespace ignored).
func ParseScreenPayload(payload []byte) (logic.Event, error) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case "ON":
		return logic.Event{Kind: logic.EventScreenOn}, nil
	case "OFF":
		return logic.Event{Kind: logic.EventScreenOff}, nil
	}
	return logic.Event{}, fmt.Errorf("invalid screen payload %q", payload)
}
