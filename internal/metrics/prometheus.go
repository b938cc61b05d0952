package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gesture_sensor"

// PrometheusRecorder implements Recorder using Prometheus counters.
type PrometheusRecorder struct {
	reg         *prom.Registry
	actions     *prom.CounterVec
	toggles     *prom.CounterVec
	transitions *prom.CounterVec
}

// NewPrometheusRecorder constructs the counters and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		actions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Gesture actions by action and result",
		}, []string{"action", "result"}),
		toggles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_toggles_total",
			Help:      "Sensor arm/disarm changes by sensor and new state",
		}, []string{"sensor", "state"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "screen_transitions_total",
			Help:      "Screen transitions handled by the controller",
		}, []string{"screen"}),
	}
	reg.MustRegister(pr.actions, pr.toggles, pr.transitions)
	return pr
}

func (p *PrometheusRecorder) ActionPerformed(action string) {
	p.actions.WithLabelValues(action, "performed").Inc()
}

func (p *PrometheusRecorder) ActionSuppressed(action string) {
	p.actions.WithLabelValues(action, "suppressed").Inc()
}

func (p *PrometheusRecorder) SensorToggled(sensor string, enabled bool) {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	p.toggles.WithLabelValues(sensor, state).Inc()
}

func (p *PrometheusRecorder) ScreenTransition(on bool) {
	screen := "off"
	if on {
		screen = "on"
	}
	p.transitions.WithLabelValues(screen).Inc()
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
