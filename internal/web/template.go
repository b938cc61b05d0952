package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/gesture-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Gesture Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Gesture Sensor</h1>

<h2>Screen</h2>
<table>
<tr><th>Screen</th><td id="screen-state" class="{{if eq .Screen "ON"}}on{{else if eq .Screen "OFF"}}off{{else}}unknown{{end}}">{{.Screen}}</td></tr>
<tr><th>Doze policy</th><td>{{if .Controller.DozeEnabled}}enabled{{else}}disabled{{end}}</td></tr>
</table>

<h2>Sensors</h2>
<table>
<tr><th>Camera</th><td class="{{onoff .Sensors.Camera}}">{{onoff .Sensors.Camera}}</td></tr>
<tr><th>Flat up</th><td class="{{onoff .Sensors.FlatUp}}">{{onoff .Sensors.FlatUp}}</td></tr>
<tr><th>Stow</th><td class="{{onoff .Sensors.Stow}}">{{onoff .Sensors.Stow}}</td></tr>
<tr><th>IR wake</th><td class="{{onoff .Sensors.IRWake}}">{{onoff .Sensors.IRWake}}</td></tr>
<tr><th>IR silence</th><td class="{{onoff .Sensors.IRSilence}}">{{onoff .Sensors.IRSilence}}</td></tr>
</table>

<h2>Preferences</h2>
<table>
<tr><th>gesture_camera</th><td>{{.Controller.Flags.Camera}}</td></tr>
<tr><th>gesture_ir_wake</th><td>{{.Controller.Flags.IRWake}}</td></tr>
<tr><th>gesture_ir_silence</th><td>{{.Controller.Flags.IRSilence}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topics</th><td>{{.Config.TopicPrefix}}/#</td></tr>
<tr><th>Screen source</th><td>{{.Config.ScreenSource}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Handled</th><td>{{.Controller.EventsHandled}}</td></tr>
<tr><th>Screen on</th><td>{{.Controller.ScreenOnCount}}</td></tr>
<tr><th>Screen off</th><td>{{.Controller.ScreenOffCount}}</td></tr>
<tr><th>Preference changes</th><td>{{.Controller.PrefChangeCount}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO chip</th><td>{{.Config.GPIOChip}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Screen string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Screen:   status.ScreenString(snap),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
