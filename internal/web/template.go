package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/status"
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
	"bpm": func(v float64) string {
		if v <= 0 {
			return "-"
		}
		return fmt.Sprintf("%.1f", v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cardio Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.recording { color: green; font-weight: bold; }
.complete { color: green; }
.error { color: red; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Cardio Sensor</h1>

<h2>Session</h2>
<table>
<tr><th>State</th><td class="{{if eq .StateText "recording"}}recording{{else if eq .StateText "complete"}}complete{{else if eq .StateText "error"}}error{{else}}idle{{end}}">{{.StateText}}</td></tr>
{{if .SessionError}}<tr><th>Error</th><td class="error">{{.SessionError}}</td></tr>{{end}}
<tr><th>Heart Rate</th><td>{{bpm .LastBPM}} bpm</td></tr>
<tr><th>Beat Confidence</th><td>{{pct .LastConfidence}}</td></tr>
<tr><th>Beats</th><td>{{.BeatsTotal}}</td></tr>
<tr><th>RR Intervals Kept</th><td>{{.IntervalsKept}}</td></tr>
{{if .LastResultID}}<tr><th>Last Result</th><td><a href="/session/result">{{.LastResultID}}</a></td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.NATSURL}}<tr><th>NATS</th><td>{{.Config.NATSURL}}</td></tr>{{end}}
</table>

<h2>Session Counts</h2>
<table>
<tr><th>Started</th><td>{{.Counts.Started}}</td></tr>
<tr><th>Completed</th><td>{{.Counts.Completed}}</td></tr>
<tr><th>Failed</th><td>{{.Counts.Failed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Sample Interval</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Session Cap</th><td>{{.Config.MaxSessionMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		StateText string
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		StateText: stateText(snap),
	}
	indexTmpl.Execute(w, data)
}

func stateText(snap status.Snapshot) string {
	if snap.SessionState == "" {
		return "idle"
	}
	return string(snap.SessionState)
}
