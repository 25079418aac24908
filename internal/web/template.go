package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/church-clock/internal/logic"
	"github.com/sweeney/church-clock/internal/status"
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
	"offset": formatOffset,
	"pendulumClass": func(s logic.PendulumCatcherState) string {
		switch s {
		case logic.PendulumError:
			return "fault"
		case logic.PendulumCatching, logic.PendulumFreeing:
			return "moving"
		case logic.PendulumCaught, logic.PendulumFreed:
			return "ok"
		}
		return "unknown"
	},
	"winderClass": func(s logic.ClockWinderState) string {
		switch s {
		case logic.WinderWindingStriking, logic.WinderWindingTimekeeping:
			return "moving"
		case logic.WinderIdle:
			return "ok"
		}
		return "unknown"
	},
}).Parse(indexHTML))

// formatOffset renders a chime offset with its sign, e.g. "+3.0s (late)".
func formatOffset(seconds float64) string {
	switch {
	case seconds > 0:
		return fmt.Sprintf("+%.1fs (late)", seconds)
	case seconds < 0:
		return fmt.Sprintf("%.1fs (early)", seconds)
	}
	return "0.0s (on time)"
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Church Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.moving { color: #06c; font-weight: bold; }
.fault { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Church Clock</h1>

<h2>Mechanism</h2>
<table>
<tr><th>Pendulum catcher</th><td class="{{pendulumClass .Pendulum}}">{{.Pendulum}}</td></tr>
<tr><th>Winder</th><td class="{{winderClass .Winder}}">{{.Winder}}</td></tr>
</table>

<h2>Last chime</h2>
<table>
{{with .LastClockTime}}<tr><th>Strikes</th><td>{{.NumberOfChimes}}</td></tr>
<tr><th>Offset</th><td>{{offset .OffsetSeconds}}</td></tr>
<tr><th>First strike</th><td>{{.FirstChime.Format "2006-01-02 15:04:05"}}</td></tr>
{{else}}<tr><td>No chime heard yet</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Chime sessions</th><td>{{.Counts.ChimeSessions}}</td></tr>
<tr><th>Pendulum faults</th><td>{{.Counts.PendulumFaults}}</td></tr>
<tr><th>Commands</th><td>{{.Counts.Commands}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Pendulum timeout</th><td>{{.Config.PendulumTimeoutMs}}ms</td></tr>
<tr><th>Chime window</th><td>{{.Config.ChimeWindowMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a> · <a href="/ready?full=1">health</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		zap.S().Warnf("web: render index: %v", err)
	}
}
