package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ctc-blinky/internal/blink"
	"github.com/sweeney/ctc-blinky/internal/status"
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
	"levelOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"ms": func(d time.Duration) string {
		return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="1">
<title>Blinky Bench</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.high { color: green; font-weight: bold; }
.low { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.storm { color: red; font-weight: bold; }
</style>
</head>
<body>
<h1>Blinky Bench</h1>

<h2>LED</h2>
<table>
<tr><th>PB5</th><td id="led-level" class="{{if eq (levelOrUnknown (printf "%s" .Level)) "HIGH"}}high{{else if eq (levelOrUnknown (printf "%s" .Level)) "LOW"}}low{{else}}unknown{{end}}">{{levelOrUnknown (printf "%s" .Level)}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
<tr><th>Rises</th><td>{{.Counts.Rises}}</td></tr>
<tr><th>Falls</th><td>{{.Counts.Falls}}</td></tr>
<tr><th>Half period (last)</th><td>{{ms .Stats.Last}}</td></tr>
<tr><th>Half period (min/max)</th><td>{{ms .Stats.Min}} / {{ms .Stats.Max}}</td></tr>
</table>

<h2>Timer1</h2>
<table>
<tr><th>Clock</th><td>{{.Config.ClockHz}} Hz</td></tr>
<tr><th>Prescaler</th><td>{{.Config.Prescaler}}</td></tr>
<tr><th>OCR1A</th><td>{{.Config.Threshold}}</td></tr>
<tr><th>Period</th><td>{{ms .Period}}</td></tr>
<tr><th>Ack</th><td>{{.Config.Ack}}</td></tr>
<tr><th>Compare matches</th><td>{{.Timer.Matches}}</td></tr>
<tr><th>Serviced</th><td>{{.Timer.Serviced}}</td></tr>
<tr><th>Storms</th><td{{if .Timer.Storms}} class="storm"{{end}}>{{.Timer.Storms}}</td></tr>
<tr><th>Simulated</th><td>{{uptime .Timer.Elapsed}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>GPIO mirror</th><td>{{if lt .Config.GPIOLine 0}}disabled{{else}}line {{.Config.GPIOLine}}{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Period time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Period:   blink.Period(snap.Config.ClockHz, snap.Config.Prescaler, snap.Config.Threshold),
	}
	indexTmpl.Execute(w, data)
}
