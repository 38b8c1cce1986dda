package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/plant-irrigator/internal/state"
)

var funcs = template.FuncMap{
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
	"percent": func(p *int) string {
		if p == nil {
			return "--"
		}
		return fmt.Sprintf("%d%%", *p)
	},
	"celsius": func(t *float64) string {
		if t == nil {
			return "--"
		}
		return fmt.Sprintf("%.1f°C", *t)
	},
	"humidity": func(h *float64) string {
		if h == nil {
			return "--"
		}
		return fmt.Sprintf("%.0f%%", *h)
	},
}

const style = `<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.err { color: red; }
input { font-family: monospace; width: 100%; margin: 4px 0 12px; }
</style>`

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Config.PlantName}}{{.Config.PlantName}}{{else}}Plant Irrigator{{end}}</title>
` + style + `
</head>
<body>
<h1>{{if .Config.PlantName}}{{.Config.PlantName}}{{else}}Plant Irrigator{{end}}</h1>

<h2>Readings</h2>
<table>
<tr><th>Soil moisture</th><td{{if .Reading.MoistureFailed}} class="err"{{end}}>{{percent .Reading.Moisture}}</td></tr>
<tr><th>Outside</th><td{{if .Reading.AmbientFailed}} class="err"{{end}}>{{celsius .Reading.OutsideTemp}} / {{humidity .Reading.OutsideHumidity}}</td></tr>
</table>

<h2>Pump</h2>
<table>
<tr><th>Enabled</th><td class="{{if .Pump.Active}}on{{else}}off{{end}}">{{if .Pump.Active}}yes{{else}}no{{end}}</td></tr>
<tr><th>Running</th><td>{{if .Pump.Running}}{{.Pump.Phase}}{{else}}no{{end}}</td></tr>
<tr><th>Threshold</th><td>{{.Config.Threshold}}%</td></tr>
<tr><th>Duration</th><td>{{.Config.PumpSeconds}}s</td></tr>
{{if .Status}}<tr><th>Status</th><td>{{.Status}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
{{if .Config.PlantDate}}<tr><th>Planted</th><td>{{.Config.PlantDate}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}}{{if .Network.SSID}} ({{.Network.SSID}}){{end}}</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
<tr><th>MQTT</th><td>{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
</table>

<p><a href="/get_backend_data">JSON</a></p>
</body>
</html>
`))

var formTmpl = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Plant Irrigator setup</title>
` + style + `
</head>
<body>
<h1>Wi-Fi setup</h1>
<form action="/configure" method="get">
<label for="ssid">Network name</label>
<input id="ssid" name="ssid" value="{{with .Credentials}}{{.SSID}}{{end}}" required>
<label for="password">Password</label>
<input id="password" name="password" type="password">
<input type="submit" value="Save">
</form>
</body>
</html>
`))

var savedTmpl = template.Must(template.New("saved").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Plant Irrigator setup</title>
` + style + `
</head>
<body>
<h1>Saved</h1>
<p>Credentials for <b>{{.}}</b> stored. The controller restarts and joins the network.</p>
</body>
</html>
`))

func renderStatus(w io.Writer, snap state.Snapshot) {
	data := struct {
		state.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	statusTmpl.Execute(w, data)
}

func renderForm(w io.Writer, snap state.Snapshot) {
	formTmpl.Execute(w, snap)
}

func renderSaved(w io.Writer, ssid string) {
	savedTmpl.Execute(w, ssid)
}
