package dashboard

import (
	"fmt"
	"html/template"
	"time"
)

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"fmtTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"fmtActual": func(v *int) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%d", *v)
	},
	"fmtPerc": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
}).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{- if gt .RefreshSeconds 0 }}
<meta http-equiv="refresh" content="{{ .RefreshSeconds }}">
{{- end }}
<title>UK Carbon Intensity Tracker</title>
<style>
:root { --bg: #fff; --fg: #262730; --side: #f0f2f6; --border: #dee2e6; --muted: #6c757d; --accent: #4c78a8; }
* { box-sizing: border-box; margin: 0; padding: 0; }
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: var(--bg); color: var(--fg); line-height: 1.5; display: flex; min-height: 100vh; }
aside { width: 240px; background: var(--side); padding: 2rem 1rem; flex-shrink: 0; }
aside h2 { font-size: 1.1rem; margin-bottom: 1rem; }
aside p { font-size: .875rem; margin-bottom: .5rem; }
aside a { display: block; padding: .35rem .5rem; color: var(--fg); text-decoration: none; border-radius: 4px; }
aside a.selected { background: var(--accent); color: #fff; }
main { flex: 1; padding: 2rem 3rem; max-width: 1400px; }
.logo { text-align: center; margin-bottom: 1rem; }
h1 { font-size: 2rem; margin-bottom: .5rem; }
h3 { font-size: 1.2rem; margin: 1rem 0 .5rem; }
.caption { color: var(--muted); font-size: .875rem; margin: .5rem 0 1rem; }
.columns { display: grid; grid-template-columns: 2fr 1fr; gap: 1.5rem; }
.chart svg { max-width: 100%; height: auto; }
.notice { padding: 1rem; background: var(--side); border-radius: 4px; }
.error { padding: 1rem; background: #fde8e8; color: #9b1c1c; border: 1px solid #f8b4b4; border-radius: 4px; }
table { border-collapse: collapse; margin-top: 1.5rem; font-size: .875rem; }
th, td { border: 1px solid var(--border); padding: .25rem .75rem; text-align: left; }
th { background: var(--side); }
</style>
</head>
<body>
<aside>
<h2>Navigation</h2>
<p>Select view:</p>
{{- range .Nav }}
<a href="?view={{ .View }}"{{ if .Selected }} class="selected"{{ end }}>{{ .Label }}</a>
{{- end }}
</aside>
<main>
<div class="logo"><img src="https://upload.wikimedia.org/wikipedia/commons/thumb/4/42/Globe_icon.svg/200px-Globe_icon.svg.png" width="100" alt="globe"></div>
<h1>UK Carbon Intensity Tracker</h1>
<p>Welcome! This dashboard tracks the carbon intensity of Great Britain's electricity grid in real-time.<br>
Use the sidebar to select which data you want to see.</p>
<p class="caption">Auto-refreshes every {{ .RefreshLabel }} to match National Grid updates.</p>
<p>Last updated at: <strong>{{ .LastUpdated }}</strong></p>
{{- if .Error }}
<div class="error" role="alert">{{ .Error }}</div>
{{- else if .Intensity }}
{{- with .Intensity }}
<div class="columns">
<section class="chart">
<h3>Today's Carbon Intensity (gCO₂/kWh)</h3>
{{- if .Chart }}
{{ .Chart }}
{{- else }}
<div class="notice">{{ .Notice }}</div>
{{- end }}
</section>
<section>
<h3>Info</h3>
<p>This chart shows the <strong>forecasted carbon intensity</strong> in gCO₂/kWh for each half-hour block today.</p>
<p>Color-coded index: very low, low, moderate, high, very high.</p>
</section>
</div>
<table id="intensity-table">
<thead><tr><th>from</th><th>to</th><th>forecast</th><th>actual</th><th>index</th></tr></thead>
<tbody>
{{- range .Rows }}
<tr><td>{{ fmtTime .From }}</td><td>{{ fmtTime .To }}</td><td>{{ .Forecast }}</td><td>{{ fmtActual .Actual }}</td><td>{{ .Index }}</td></tr>
{{- end }}
</tbody>
</table>
{{- end }}
{{- else if .Mix }}
{{- with .Mix }}
<section class="chart">
<h3>Current Electricity Generation Mix</h3>
{{- if .Chart }}
{{ .Chart }}
{{- else }}
<div class="notice">No generation mix published.</div>
{{- end }}
</section>
<table id="mix-table">
<thead><tr><th>fuel</th><th>perc</th></tr></thead>
<tbody>
{{- range .Rows }}
<tr><td>{{ .Fuel }}</td><td>{{ fmtPerc .Perc }}</td></tr>
{{- end }}
</tbody>
</table>
{{- end }}
{{- end }}
</main>
</body>
</html>
`
