package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const indexTemplate = "index"

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>SMARTi EMS</title>
<style>
body { font-family: sans-serif; margin: 2em; }
td, th { padding: 0.2em 1em 0.2em 0; text-align: left; }
.fault { color: #b00; }
</style>
</head>
<body>
<h1>SMARTi EMS</h1>
<table>
<tr><th>Draw</th><td>{{printf "%.0f" .Status.DynamicPowerW}} W{{if not .Status.SensorOK}} <span class="fault">(sensor unavailable)</span>{{end}}</td></tr>
<tr><th>Target</th><td>{{printf "%.2f" .Status.EnergyTargetKW}} kW</td></tr>
<tr><th>Last gap</th><td>{{printf "%.0f" .Status.GapW}} W</td></tr>
<tr><th>Mode</th><td>{{.Status.Mode}}</td></tr>
<tr><th>Power source</th><td>{{.Config.PowerSourceEntity}}</td></tr>
</table>
<h2>Category 1</h2>
<ol>
{{range .Config.Category1}}<li>{{.}}{{if index $.Off .}} (off){{end}}</li>
{{else}}<li>No devices added</li>
{{end}}
</ol>
</body>
</html>
`

// index renders a read-only overview for the Home Assistant ingress panel.
func (h *Handler) index(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetStatus(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "index_status_failed", err)
		return
	}
	cfg, err := h.services.Configuration.Get(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetConfig, "index_config_failed", err)
		return
	}
	off := make(map[string]bool, len(st.DevicesOff))
	for _, id := range st.DevicesOff {
		off[id] = true
	}
	c.HTML(http.StatusOK, indexTemplate, gin.H{"Status": st, "Config": cfg, "Off": off})
}
