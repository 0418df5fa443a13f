package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pissten/SMARTi-EMS/internal/service"
)

const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errGetStatus       = "failed to load status"
	errGetConfig       = "failed to load configuration"
	errSaveConfig      = "failed to save configuration"
	errStep            = "control cycle failed"
	errListEntities    = "failed to list entities"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...any) {
	if h.log != nil && err != nil {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// ConfigRequest documents the POST /api/v1/config payload. Omitted fields keep
// their stored value.
type ConfigRequest struct {
	PowerSourceEntity string   `json:"power_source_entity,omitempty" example:"sensor.grid_import_power"`
	EnergyTargetKW    float64  `json:"energy_target_kw,omitempty" example:"7.5"`
	Mode              string   `json:"mode,omitempty" example:"nettleie"`
	Category1         []string `json:"category1,omitempty" example:"climate.living,switch.boiler"`
	Category2         []string `json:"category2,omitempty"`
	Category3         []string `json:"category3,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Budget status
// @Description  Live draw, target, last gap and the devices currently shed.
// @Tags         budget
// @Produce      json
// @Success      200  {object}  models.Status
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Get configuration
// @Tags         budget
// @Produce      json
// @Success      200  {object}  models.Configuration
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/config [get]
// @Security     BearerAuth
func (h *Handler) getConfig(c *gin.Context) {
	cfg, err := h.services.Configuration.Get(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetConfig, "config_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      Update configuration
// @Description  Partial update; omitted fields keep their stored value.
// @Tags         budget
// @Accept       json
// @Produce      json
// @Param        body  body      ConfigRequest  true  "Configuration fields"
// @Success      200   {object}  map[string]interface{}  "ok, config"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/config [post]
// @Security     BearerAuth
func (h *Handler) updateConfig(c *gin.Context) {
	var req service.ConfigUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	cfg, err := h.services.Configuration.Update(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errSaveConfig, "config_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": cfg})
}

// @Summary      Run a control cycle
// @Description  Runs one cycle and waits for it, including pacing delays. With async=true the cycle starts in the background and 202 is returned.
// @Tags         budget
// @Produce      json
// @Param        async  query     bool  false  "Do not wait for the cycle"
// @Success      200    {object}  map[string]interface{}  "ok, report"
// @Success      202    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/step [post]
// @Security     BearerAuth
func (h *Handler) step(c *gin.Context) {
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		h.jobs.Add(1)
		go func() {
			defer h.jobs.Done()
			if _, err := h.services.Engine.Step(h.opts.Background); err != nil && h.log != nil {
				h.log.Errorw("step_failed", "err", err, "trigger", "api_async")
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
		return
	}

	// the cycle outlives a disconnected client
	rep, err := h.services.Engine.Step(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errStep, "step_failed", err, "trigger", "api")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": rep})
}

// @Summary      List entities
// @Tags         entities
// @Produce      json
// @Param        domain  query     string  false  "Comma separated domains"  example(climate,switch)
// @Success      200     {array}   models.EntityState
// @Failure      401     {object}  map[string]string
// @Failure      502     {object}  map[string]string
// @Router       /api/v1/entities [get]
// @Security     BearerAuth
func (h *Handler) listEntities(c *gin.Context) {
	var domains []string
	if q := c.Query("domain"); q != "" {
		domains = strings.Split(q, ",")
	}
	ents, err := h.services.Entities.States(c.Request.Context(), domains)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errListEntities, "entities_failed", err)
		return
	}
	c.JSON(http.StatusOK, ents)
}

// @Summary      List power sources
// @Description  Sensors reporting in W or kW, usable as power_source_entity.
// @Tags         entities
// @Produce      json
// @Success      200  {array}   models.PowerSource
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/power-sources [get]
// @Security     BearerAuth
func (h *Handler) powerSources(c *gin.Context) {
	out, err := h.services.Entities.PowerSources(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errListEntities, "power_sources_failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}
