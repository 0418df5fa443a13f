package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pissten/SMARTi-EMS/internal/service"
)

const (
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"

	errLoadLogs = "failed to load logs"
)

var queryTimeLayouts = []string{time.RFC3339, layoutDateTime, layoutDate}

// @Summary      List budget events
// @Description  Shed, restore and fault history, oldest first. 'from'/'to' accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' covers that whole day. 'limit' keeps the newest N events.
// @Tags         logs
// @Produce      json
// @Param        from       query   string  false  "Start of range"  example(2025-08-01)
// @Param        to         query   string  false  "End of range, date-only means end of day"  example(2025-08-31)
// @Param        type       query   string  false  "Event type"  Enums(SHED,RESTORE,SENSOR_FAULT,STEP_FAILED,CONFIG_UPDATED)
// @Param        entity_id  query   string  false  "Only events of this device"  example(climate.office)
// @Param        limit      query   int     false  "Newest N events (max 1000)"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, err := parseLogFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
	case isFilterError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadLogs, "logs_list_failed", err,
			"filter", fmt.Sprintf("%+v", filter))
	}
}

// parseLogFilter reads the query string. Range and value checks are left to
// the event log service.
func parseLogFilter(c *gin.Context) (service.LogFilter, error) {
	f := service.LogFilter{
		Type:     strings.ToUpper(strings.TrimSpace(c.Query("type"))),
		EntityID: c.Query("entity_id"),
	}
	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'from': %w", err)
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'to': %w", err)
		}
		if !strings.ContainsAny(qs, "T ") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'limit': %q is not a number", qs)
		}
		f.Limit = n
	}
	return f, nil
}

func isFilterError(err error) bool {
	for _, target := range []error{
		service.ErrInvalidTimeRange,
		service.ErrUnknownEventType,
		service.ErrInvalidEntityID,
		service.ErrInvalidLimit,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseQueryTime accepts queryTimeLayouts and returns UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: use RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}
