package handlers

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"airspace_fan/internal/models"
	"airspace_fan/internal/service"
)

const (
	defaultLogLimit = 200
	maxLogLimit     = 1000

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var logTypes = []string{models.LogSpeed, models.LogTimer, models.LogFault, models.LogAlert, models.LogScan}

// LogsQuery is the query string of the audit log endpoints.
type LogsQuery struct {
	From  string `form:"from"`
	To    string `form:"to"`
	Type  string `form:"type"`
	MAC   string `form:"mac"`
	Limit int    `form:"limit"`
}

// filter validates the query. A date-only 'to' covers the whole day.
func (q LogsQuery) filter() (service.LogFilter, error) {
	var (
		f   service.LogFilter
		err error
	)
	if q.From != "" {
		if f.From, err = parseQueryTime(q.From); err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
	}
	if q.To != "" {
		if f.To, err = parseQueryTime(q.To); err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		if _, derr := time.Parse(layoutDate, q.To); derr == nil {
			f.To = f.To.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errors.New("'from' must be <= 'to'")
	}
	if t := strings.ToUpper(strings.TrimSpace(q.Type)); t != "" {
		if !slices.Contains(logTypes, t) {
			return f, fmt.Errorf("unknown entry type %q, expected one of %s", q.Type, strings.Join(logTypes, ", "))
		}
		f.Type = t
	}
	if m := strings.TrimSpace(q.MAC); m != "" {
		hw, err := net.ParseMAC(m)
		if err != nil {
			return f, fmt.Errorf("invalid mac %q", q.MAC)
		}
		f.MAC = hw.String()
	}
	return f, nil
}

func (q LogsQuery) limit() (int, error) {
	switch {
	case q.Limit == 0:
		return defaultLogLimit, nil
	case q.Limit < 0 || q.Limit > maxLogLimit:
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLogLimit)
	}
	return q.Limit, nil
}

// @Summary      List logs
// @Description  Commands, faults, alerts and scans, oldest first. Dates accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' is end-of-day inclusive. Only the newest 'limit' entries are returned.
// @Tags         logs
// @Produce      json
// @Param        from   query   string  false  "Start of range"  example(2025-08-01)
// @Param        to     query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type   query   string  false  "Entry type"  Enums(SPEED,TIMER,FAULT,ALERT,SCAN)
// @Param        mac    query   string  false  "Only entries for this fan"
// @Param        limit  query   int     false  "Newest entries to return (default 200, max 1000)"
// @Success      200   {object}  map[string]interface{}  "count, entries, truncated"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	var q LogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	h.listLogs(c, q)
}

// @Summary      List logs for one fan
// @Description  Same as /api/v1/logs restricted to the fan in the path. Retired fans keep their history.
// @Tags         logs
// @Produce      json
// @Param        mac    path    string  true   "Fan MAC address"
// @Param        from   query   string  false  "Start of range"
// @Param        to     query   string  false  "End of range"
// @Param        type   query   string  false  "Entry type"  Enums(SPEED,TIMER,FAULT,ALERT,SCAN)
// @Param        limit  query   int     false  "Newest entries to return (default 200, max 1000)"
// @Success      200   {object}  map[string]interface{}  "count, entries, truncated"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/fans/{mac}/logs [get]
// @Security     BearerAuth
func (h *Handler) getFanLogs(c *gin.Context) {
	var q LogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	q.MAC = c.Param("mac")
	h.listLogs(c, q)
}

func (h *Handler) listLogs(c *gin.Context, q LogsQuery) {
	f, err := q.filter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := q.limit()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.services.EventLog.List(c.Request.Context(), f)
	if err != nil {
		if service.IsInvalidFilter(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type, "mac", f.MAC)
		return
	}

	truncated := len(entries) > limit
	if truncated {
		entries = entries[len(entries)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(entries),
		"entries":   entries,
		"truncated": truncated,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}
