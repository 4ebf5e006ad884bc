package handlers

import (
	"context"
	"errors"
	"net/http"

	"airspace_fan/internal/fan"
	"airspace_fan/internal/house"
	"airspace_fan/internal/transport"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errUnknownFan      = "unknown fan"
	errFanFaulted      = "fan is not responding"
	errFanUnreachable  = "fan did not answer"
	errCommandFailed   = "command failed"
	errScanFailed      = "scan failed"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// fanError maps a command outcome onto a status code. Rejections carry their reason.
func (h *Handler) fanError(c *gin.Context, logKey string, err error, mac string) {
	switch {
	case errors.Is(err, house.ErrUnknownDevice):
		c.JSON(http.StatusNotFound, gin.H{"error": errUnknownFan})
	case errors.Is(err, fan.ErrFatalFault), errors.Is(err, fan.ErrFaulted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errFanFaulted})
	case errors.Is(err, fan.ErrCommandRejected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": errFanUnreachable})
	case transport.IsDeviceFailure(err):
		if h.log != nil {
			h.log.Warnw(logKey, "mac", mac, "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": errFanUnreachable})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errCommandFailed, logKey, err, "mac", mac)
	}
}

// SpeedRequest sets a fan's speed level.
type SpeedRequest struct {
	// Speed level, 0 turns the fan off
	Level *int `json:"level" binding:"required" example:"3"`
}

// TimerRequest sets the hours left on a fan's timer.
type TimerRequest struct {
	// Hours remaining, 0 clears the timer
	Hours *int `json:"hours" binding:"required" example:"2"`
}

// NameRequest sets a fan's display name. Empty restores the model name.
type NameRequest struct {
	Name string `json:"name" example:"Upstairs hall"`
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

// @Summary      List fans
// @Description  Active fans and fans retired by the last scan, sorted by MAC.
// @Tags         fans
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, fans"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/fans [get]
// @Security     BearerAuth
func (h *Handler) listFans(c *gin.Context) {
	fans := h.services.Fans()
	c.JSON(http.StatusOK, gin.H{"count": len(fans), "fans": fans})
}

// @Summary      Get fan
// @Tags         fans
// @Produce      json
// @Param        mac  path      string  true  "Fan MAC address"
// @Success      200  {object}  models.FanStatus
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/fans/{mac} [get]
// @Security     BearerAuth
func (h *Handler) getFan(c *gin.Context) {
	mac := c.Param("mac")
	st, err := h.services.Fan(mac)
	if err != nil {
		h.fanError(c, "fan_get_failed", err, mac)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Set speed
// @Description  Steps the fan to the level. Levels above the model's maximum are clamped.
// @Tags         fans
// @Accept       json
// @Produce      json
// @Param        mac   path      string        true  "Fan MAC address"
// @Param        body  body      SpeedRequest  true  "Speed payload"
// @Success      200   {object}  models.FanStatus
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/fans/{mac}/speed [post]
// @Security     BearerAuth
func (h *Handler) setSpeed(c *gin.Context) {
	var req SpeedRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	mac := c.Param("mac")
	st, err := h.services.SetSpeed(c.Request.Context(), mac, *req.Level)
	if err != nil {
		h.fanError(c, "fan_set_speed_failed", err, mac)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Set timer
// @Tags         fans
// @Accept       json
// @Produce      json
// @Param        mac   path      string        true  "Fan MAC address"
// @Param        body  body      TimerRequest  true  "Timer payload"
// @Success      200   {object}  models.FanStatus
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/fans/{mac}/timer [post]
// @Security     BearerAuth
func (h *Handler) setTimer(c *gin.Context) {
	var req TimerRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	mac := c.Param("mac")
	st, err := h.services.SetTimer(c.Request.Context(), mac, *req.Hours)
	if err != nil {
		h.fanError(c, "fan_set_timer_failed", err, mac)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Refresh fan
// @Tags         fans
// @Produce      json
// @Param        mac  path      string  true  "Fan MAC address"
// @Success      200  {object}  models.FanStatus
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/fans/{mac}/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshFan(c *gin.Context) {
	mac := c.Param("mac")
	st, err := h.services.Refresh(c.Request.Context(), mac)
	if err != nil {
		h.fanError(c, "fan_refresh_failed", err, mac)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Rename fan
// @Tags         fans
// @Accept       json
// @Produce      json
// @Param        mac   path      string       true  "Fan MAC address"
// @Param        body  body      NameRequest  true  "Name payload"
// @Success      200   {object}  models.FanStatus
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/fans/{mac}/name [put]
// @Security     BearerAuth
func (h *Handler) renameFan(c *gin.Context) {
	var req NameRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	mac := c.Param("mac")
	st, err := h.services.Rename(c.Request.Context(), mac, req.Name)
	if err != nil {
		h.fanError(c, "fan_rename_failed", err, mac)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Scan for fans
// @Description  Runs a discovery scan, joining one already in progress, and returns its report.
// @Tags         fans
// @Produce      json
// @Success      200  {object}  house.ScanReport
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/scan [post]
// @Security     BearerAuth
func (h *Handler) startScan(c *gin.Context) {
	rep, err := h.services.Scan(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errScanFailed, "scan_failed", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// @Summary      Cancel scan
// @Tags         fans
// @Produce      json
// @Success      200  {object}  map[string]bool  "cancelled"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/scan [delete]
// @Security     BearerAuth
func (h *Handler) cancelScan(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": h.services.CancelScan()})
}
