package handlers

import (
	"errors"
	"net/http"
	"time"

	"airspace_fan/internal/models"
	"airspace_fan/internal/service"

	"github.com/gin-gonic/gin"
)

// ThresholdsRequest replaces the outdoor temperature bounds.
type ThresholdsRequest struct {
	LowBound  *float64 `json:"low_bound" binding:"required" example:"55"`
	HighBound *float64 `json:"high_bound" binding:"required" example:"75"`
	Enabled   bool     `json:"enabled" example:"true"`
}

// @Summary      Get thresholds
// @Tags         alerts
// @Produce      json
// @Success      200  {object}  models.ThresholdConfig
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/thresholds [get]
// @Security     BearerAuth
func (h *Handler) getThresholds(c *gin.Context) {
	cfg, err := h.services.Thresholds(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load thresholds", "thresholds_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      Save thresholds
// @Description  Stores the bounds in °F and re-evaluates the alert.
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        body  body      ThresholdsRequest  true  "Bounds"
// @Success      200   {object}  models.ThresholdConfig
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/thresholds [put]
// @Security     BearerAuth
func (h *Handler) putThresholds(c *gin.Context) {
	var req ThresholdsRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	cfg, err := h.services.SaveThresholds(c.Request.Context(), models.ThresholdConfig{
		LowBound:  *req.LowBound,
		HighBound: *req.HighBound,
		Enabled:   req.Enabled,
	})
	if errors.Is(err, service.ErrInvalidThresholds) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to save thresholds", "thresholds_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      Current alert
// @Tags         alerts
// @Produce      json
// @Success      200  {object}  service.AlertStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/alert [get]
// @Security     BearerAuth
func (h *Handler) getAlert(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.AlertStatus(time.Now()))
}
