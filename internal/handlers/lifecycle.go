package handlers

import (
	"errors"
	"net/http"

	"airspace_fan/internal/service"

	"github.com/gin-gonic/gin"
)

// LifecycleRequest moves the app between foreground and background.
type LifecycleRequest struct {
	// foreground or background
	Phase string `json:"phase" binding:"required" example:"background"`
}

// @Summary      Lifecycle status
// @Tags         lifecycle
// @Produce      json
// @Success      200  {object}  service.LifecycleStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/lifecycle [get]
// @Security     BearerAuth
func (h *Handler) getLifecycle(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.LifecycleStatus())
}

// @Summary      Change phase
// @Description  foreground cancels background windows and starts the refresh loop; background stops it and schedules windows.
// @Tags         lifecycle
// @Accept       json
// @Produce      json
// @Param        body  body      LifecycleRequest  true  "Phase"
// @Success      200   {object}  service.LifecycleStatus
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/lifecycle [post]
// @Security     BearerAuth
func (h *Handler) postLifecycle(c *gin.Context) {
	var req LifecycleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	phase, err := service.ParsePhase(req.Phase)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.services.Transition(c.Request.Context(), phase); err != nil {
		if errors.Is(err, service.ErrInvalidPhase) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to change phase", "lifecycle_transition_failed", err, "phase", phase)
		return
	}
	c.JSON(http.StatusOK, h.services.LifecycleStatus())
}
