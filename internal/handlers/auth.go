package handlers

import (
	"errors"
	"net/http"

	"airspace_fan/internal/service"

	"github.com/gin-gonic/gin"
)

// PairRequest trades the household PIN for a client token.
type PairRequest struct {
	// Display name of the client device
	Name string `json:"name" binding:"required" example:"kitchen tablet"`
	PIN  string `json:"pin" binding:"required" example:"4321"`
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

// @Summary      Pair a client
// @Description  Exchanges the household PIN for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      PairRequest  true  "Client name and PIN"
// @Success      200   {object}  map[string]interface{}  "token, client"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /auth/pair [post]
func (h *Handler) pair(c *gin.Context) {
	var input PairRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, client, err := h.services.Pair(c.Request.Context(), input.Name, input.PIN)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"token": token, "client": client})
	case errors.Is(err, service.ErrInvalidPIN):
		if h.log != nil {
			h.log.Infow("auth_pair_failed", "name", input.Name)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid pin"})
	case errors.Is(err, service.ErrPairingDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to pair client", "auth_pair_error", err)
	}
}
