package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"airspace_fan/internal/service"
)

// clientIdKey holds the paired client's ID in the gin context.
const clientIdKey = "clientId"

const bearerChallenge = `Bearer realm="airspace"`

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientIdMiddleware admits requests from paired clients only. A token whose
// client was unpaired is refused like an expired one, with its own message.
func (h *Handler) clientIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		h.unauthorized(c, "missing Authorization header")
		return
	}
	token, ok := bearerToken(header)
	if !ok {
		h.unauthorized(c, "invalid Authorization header format")
		return
	}

	clientId, err := h.services.ParseToken(c.Request.Context(), token)
	switch {
	case errors.Is(err, service.ErrUnknownClient):
		h.unauthorized(c, "client is no longer paired")
		return
	case err != nil:
		h.unauthorized(c, "invalid or expired token")
		return
	}

	c.Set(clientIdKey, clientId)
	c.Next()
}

func (h *Handler) unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", bearerChallenge)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
