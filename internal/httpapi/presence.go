package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type presenceUpdateRequest struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	SocketID string `json:"socket_id,omitempty"`
}

// UpdatePresence upserts the user's presence row. Repeating the same
// status still refreshes the freshness window.
func (h Handlers) UpdatePresence(c *gin.Context) {
	var req presenceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Username == "" || req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and status required"})
		return
	}

	p, err := h.Presence.Update(c.Request.Context(), req.Username, req.Status, req.SocketID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.touchSeen(c, req.Username)
	c.JSON(http.StatusOK, p)
}

// ListPresence returns presence rows with the derived online flag. The
// optional users parameter is a comma-separated username filter.
func (h Handlers) ListPresence(c *gin.Context) {
	var filter []string
	if raw := c.Query("users"); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				filter = append(filter, u)
			}
		}
	}
	entries, err := h.Presence.List(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": entries})
}

// IsOnline answers the single question callers actually have. An
// unknown user is simply offline, not an error.
func (h Handlers) IsOnline(c *gin.Context) {
	online, err := h.Presence.IsOnline(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": c.Param("username"), "online": online})
}
