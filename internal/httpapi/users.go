package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	DeviceType  string `json:"device_type"`
}

// RegisterUser creates the user on first sight and refreshes last_seen
// afterwards. 201 for a new user, 200 for a returning one.
func (h Handlers) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Username == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	reg, err := h.Users.RegisterOrUpdate(c.Request.Context(), req.Username, req.DisplayName, req.DeviceType)
	if err != nil {
		abortWithError(c, err)
		return
	}
	status := http.StatusOK
	if reg.IsNewUser {
		status = http.StatusCreated
	}
	c.JSON(status, reg)
}

func (h Handlers) GetUser(c *gin.Context) {
	u, err := h.Users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	found, err := h.Users.Search(c.Request.Context(), query, c.Query("exclude"), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": found})
}

func (h Handlers) ListActiveUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	found, err := h.Users.ListActive(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": found})
}
