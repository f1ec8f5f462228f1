package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addContactRequest struct {
	Contact string `json:"contact"`
}

func (h Handlers) AddContact(c *gin.Context) {
	var req addContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	owner := c.Param("username")
	if err := h.Contacts.Add(c.Request.Context(), owner, req.Contact); err != nil {
		abortWithError(c, err)
		return
	}
	h.touchSeen(c, owner)
	c.JSON(http.StatusCreated, gin.H{"status": "added"})
}

func (h Handlers) RemoveContact(c *gin.Context) {
	owner, contact := c.Param("username"), c.Param("contact")
	if err := h.Contacts.Remove(c.Request.Context(), owner, contact); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (h Handlers) SetContactFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	owner, contact := c.Param("username"), c.Param("contact")
	if err := h.Contacts.SetFavorite(c.Request.Context(), owner, contact, req.Favorite); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "favorite": req.Favorite})
}

// ListContacts returns the contact list with live presence flags,
// favorites first.
func (h Handlers) ListContacts(c *gin.Context) {
	list, err := h.Contacts.List(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": list})
}
