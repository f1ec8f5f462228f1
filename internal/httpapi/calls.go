package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"smarttv-backend/internal/calls"
	"smarttv-backend/internal/realtime"
)

type initiateCallRequest struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

// InitiateCall starts a call attempt and, when the callee holds a live
// socket, pushes an incoming_call event. Socketless callees are reached
// through the pending-call poll instead.
func (h Handlers) InitiateCall(c *gin.Context) {
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	call, err := h.Calls.Initiate(c.Request.Context(), req.Caller, req.Callee)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.touchSeen(c, call.Caller)
	h.notify(call.Callee, "incoming_call", call)
	c.JSON(http.StatusCreated, call)
}

type callActionRequest struct {
	Username string `json:"username"`
}

func (h Handlers) AnswerCall(c *gin.Context) {
	var req callActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	call, err := h.Calls.Answer(c.Request.Context(), c.Param("call_id"), req.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.touchSeen(c, req.Username)
	h.notify(call.Caller, "call_answered", call)
	c.JSON(http.StatusOK, call)
}

func (h Handlers) DeclineCall(c *gin.Context) {
	h.terminate(c, "call_declined", h.Calls.Decline)
}

func (h Handlers) CancelCall(c *gin.Context) {
	h.terminate(c, "call_cancelled", h.Calls.Cancel)
}

func (h Handlers) EndCall(c *gin.Context) {
	h.terminate(c, "call_ended", h.Calls.End)
}

// terminate factors the decline/cancel/end pattern: apply the
// transition, then tell the other participant.
func (h Handlers) terminate(c *gin.Context, event string, op func(ctx context.Context, callID, actor string) error) {
	var req callActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	callID := c.Param("call_id")

	if err := op(c.Request.Context(), callID, req.Username); err != nil {
		abortWithError(c, err)
		return
	}
	h.touchSeen(c, req.Username)

	call, err := h.Calls.Status(c.Request.Context(), callID)
	if err == nil {
		other := call.Caller
		if req.Username == call.Caller {
			other = call.Callee
		}
		h.notify(other, event, call)
		c.JSON(http.StatusOK, call)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": callID, "status": event})
}

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Calls.Status(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// ListPendingCalls is the poll fallback for TVs without a live socket.
func (h Handlers) ListPendingCalls(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	pending, err := h.Calls.ListPending(c.Request.Context(), username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.touchSeen(c, username)
	c.JSON(http.StatusOK, gin.H{"pending_calls": pending})
}

type videoTokenRequest struct {
	Username string `json:"username"`
	CallID   string `json:"call_id"`
}

// VideoToken mints a room-scoped access token for a participant of an
// accepted call.
func (h Handlers) VideoToken(c *gin.Context) {
	var req videoTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Username == "" || req.CallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and call_id required"})
		return
	}

	call, err := h.Calls.Status(c.Request.Context(), req.CallID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if req.Username != call.Caller && req.Username != call.Callee {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	if call.Status != calls.StatusAccepted || call.RoomHandle == "" {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call has no active room"})
		return
	}

	token, err := h.Tokens.AccessToken(req.Username, call.RoomHandle)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	h.touchSeen(c, req.Username)
	c.JSON(http.StatusOK, gin.H{"token": token, "room": call.RoomHandle, "identity": req.Username})
}

// PresenceSocket upgrades to the realtime presence websocket.
func (h Handlers) PresenceSocket(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	if _, err := h.Users.GetByUsername(c.Request.Context(), username); err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.Hub.Serve(c.Writer, c.Request, username); err != nil {
		// Upgrade failures already wrote the response.
		return
	}
}

func (h Handlers) notify(username, event string, payload any) {
	if h.Hub == nil {
		return
	}
	h.Hub.NotifyUser(username, realtime.Event{Type: event, Payload: payload})
}
