package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"smarttv-backend/internal/calls"
	"smarttv-backend/internal/contacts"
	"smarttv-backend/internal/jobs"
	"smarttv-backend/internal/presence"
	"smarttv-backend/internal/realtime"
	"smarttv-backend/internal/users"
	"smarttv-backend/internal/video"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Users    *users.Service
	Contacts *contacts.Service
	Presence *presence.Service
	Calls    *calls.Service
	Tokens   video.TokenIssuer
	Hub      *realtime.Hub
	Jobs     *jobs.Scheduler

	DB    *sql.DB
	Redis *redis.Client
}

// Healthz reports process liveness plus dependency and job state.
func (h Handlers) Healthz(c *gin.Context) {
	out := gin.H{"status": "ok"}
	healthy := true

	if h.DB != nil {
		if err := h.DB.PingContext(c.Request.Context()); err != nil {
			out["postgres"] = "down"
			healthy = false
		} else {
			out["postgres"] = "ok"
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(c.Request.Context()).Err(); err != nil {
			out["redis"] = "down"
			healthy = false
		} else {
			out["redis"] = "ok"
		}
	}
	if h.Jobs != nil {
		infos := h.Jobs.Jobs()
		jobsOut := make([]gin.H, 0, len(infos))
		for _, j := range infos {
			jobsOut = append(jobsOut, gin.H{
				"name":     j.Name,
				"interval": j.Interval.String(),
				"next_run": j.NextRun.UTC().Format(time.RFC3339),
			})
		}
		out["scheduler_running"] = h.Jobs.Running()
		out["jobs"] = jobsOut
	}

	if !healthy {
		out["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// touchSeen refreshes last_seen for the user a request acts as. Best
// effort: a failed touch never fails the request that carried it.
func (h Handlers) touchSeen(c *gin.Context, username string) {
	if h.Users == nil || username == "" {
		return
	}
	_ = h.Users.TouchLastSeen(c.Request.Context(), username)
}

// abortWithError maps service sentinels onto HTTP statuses. Unknown
// errors become a generic 500 so internals never leak to clients.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calls.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, contacts.ErrNotFound),
		errors.Is(err, presence.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, calls.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, users.ErrInvalidArgument),
		errors.Is(err, contacts.ErrInvalidArgument),
		errors.Is(err, presence.ErrInvalidStatus):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
