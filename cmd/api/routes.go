package main

import (
	"github.com/gin-gonic/gin"

	"smarttv-backend/internal/httpapi"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers) {
	r.GET("/healthz", h.Healthz)

	// Realtime presence socket. The TV keeps this open for its whole
	// session; heartbeats ride on it.
	r.GET("/ws", h.PresenceSocket)

	v1 := r.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", h.RegisterUser)
			users.GET("/search", h.SearchUsers)
			users.GET("/active", h.ListActiveUsers)
			users.GET("/:username", h.GetUser)

			users.GET("/:username/contacts", h.ListContacts)
			users.POST("/:username/contacts", h.AddContact)
			users.DELETE("/:username/contacts/:contact", h.RemoveContact)
			users.PUT("/:username/contacts/:contact/favorite", h.SetContactFavorite)
		}

		pres := v1.Group("/presence")
		{
			pres.POST("", h.UpdatePresence)
			pres.GET("", h.ListPresence)
			pres.GET("/:username/online", h.IsOnline)
		}

		calls := v1.Group("/calls")
		{
			calls.POST("", h.InitiateCall)
			calls.GET("/pending", h.ListPendingCalls)
			calls.GET("/:call_id", h.GetCall)
			calls.POST("/:call_id/answer", h.AnswerCall)
			calls.POST("/:call_id/decline", h.DeclineCall)
			calls.POST("/:call_id/cancel", h.CancelCall)
			calls.POST("/:call_id/end", h.EndCall)
		}

		v1.POST("/video/token", h.VideoToken)
	}
}
