package main

import (
	"net/http"

	"softphone-core/internal/auth"
	"softphone-core/internal/config"
	"softphone-core/internal/httpapi"
	"softphone-core/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers, hooks *devHooks, cfg config.Config) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Token issuance.
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// Simulator hook for local development: rings the agent line without a
	// telephony backend. Never registered in production.
	if hooks != nil && !cfg.IsProduction() {
		r.POST("/dev/ring", func(c *gin.Context) {
			var req struct {
				Number string `json:"number"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || req.Number == "" {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "number required"})
				return
			}
			hooks.Ring(req.Number)
			c.JSON(200, gin.H{"status": "ringing"})
		})
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			aid, _ := auth.AgentID(c.Request.Context())
			wid, _ := auth.WorkspaceID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"agent_id": aid, "workspace_id": wid, "role": role})
		})

		// AGENT STATE routes
		agent := v1.Group("/agent")
		agent.Use(rbac.RequireWorkspace())
		agent.Use(rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleSupervisor))
		{
			agent.GET("/state", h.GetAgentState)
			agent.PUT("/state", h.SetAgentState)
		}

		// CALL CONTROL routes
		call := v1.Group("/call")
		call.Use(rbac.RequireWorkspace())
		call.Use(rbac.RequireAnyRole(rbac.RoleAgent))
		{
			call.GET("", h.GetCallState)
			call.GET("/events", h.StreamEvents)
			call.GET("/connections", h.GetConnections)

			call.POST("", h.PlaceCall)
			call.POST("/accept", h.AcceptContact)
			call.POST("/decline", h.DeclineContact)
			call.POST("/end", h.EndContact)
			call.POST("/hold", h.HoldCall)
			call.POST("/resume", h.ResumeCall)
			call.POST("/mute", h.Mute)
			call.POST("/unmute", h.Unmute)

			call.POST("/transfer", h.ColdTransfer)
			call.POST("/transfer/warm", h.WarmTransfer)
			call.POST("/transfer/complete", h.CompleteTransfer)

			call.POST("/conference", h.InitiateConference)
			call.POST("/conference/merge", h.MergeConnections)
			call.DELETE("/conference/:connection_id", h.RemoveFromConference)

			call.POST("/acw", h.EnterAfterCallWork)
			call.POST("/acw/complete", h.CompleteAfterCallWork)
		}

		// CALL HISTORY routes
		history := v1.Group("/history")
		history.Use(rbac.RequireWorkspace())
		history.Use(rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleSupervisor))
		{
			history.GET("/calls", h.GetCallHistory)
			history.GET("/dispositions", h.GetDispositions)
		}
	}
}
