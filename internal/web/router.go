package web

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires the public and session-gated routes. Every route under
// the authenticated group goes through RequireAuth before any handler
// runs; an unauthenticated request is redirected to /login and never
// reaches business logic.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Public routes
	router.POST("/register", h.Register)
	router.GET("/login", h.LoginPrompt)
	router.POST("/login", h.Login)

	// Protected routes
	authed := router.Group("/")
	authed.Use(h.RequireAuth())
	{
		authed.GET("/", h.Portfolio)
		authed.GET("/history", h.History)
		authed.GET("/quote/:symbol", h.Quote)
		authed.POST("/buy", h.Buy)
		authed.POST("/sell", h.Sell)
		authed.POST("/deposit", h.Deposit)
		authed.POST("/withdraw", h.Withdraw)
		authed.POST("/password", h.ChangePassword)
		authed.GET("/logout", h.Logout)
	}

	return router
}
