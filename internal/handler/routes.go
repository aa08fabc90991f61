package handler

import (
	"github.com/gtechsltn/alexa-london-travel-site/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all routes
func RegisterRoutes(e *echo.Echo, sessionAuth *middleware.SessionAuthMiddleware, apiLimiter *middleware.RateLimiter, apiHandler *ApiHandler, authHandler *AuthHandler, manageHandler *ManageHandler, alexaHandler *AlexaHandler) {
	// Skill-facing API (bearer token auth inside the handler)
	api := e.Group("/api")
	api.Use(middleware.RateLimitMiddleware(apiLimiter))
	api.GET("/preferences", apiHandler.GetPreferences)
	api.GET("/_count", apiHandler.GetUserCount, sessionAuth.Authenticate())

	// Sign-in and sign-out
	account := e.Group("/account")
	account.GET("/sign-in", authHandler.ListProviders)
	account.GET("/sign-in/:provider", authHandler.SignIn)
	account.GET("/callback/:provider", authHandler.Callback)
	account.POST("/sign-out", authHandler.SignOut)

	// Account management (session required)
	manage := e.Group("/manage")
	manage.Use(sessionAuth.Authenticate())
	manage.GET("", manageHandler.GetAccount)
	manage.POST("/update-line-preferences", manageHandler.UpdateLinePreferences)
	manage.POST("/remove-alexa-link", manageHandler.RemoveAlexaLink)
	manage.POST("/remove-account-link", manageHandler.RemoveAccountLink)
	manage.POST("/delete-account", manageHandler.DeleteAccount)

	// Alexa account linking (session required)
	alexa := e.Group("/alexa")
	alexa.Use(sessionAuth.Authenticate())
	alexa.GET("/authorize", alexaHandler.Authorize)
}
