// api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workbench/api/handlers"
	"github.com/Annany2002/nebula-workbench/api/middleware"
	"github.com/Annany2002/nebula-workbench/config"
	"github.com/Annany2002/nebula-workbench/internal/session"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(store *session.Store, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	ratelimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	router.Use(middleware.RateLimitMiddleware(ratelimiter))
	// Runs after Logger/Recovery and wraps every handler below
	router.Use(middleware.ErrorHandler())

	authHandler := handlers.NewAuthHandler(cfg)
	dbHandler := handlers.NewDatabaseHandler(store)
	sessionHandler := handlers.NewSessionHandler(store)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	if cfg.AccessLockEnabled() {
		router.POST("/auth/login", authHandler.Login)
	}

	// --- Workbench Routes ---
	apiRoutes := router.Group("/api/v1")
	if cfg.AccessLockEnabled() {
		apiRoutes.Use(middleware.AuthMiddleware(cfg))
	}
	{
		apiRoutes.GET("/samples", dbHandler.ListSamples)

		apiRoutes.GET("/databases", dbHandler.ListDatabases)
		apiRoutes.POST("/databases", dbHandler.CreateDatabase)
		apiRoutes.POST("/databases/import", dbHandler.ImportDatabase)
		apiRoutes.PUT("/databases/:db_name", dbHandler.UpdateDatabase)
		apiRoutes.DELETE("/databases/:db_name", dbHandler.DeleteDatabase)
		apiRoutes.POST("/databases/:db_name/connect", dbHandler.ConnectDatabase)
		apiRoutes.GET("/databases/:db_name/history", dbHandler.ListHistory)

		apiRoutes.GET("/session", sessionHandler.GetSession)
		apiRoutes.POST("/session/reload", sessionHandler.Reload)
		apiRoutes.POST("/session/execute", sessionHandler.Execute)
		apiRoutes.POST("/session/evaluate", sessionHandler.Evaluate)
		apiRoutes.PUT("/session/query", sessionHandler.SetQuery)
		apiRoutes.PUT("/session/policy/source", sessionHandler.SetPolicySource)
		apiRoutes.PUT("/session/policy/input", sessionHandler.SetPolicyInput)
		apiRoutes.PUT("/session/policy/data", sessionHandler.SetPolicyData)
		apiRoutes.GET("/session/schema", sessionHandler.GetSchema)
		apiRoutes.GET("/session/erd", sessionHandler.GetDiagram)
		apiRoutes.GET("/session/results", sessionHandler.GetResults)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", handlers.WarningHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
