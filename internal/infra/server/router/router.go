// Package router sets up the HTTP routing for the application.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/settlement-recon/backend/internal/integration/entrypoint/controller"
	"github.com/settlement-recon/backend/internal/integration/entrypoint/middleware"
)

// Router holds the Gin engine and controller dependencies.
type Router struct {
	engine                   *gin.Engine
	healthController         *controller.HealthController
	reconciliationController *controller.ReconciliationController
	authMiddleware           *middleware.AuthMiddleware
	runRateLimiter           *middleware.RateLimiter
	metricsGatherer          prometheus.Gatherer
}

// NewRouter creates a new router instance with all dependencies.
// A nil gatherer disables the /metrics endpoint.
func NewRouter(
	healthController *controller.HealthController,
	reconciliationController *controller.ReconciliationController,
	authMiddleware *middleware.AuthMiddleware,
	runRateLimiter *middleware.RateLimiter,
	metricsGatherer prometheus.Gatherer,
) *Router {
	return &Router{
		healthController:         healthController,
		reconciliationController: reconciliationController,
		authMiddleware:           authMiddleware,
		runRateLimiter:           runRateLimiter,
		metricsGatherer:          metricsGatherer,
	}
}

// Setup configures and returns the Gin engine with all routes.
func (r *Router) Setup(environment string) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if environment == "test" {
		gin.SetMode(gin.TestMode)
	}

	r.engine = gin.Default()

	r.setupHealthRoutes()
	r.setupAPIRoutes()

	return r.engine
}

// setupHealthRoutes configures health check and metrics endpoints.
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.healthController.Check)

	if r.metricsGatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.metricsGatherer, promhttp.HandlerOpts{})))
	}
}

// setupAPIRoutes configures the main API routes.
func (r *Router) setupAPIRoutes() {
	v1 := r.engine.Group("/api/v1")
	{
		if r.reconciliationController != nil && r.authMiddleware != nil {
			recon := v1.Group("/reconciliation")
			recon.Use(r.authMiddleware.Authenticate())
			{
				recon.GET("/exceptions", r.reconciliationController.ListExceptions)
				recon.GET("/reports", r.reconciliationController.GetReport)

				writes := recon.Group("")
				writes.Use(r.authMiddleware.RequireOperator())
				{
					writes.POST("/runs", r.runRateLimiter.Middleware(), r.reconciliationController.RunReconciliation)
					writes.POST("/matches", r.reconciliationController.ConfirmMatch)
					writes.POST("/exceptions/:id/resolve", r.reconciliationController.ResolveException)
					writes.POST("/returns", r.reconciliationController.ProcessReturns)
				}
			}
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
}
