package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) bool

// HealthController handles health check endpoints.
type HealthController struct {
	dbHealthChecker    HealthChecker
	redisHealthChecker HealthChecker
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
	Timestamp string `json:"timestamp"`
}

// NewHealthController creates a new health controller instance.
// A nil redisHealthChecker reports Redis as disabled.
func NewHealthController(dbHealthChecker, redisHealthChecker HealthChecker) *HealthController {
	return &HealthController{
		dbHealthChecker:    dbHealthChecker,
		redisHealthChecker: redisHealthChecker,
	}
}

// Check handles GET /health requests.
// It returns 503 when the database is unreachable.
func (h *HealthController) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK

	dbStatus := "disconnected"
	if h.dbHealthChecker != nil && h.dbHealthChecker(ctx) {
		dbStatus = "connected"
	} else {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if h.redisHealthChecker != nil {
		redisStatus = "disconnected"
		if h.redisHealthChecker(ctx) {
			redisStatus = "connected"
		}
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Database:  dbStatus,
		Redis:     redisStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
