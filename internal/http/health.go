package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/entities"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	version string
}

func NewHealthController(db *database.Database, version string) *HealthController {
	return &HealthController{db: db, version: version}
}

// Ping is a bare liveness probe
// GET /ping
func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Status reports readiness: database connectivity plus a cheap catalog
// query, so a migrated-but-broken schema also flips the status
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db == nil {
		checks["database"] = "not configured"
	} else if sqlDB, err := h.db.DB.DB(); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "ok"
		var n int64
		if err := h.db.DB.Model(&entities.Book{}).Count(&n).Error; err != nil {
			checks["catalog"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["catalog"] = "ok"
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}
