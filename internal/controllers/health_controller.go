package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	backend   numeric.Backend
	deps      map[string]Pinger
	version   string
	startTime time.Time
}

func NewHealthController(backend numeric.Backend, version string, deps map[string]Pinger) *HealthController {
	if deps == nil {
		deps = map[string]Pinger{}
	}
	return &HealthController{
		backend:   backend,
		deps:      deps,
		version:   version,
		startTime: time.Now(),
	}
}

type HealthResponse struct {
	Status          string                 `json:"status"`
	Timestamp       time.Time              `json:"timestamp"`
	Uptime          string                 `json:"uptime"`
	Version         string                 `json:"version"`
	Backend         string                 `json:"backend"`
	BackendDegraded bool                   `json:"backend_degraded"`
	Checks          map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health godoc
// @Summary Health check endpoint
// @Description Reports the numeric backend and the state of each dependency
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(hc.deps))
	for name := range hc.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]CheckResult, len(names))
	healthy := true
	for _, name := range names {
		if err := hc.deps[name].Ping(ctx); err != nil {
			checks[name] = CheckResult{Status: "unhealthy", Message: err.Error()}
			healthy = false
			continue
		}
		checks[name] = CheckResult{Status: "healthy"}
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(hc.startTime).Round(time.Second).String(),
		Version:   hc.version,
		Checks:    checks,
	}
	if hc.backend != nil {
		response.Backend = hc.backend.Name()
		response.BackendDegraded = hc.backend.Degraded()
	}

	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}
