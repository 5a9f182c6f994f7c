// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Check reports whether a dependency is ready. A nil error means ready.
type Check func(ctx context.Context) error

// Info reports diagnostic detail included in the readiness body.
type Info func() interface{}

// Handler serves /health/live and /health/ready.
type Handler struct {
	service string
	checks  map[string]Check
	info    map[string]Info
}

// NewHandler creates a Handler. db may be nil when the service runs without a database.
func NewHandler(db *gorm.DB, service string) *Handler {
	h := &Handler{service: service, checks: map[string]Check{}, info: map[string]Info{}}
	if db != nil {
		h.AddCheck("database", DBCheck(db))
	}
	return h
}

// AddCheck registers a named readiness check.
func (h *Handler) AddCheck(name string, check Check) {
	h.checks[name] = check
}

// AddInfo registers named detail reported by /health/ready. It does not affect
// the readiness status.
func (h *Handler) AddInfo(name string, info Info) {
	h.info[name] = info
}

// DBCheck pings the database behind db.
func DBCheck(db *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// RegisterRoutes mounts the probes on router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health/live", h.Live)
	router.GET("/health/ready", h.Ready)
}

// Live always answers 200 while the process is serving.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready runs every check and answers 503 if any fails.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	body := gin.H{"status": state, "service": h.service, "checks": results}
	if len(h.info) > 0 {
		details := make(map[string]interface{}, len(h.info))
		for name, info := range h.info {
			details[name] = info()
		}
		body["info"] = details
	}
	c.JSON(status, body)
}
