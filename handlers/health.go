package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadyCheck reports whether one dependency is usable.
type ReadyCheck func(c *gin.Context) bool

// RegisterHealth adds /health (liveness) and /ready. /ready answers 200 only
// when every check passes.
func RegisterHealth(r *gin.Engine, started time.Time, checks map[string]ReadyCheck) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}
		for name, check := range checks {
			ok := check(c)
			deps[name] = ok
			if !ok {
				ready = false
			}
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(started).String()})
	})
}
