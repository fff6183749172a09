package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cnhs-records-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes request counts and latency by route template so that
// record identifiers never become label values. Paths in skip are not
// observed.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]bool, len(skip))
	for _, path := range skip {
		ignored[path] = true
	}
	return func(c *gin.Context) {
		if metricsSvc == nil || ignored[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
