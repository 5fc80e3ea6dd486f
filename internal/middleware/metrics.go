package middleware

import (
	"strconv"
	"time"

	"siliconflow-balance-plugin/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request timing and adds response time headers
func MetricsMiddleware(metricsCollector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		metricsCollector.RecordRequest()

		c.Next()

		duration := time.Since(startTime)
		metricsCollector.RecordRequestComplete(duration, c.Writer.Status() < 400)

		// Only effective when the handler has not flushed yet
		c.Header("X-Response-Time-Ms", strconv.FormatInt(duration.Milliseconds(), 10))
	}
}
