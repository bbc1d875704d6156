package middleware

import (
	"time" // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RequestLogger logs every request with method, path, status and latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Start timer
		c.Next()            // Process request
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,         // HTTP method
			"path":    c.Request.URL.Path,       // Request path
			"status":  c.Writer.Status(),        // Response status
			"latency": time.Since(start).String(), // Processing time
		}).Info("request handled")
	}
}
