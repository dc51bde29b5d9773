package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthTimeFormat is ISO-8601 with millisecond precision.
const healthTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func (s *Server) apiHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Job Portal API is running",
		"time":    time.Now().UTC().Format(healthTimeFormat),
	})
}

// healthCheck is the liveness probe for load balancers.
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
