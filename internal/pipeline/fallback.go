package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotFound is the terminal handler for requests no route or asset matched.
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Route not found"})
}
