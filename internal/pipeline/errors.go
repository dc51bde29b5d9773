package pipeline

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"job-portal/internal/logger"
	"job-portal/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const redactedDetail = "Internal Server Error"

// ErrorTranslator answers any request that recorded an error on the context
// with a single 500 JSON body. In production the error detail is replaced
// with a fixed string.
func ErrorTranslator(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		writeError(c, c.Errors.Last().Err, production)
	}
}

// Recovery converts panics into the same response ErrorTranslator produces.
func Recovery(production bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		err := &Failure{Kind: KindPanic, Err: fmt.Errorf("panic: %v", rec)}
		logger.WithField("stack", string(debug.Stack())).Debug("Recovered panic")
		writeError(c, err, production)
	})
}

func writeError(c *gin.Context, err error, production bool) {
	kind := KindOf(err)
	metrics.RecordFailure(string(kind))
	logger.WithFields(logrus.Fields{
		"kind":   kind,
		"method": c.Request.Method,
		"path":   c.Request.URL.RequestURI(),
	}).WithError(err).Error("Request failed")

	if c.Writer.Written() {
		return
	}

	detail := err.Error()
	if production {
		detail = redactedDetail
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"message": "Server error",
		"error":   detail,
	})
}
