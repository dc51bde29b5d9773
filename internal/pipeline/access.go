package pipeline

import (
	"job-portal/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func AccessLog() Stage {
	return Stage{
		Name: "access_log",
		Run: func(c *gin.Context) Result {
			logger.WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.RequestURI(),
			}).Info("Request received")
			return Continue()
		},
	}
}
