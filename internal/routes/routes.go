// Package routes implements the four API route groups mounted by the server
// under /api/auth, /api/jobs, /api/users and /api/applications.
package routes

import (
	"errors"
	"net/http"

	"job-portal/internal/storage"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a set of endpoints sharing a URL prefix. The server only mounts
// it; everything below the prefix belongs to the group.
type Group interface {
	Prefix() string
	Register(rg *gin.RouterGroup)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": message})
}

func forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, gin.H{"message": message})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"message": message})
}

// objectIDParam parses a hex ObjectID path parameter, answering 400 when it
// is malformed.
func objectIDParam(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+label+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// storageFailure answers 404 for missing documents and hands every other
// error to the error translator.
func storageFailure(c *gin.Context, err error, notFoundMessage string) {
	if errors.Is(err, storage.ErrNotFound) {
		notFound(c, notFoundMessage)
		return
	}
	_ = c.Error(err)
}
