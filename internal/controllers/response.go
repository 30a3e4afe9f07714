package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/logger"
)

// responder writes the structured error body shared by every handler.
type responder struct {
	production bool
}

// fail answers {"error": msg} with the status mapped from err. Outside
// production a "stack" field is added. extra fields are merged in.
func (r responder) fail(c *gin.Context, component string, err error, extra gin.H) {
	status := apperrors.StatusCode(err)

	entry := logger.WithError(err, component).WithField("status", status)
	if status >= 500 {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	body := gin.H{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	if !r.production {
		body["stack"] = logger.StackTrace(2)
	}
	c.JSON(status, body)
}
