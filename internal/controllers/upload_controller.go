package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/models"
	"github.com/portfolio/backend/internal/services"
)

type UploadController struct {
	responder
	uploads *services.UploadService
	relay   *services.Relay
}

func NewUploadController(uploads *services.UploadService, relay *services.Relay, production bool) *UploadController {
	return &UploadController{
		responder: responder{production: production},
		uploads:   uploads,
		relay:     relay,
	}
}

// Authorize issues a presigned PUT for a new uploads/ key
func (uc *UploadController) Authorize(c *gin.Context) {
	var req models.UploadTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		uc.fail(c, "upload_controller", apperrors.BadRequest("invalid request body: %v", err), nil)
		return
	}

	target, err := uc.uploads.CreateUploadTarget(c.Request.Context(), req)
	if err != nil {
		uc.fail(c, "upload_controller", err, nil)
		return
	}
	c.JSON(http.StatusOK, target)
}

// Confirm records a finished upload
func (uc *UploadController) Confirm(c *gin.Context) {
	var req models.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		uc.fail(c, "upload_controller", err, nil)
		return
	}

	row, err := uc.uploads.Confirm(c.Request.Context(), req)
	if err != nil {
		uc.fail(c, "upload_controller", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "row": row})
}

func (uc *UploadController) Lookup(c *gin.Context) {
	row, err := uc.uploads.Lookup(c.Request.Context(), c.Query("filename"), c.Query("key"))
	if err != nil {
		uc.fail(c, "upload_controller", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "row": row})
}

// Proxy re-streams an allow-listed URL
func (uc *UploadController) Proxy(c *gin.Context) {
	body, err := uc.relay.ProxyURL(c.Request.Context(), c.Query("url"))
	if err != nil {
		var upstream *apperrors.UpstreamError
		if errors.As(err, &upstream) && upstream.Status > 0 {
			c.JSON(upstream.Status, gin.H{"error": upstream.Msg, "status": upstream.Status})
			return
		}
		uc.fail(c, "relay", err, nil)
		return
	}
	uc.stream(c, body)
}

// Stream serves an object straight from storage by key
func (uc *UploadController) Stream(c *gin.Context) {
	body, err := uc.relay.StreamByKey(c.Request.Context(), c.Query("key"))
	if err != nil {
		uc.fail(c, "relay", err, nil)
		return
	}
	uc.stream(c, body)
}

// stream copies a relayed body out. Relay responses are readable from any
// origin regardless of the site CORS policy; Content-Type is only set when
// the source reported one.
func (uc *UploadController) stream(c *gin.Context, body *services.RelayedBody) {
	defer body.Body.Close()

	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Del("Access-Control-Allow-Credentials")
	if body.ContentType != "" {
		h.Set("Content-Type", body.ContentType)
	}

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body.Body); err != nil {
		logger.WithError(err, "relay").Warn("Relay stream interrupted")
	}
}
