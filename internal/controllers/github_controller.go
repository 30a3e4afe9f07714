package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portfolio/backend/internal/services"
)

type GitHubController struct {
	responder
	github *services.GitHubService
}

func NewGitHubController(github *services.GitHubService, production bool) *GitHubController {
	return &GitHubController{responder: responder{production: production}, github: github}
}

func (gc *GitHubController) Showcase(c *gin.Context) {
	showcase, err := gc.github.Showcase(c.Request.Context())
	if err != nil {
		gc.fail(c, "github_controller", err, nil)
		return
	}
	c.JSON(http.StatusOK, showcase)
}
