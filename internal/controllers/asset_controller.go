package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/services"
)

type AssetController struct {
	responder
	resolver *services.AssetResolver
}

func NewAssetController(resolver *services.AssetResolver, production bool) *AssetController {
	return &AssetController{responder: responder{production: production}, resolver: resolver}
}

// Resolve maps ?name= to a usable URL; url is null when nothing matched.
func (ac *AssetController) Resolve(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		ac.fail(c, "asset_controller", apperrors.BadRequest("missing name"), nil)
		return
	}

	res, err := ac.resolver.Resolve(c.Request.Context(), name)
	if err != nil {
		ac.fail(c, "asset_controller", err, nil)
		return
	}

	var url *string
	if res.Found {
		url = &res.URL
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url, "source": res.Source})
}
