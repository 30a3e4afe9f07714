package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/controllers"
	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/middleware"
	"github.com/portfolio/backend/internal/services"
	"github.com/portfolio/backend/internal/storage"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Storage    *storage.Client
	StorageErr error
	Images     services.ImageStore
	Gemini     *services.GeminiClient
	Match      *services.MatchService
	Chat       *services.ChatService
	Uploads    *services.UploadService
	Relay      *services.Relay
	Resolver   *services.AssetResolver
	GitHub     *services.GitHubService
}

// NewServices builds the services from configuration. A nil conn leaves the
// image store answering every call with a StorageError; missing storage
// credentials surface per request as a ConfigurationError.
func NewServices(cfg *config.Config, conn *gorm.DB) *Services {
	storageClient, storageErr := storage.New(cfg.Storage())
	if storageErr != nil {
		logger.Warn("Object storage not configured", map[string]interface{}{"error": storageErr.Error()})
	}

	images := services.NewGormImageStore(conn)
	gemini := services.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GoogleAPIKey, cfg.GeminiTimeout())

	return &Services{
		Storage:    storageClient,
		StorageErr: storageErr,
		Images:     images,
		Gemini:     gemini,
		Match:      services.NewMatchService(gemini),
		Chat:       services.NewChatService(gemini),
		Uploads: services.NewUploadService(services.UploadServiceOptions{
			Storage:    storageClient,
			StorageErr: storageErr,
			Endpoint:   cfg.StorageEndpoint(),
			Bucket:     cfg.R2Bucket,
			Store:      images,
			TTL:        cfg.UploadURLTTL(),
		}),
		Relay: services.NewRelay(services.RelayOptions{
			Storage:     storageClient,
			StorageErr:  storageErr,
			AllowedHost: cfg.StorageEndpoint(),
		}),
		Resolver: services.NewAssetResolver(services.AssetResolverOptions{
			Remote:  cfg.UseDBImages,
			Store:   images,
			MissTTL: cfg.AssetMissTTL(),
		}),
		GitHub: services.NewGitHubService(services.GitHubOptions{
			Username: cfg.GitHubUsername,
			Token:    cfg.GitHubToken,
			CacheTTL: cfg.GitHubCacheTTL(),
		}),
	}
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, cfg *config.Config, svc *Services) {
	production := cfg.IsProduction()

	aiController := controllers.NewAIController(svc.Match, svc.Chat, svc.Gemini, production)
	uploadController := controllers.NewUploadController(svc.Uploads, svc.Relay, production)
	assetController := controllers.NewAssetController(svc.Resolver, production)
	githubController := controllers.NewGitHubController(svc.GitHub, production)

	ai := r.Group("/ai")
	{
		ai.POST("/chat", aiController.Chat)
		ai.POST("/match", aiController.Match)

		if !production {
			ai.GET("/calls", aiController.GetAPICalls)
			ai.DELETE("/calls", aiController.ClearAPICalls)
		}
	}

	uploads := r.Group("/uploads")
	{
		uploads.POST("/authorize", uploadController.Authorize)
		uploads.POST("/confirm", uploadController.Confirm)
		uploads.GET("/lookup", uploadController.Lookup)
		uploads.GET("/proxy", uploadController.Proxy)
		uploads.GET("/stream", uploadController.Stream)
	}

	r.GET("/assets/resolve", assetController.Resolve)
	r.GET("/github/showcase", githubController.Showcase)

	// Edge relay: own CORS policy and optional shared key
	edge := r.Group("/edge", middleware.EdgeCORSMiddleware(), middleware.ProxyKeyMiddleware(cfg.ProxyKey))
	{
		edge.Any("/gemini", aiController.EdgeGemini)
	}
}
