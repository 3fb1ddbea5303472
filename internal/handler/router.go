package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"sales-recovery/internal/handler/api"
	"sales-recovery/internal/handler/middleware"
	"sales-recovery/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	logger *slog.Logger,
	webhookHandler *api.WebhookHandler,
	adminHandler *api.AdminHandler,
	operatorMiddleware *middleware.OperatorMiddleware,
) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, webhookHandler, adminHandler, operatorMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(logger, cfg.Log))
	engine.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, webhookHandler *api.WebhookHandler, adminHandler *api.AdminHandler, operatorMiddleware *middleware.OperatorMiddleware) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addRoutes(&engine.RouterGroup, []route{
		{
			Method:  http.MethodPost,
			Path:    "/webhook/:tenantId",
			Handler: webhookHandler.Ingest,
			Mw:      []gin.HandlerFunc{operatorMiddleware.OptionalOperator()},
		},
		{Method: http.MethodPost, Path: "/provider-webhook", Handler: webhookHandler.ProviderCallback},
	})

	admin := engine.Group("/admin")
	admin.Use(operatorMiddleware.RequireOperator())
	{
		addRoutes(admin, []route{
			{Method: http.MethodPost, Path: "/tenants", Handler: adminHandler.RegisterTenant},
			{Method: http.MethodGet, Path: "/tenants/:tenantId/events", Handler: adminHandler.ListEvents},
			{Method: http.MethodGet, Path: "/events/:id", Handler: adminHandler.GetEvent},
			{Method: http.MethodPost, Path: "/templates/invalidate", Handler: adminHandler.InvalidateTemplates},
		})
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
