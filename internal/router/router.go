package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/handler"
	"github.com/mockielts/mockielts-backend/internal/middleware"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Test      *handler.TestHandler
	Attempt   *handler.AttemptHandler
	Media     *handler.MediaHandler
	Dashboard *handler.DashboardHandler
	Export    *handler.ExportHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the rate limiter's background sweep.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	// Spreadsheets are already zip-compressed.
	brotliConfig := middleware.DefaultBrotliConfig
	brotliConfig.SkipPrefixes = []string{"/ws/", "/uploads/"}
	brotliConfig.Skipper = func(c *gin.Context) bool {
		return c.FullPath() == "/api/v1/admin/tests/:id/results/export"
	}
	router.Use(middleware.BrotliWithConfig(brotliConfig))

	// Serve uploaded media files statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// 120 requests per minute per candidate; autosave runs every few seconds.
	limiter := middleware.NewRateLimiter(ctx, 120, time.Minute)

	// ─── 1. Candidate Group (JWT) ──────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireJWT(authService),
		limiter.Middleware(),
		middleware.NoStore(),
	)
	{
		api.GET("/tests", handlers.Test.ListPublished)
		api.GET("/tests/:id", handlers.Test.GetPublished)

		api.POST("/attempts", handlers.Attempt.StartAttempt)
		api.GET("/attempts/:id", handlers.Attempt.GetAttempt)
		api.GET("/attempts/:id/sections/:section", handlers.Attempt.GetSection)
		api.GET("/attempts/:id/sections/:section/state", handlers.Attempt.GetSectionState)
		api.PUT("/attempts/:id/answers", handlers.Attempt.UpsertAnswers)
		api.POST("/attempts/:id/sections/:section/submit", handlers.Attempt.SubmitSection)
		api.POST("/attempts/:id/advance", handlers.Attempt.Advance)
		api.POST("/attempts/:id/submit", handlers.Attempt.SubmitAttempt)
		api.GET("/attempts/:id/result", handlers.Attempt.GetResult)

		api.POST("/files/upload", handlers.Media.UploadRecording)
		api.GET("/me/dashboard", handlers.Dashboard.GetDashboardData)
	}

	// ─── 2. WebSocket Group (token in query) ───────────────────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireWSAuth(authService))
	{
		wsGroup.GET("/attempts/:id/sections/:section/stream", handlers.WS.SectionStream)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/media/upload",
			middleware.RequirePermission(model.PermissionMediaUpload),
			handlers.Media.UploadMedia,
		)

		adminAPI.GET("/tests",
			middleware.RequirePermission(model.PermissionTestsRead),
			handlers.Test.ListTests,
		)
		adminAPI.GET("/tests/:id",
			middleware.RequirePermission(model.PermissionTestsRead),
			handlers.Test.GetTest,
		)
		adminAPI.POST("/tests",
			middleware.RequirePermission(model.PermissionTestsWrite),
			handlers.Test.CreateTest,
		)
		adminAPI.PUT("/tests/:id",
			middleware.RequirePermission(model.PermissionTestsWrite),
			handlers.Test.UpdateTest,
		)
		adminAPI.DELETE("/tests/:id",
			middleware.RequirePermission(model.PermissionTestsWrite),
			handlers.Test.DeleteTest,
		)
		adminAPI.POST("/tests/:id/publish",
			middleware.RequirePermission(model.PermissionTestsPublish),
			handlers.Test.PublishTest,
		)
		adminAPI.POST("/tests/:id/archive",
			middleware.RequirePermission(model.PermissionTestsPublish),
			handlers.Test.ArchiveTest,
		)
		adminAPI.POST("/tests/:id/refresh-cache",
			middleware.RequirePermission(model.PermissionTestsPublish),
			handlers.Test.RefreshTestCache,
		)
		adminAPI.GET("/tests/:id/results/export",
			middleware.RequirePermission(model.PermissionResultsExport),
			handlers.Export.ExportTestResults,
		)
	}

	return router
}
