package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/liquidation-verify-api/api/swagger"
	"github.com/noah-isme/liquidation-verify-api/internal/handler"
	"github.com/noah-isme/liquidation-verify-api/internal/middleware"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	"github.com/noah-isme/liquidation-verify-api/internal/service"
	"github.com/noah-isme/liquidation-verify-api/pkg/config"
	"github.com/noah-isme/liquidation-verify-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/liquidation-verify-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/liquidation-verify-api/pkg/middleware/requestid"
)

type routeServices struct {
	auth          *service.AuthService
	verification  *service.VerificationService
	uploads       *service.UploadService
	retailers     *service.RetailerService
	distributors  *service.DistributorService
	liquidation   *service.LiquidationService
	rectification *service.RectificationService
	exports       *service.ExportService
	metrics       *service.MetricsService
	audit         *repository.UserRepository
	ready         func() error
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc routeServices) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(svc.metrics, svc.ready)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.auth)
	verificationHandler := handler.NewVerificationHandler(svc.verification, svc.exports, cfg.Uploads.MaxFileSizeBytes)
	uploadHandler := handler.NewUploadHandler(svc.uploads, cfg.Uploads.MaxFileSizeBytes)
	retailerHandler := handler.NewRetailerHandler(svc.retailers)
	distributorHandler := handler.NewDistributorHandler(svc.distributors)
	liquidationHandler := handler.NewLiquidationHandler(svc.liquidation, svc.exports)
	rectificationHandler := handler.NewRectificationHandler(svc.rectification)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	// signed links are opened by image tags, so the token replaces the bearer header
	api.GET("/files/*key", uploadHandler.File)

	secured := api.Group("")
	secured.Use(middleware.JWT(svc.auth))
	secured.GET("/auth/me", authHandler.Me)
	secured.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), metricsHandler.System)

	secured.GET("/distributors", distributorHandler.List)
	secured.GET("/distributors/:id/skus", distributorHandler.SKUs)
	if cfg.Metrics.Enabled {
		secured.GET("/distributors/:id/metrics", liquidationHandler.DistributorMetrics)
		secured.GET("/liquidation/overview", liquidationHandler.Overview)
	}

	secured.GET("/retailers", retailerHandler.List)
	secured.POST("/retailers", retailerHandler.Create)
	secured.POST("/retailers/duplicates", retailerHandler.Duplicates)

	verifications := secured.Group("/verifications/:distributorId")
	{
		verifications.POST("/open", verificationHandler.Open)
		verifications.POST("/resume", verificationHandler.Resume)
		verifications.DELETE("/draft", verificationHandler.DiscardDraft)
		verifications.GET("", verificationHandler.Get)
		verifications.PUT("/stock", verificationHandler.SetStock)
		verifications.POST("/next", verificationHandler.Next)
		verifications.POST("/back", verificationHandler.Back)
		verifications.POST("/cancel", verificationHandler.Cancel)
		verifications.PUT("/allocations/:skuKey", verificationHandler.UpdateAllocation)
		verifications.POST("/allocations/:skuKey/retailers", verificationHandler.AddRetailerRow)
		verifications.POST("/allocations/:skuKey/retailers/new", verificationHandler.CreateRetailer)
		verifications.PUT("/allocations/:skuKey/retailers/:index", verificationHandler.UpdateRetailerRow)
		verifications.DELETE("/allocations/:skuKey/retailers/:index", verificationHandler.RemoveRetailerRow)
		verifications.PUT("/signature", verificationHandler.CaptureSignature)
		verifications.DELETE("/signature", verificationHandler.ClearSignature)
		verifications.POST("/proofs", verificationHandler.UploadProof)
		verifications.DELETE("/proofs/:proofId", verificationHandler.RemoveProof)
		verifications.POST("/submit", verificationHandler.Submit)
		verifications.GET("/letter", middleware.Audit(svc.audit, models.AuditActionLetterExport, "verification"), verificationHandler.Letter)
	}

	secured.GET("/liquidations", liquidationHandler.List)
	secured.GET("/liquidations/:id", liquidationHandler.Get)
	secured.POST("/uploads", uploadHandler.Upload)

	if cfg.Rectification.Enabled {
		secured.POST("/rectifications", rectificationHandler.Create)
		secured.GET("/rectifications", rectificationHandler.List)
		secured.GET("/rectifications/:id", rectificationHandler.Get)
		secured.POST("/rectifications/:id/review", middleware.RequireRoles(models.RoleTSM, models.RoleAdmin), rectificationHandler.Review)
	}

	return r
}
