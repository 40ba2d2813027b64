package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	"github.com/noah-isme/liquidation-verify-api/internal/service"
	"github.com/noah-isme/liquidation-verify-api/pkg/cache"
	"github.com/noah-isme/liquidation-verify-api/pkg/config"
	"github.com/noah-isme/liquidation-verify-api/pkg/database"
	"github.com/noah-isme/liquidation-verify-api/pkg/jobs"
	"github.com/noah-isme/liquidation-verify-api/pkg/logger"
	"github.com/noah-isme/liquidation-verify-api/pkg/storage"
)

// @title Liquidation Verify API
// @version 1.0.0
// @description Stock liquidation verification for distributor field operators
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err), zap.String("addr", cache.Addr(cfg.Redis)))
	}
	defer rdb.Close() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Verification.Timezone)
	if err != nil {
		logr.Warn("unknown verification timezone, using UTC", zap.String("timezone", cfg.Verification.Timezone), zap.Error(err))
		location = time.UTC
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	distributors := repository.NewDistributorRepository(db)
	products := repository.NewProductRepository(db)
	liquidations := repository.NewLiquidationRepository(db)
	retailers := repository.NewRetailerRepository(db)
	rectifications := repository.NewRectificationRepository(db)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(rdb, logr), metrics, cfg.Metrics.CacheTTL, logr, cfg.Metrics.Enabled)

	store, uploadOpts, err := buildObjectStore(ctx, cfg.Uploads)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.String("provider", cfg.Uploads.Provider), zap.Error(err))
	}

	thumbnails := jobs.NewQueue("thumbnails", service.NewThumbnailHandler(store, cfg.Uploads.ThumbnailWidth, logr), jobs.QueueConfig{
		Workers:    cfg.Uploads.WorkerConcurrency,
		BufferSize: 64,
		MaxRetries: cfg.Uploads.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	thumbnails.Start(ctx)
	defer thumbnails.Stop()

	uploadOpts = append(uploadOpts,
		service.WithThumbnailQueue(thumbnails),
		service.WithUploadAudit(users),
		service.WithUploadMetrics(metrics),
	)
	uploadSvc := service.NewUploadService(store, logr, service.UploadServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	}, uploadOpts...)

	retailerSvc := service.NewRetailerService(retailers, users, validate, logr, service.RetailerServiceConfig{
		SimilarityThreshold: cfg.Verification.SimilarityThreshold,
		PhoneRegion:         cfg.Verification.PhoneRegion,
	})

	verificationSvc := service.NewVerificationService(service.VerificationDeps{
		Distributors: distributors,
		SKUs:         products,
		Sessions:     repository.NewSessionRepository(rdb),
		Drafts:       repository.NewDraftRepository(rdb),
		Liquidations: liquidations,
		Uploads:      uploadSvc,
		Retailers:    retailerSvc,
		Locker:       cache.NewLocker(rdb),
		Cache:        cacheSvc,
		Audit:        users,
		Metrics:      metrics,
	}, service.VerificationConfig{
		SessionTTL:      cfg.Verification.SessionTTL,
		Location:        location,
		RequireLocation: cfg.Verification.RequireLocation,
		SubmitLockTTL:   cfg.Verification.SubmitLockTTL,
	}, logr)

	services := routeServices{
		auth: service.NewAuthService(users, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		verification:  verificationSvc,
		uploads:       uploadSvc,
		retailers:     retailerSvc,
		distributors:  service.NewDistributorService(distributors, products, logr),
		liquidation:   service.NewLiquidationService(products, liquidations, cacheSvc, logr),
		rectification: service.NewRectificationService(rectifications, products, users, validate, logr, service.WithDefaultUnitValue(cfg.Rectification.DefaultUnitValue)),
		exports:       service.NewExportService(location, logr, nil, nil, nil),
		metrics:       metrics,
		audit:         users,
		ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	}

	r := newRouter(cfg, logr, services)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Uploads.Provider)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logr.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Error("graceful shutdown failed", zap.Error(err))
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
		}
	}
}

// buildObjectStore picks the upload backend. Local storage also serves signed downloads.
func buildObjectStore(ctx context.Context, cfg config.UploadsConfig) (storage.ObjectStore, []service.UploadServiceOption, error) {
	switch cfg.Provider {
	case config.StorageProviderGCS:
		store, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StorageProviderLocal, "":
		files, err := storage.NewLocalStorage(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		signer := storage.NewSignedURLSigner(cfg.SignedURLSecret, cfg.SignedURLTTL)
		return storage.NewSignedLocalStore(files, signer, cfg.PublicBaseURL), []service.UploadServiceOption{service.WithLocalFiles(files, signer)}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported upload provider %q", cfg.Provider)
	}
}
