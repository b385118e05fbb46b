package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Sayyed-Ali/MediSys/api/swagger" // swagger docs
	"github.com/Sayyed-Ali/MediSys/internal/config"
	"github.com/Sayyed-Ali/MediSys/internal/database"
	"github.com/Sayyed-Ali/MediSys/internal/handler"
	"github.com/Sayyed-Ali/MediSys/internal/logger"
	"github.com/Sayyed-Ali/MediSys/internal/matcher"
	"github.com/Sayyed-Ali/MediSys/internal/middleware"
	"github.com/Sayyed-Ali/MediSys/internal/repository"
	"github.com/Sayyed-Ali/MediSys/internal/service"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"
	"github.com/Sayyed-Ali/MediSys/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// devJWTSecret is only used outside release mode when JWT_SECRET is unset
const devJWTSecret = "medisys-dev-secret"

// loadConfig loads the config and sets up the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	return cfg, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET is not set, using the development secret")
		secret = devJWTSecret
	}

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		return err
	}
	log.Info().Msg("connected to PostgreSQL")

	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repository -> Service -> Handler
	medicineRepo := repository.NewMedicineRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	invTxRepo := repository.NewInventoryTxRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	txManager := repository.NewTransactionManager(db)

	medMatcher := matcher.New(medicineRepo.ListAll, cfg.MatcherCacheTTL, nil)
	parser := upstream.NewParserClient(cfg.InvoiceServiceURL, cfg.InvoiceServiceTimeout)
	ocr := upstream.NewOCRClient(cfg.OCRServiceURL, cfg.OCRServiceTimeout)
	analytics := upstream.NewAnalyticsClient(cfg.AnalyticsServiceURL, cfg.AnalyticsTimeout, cfg.AnalyticsNotifyTimeout)

	invoiceService := service.NewInvoiceService(parser, medMatcher, medicineRepo, supplierRepo, inventoryRepo, invTxRepo, reviewRepo, auditRepo, txManager)
	reviewService := service.NewReviewService(reviewRepo, medicineRepo, inventoryRepo, invTxRepo, auditRepo, txManager)
	billingService := service.NewBillingService(billingRepo, medicineRepo, inventoryRepo, invTxRepo, auditRepo, txManager, analytics, wsHub, cfg.LowStockThreshold)
	inventoryService := service.NewInventoryService(inventoryRepo, invTxRepo, medicineRepo, supplierRepo, auditRepo, txManager, ocr, wsHub, cfg.LowStockThreshold)
	medicineService := service.NewMedicineService(medicineRepo, auditRepo, txManager, medMatcher)
	supplierService := service.NewSupplierService(supplierRepo)
	admissionService := service.NewAdmissionService(admissionRepo, analytics)
	analyticsService := service.NewAnalyticsService(analytics)
	userService := service.NewUserService(userRepo, secret)
	auditService := service.NewAuditService(auditRepo)

	auth := middleware.NewAuth(secret)
	auth.SecureCookies = cfg.IsRelease()

	handlers := []interface {
		RegisterRoutes(router *gin.RouterGroup)
	}{
		handler.NewInvoiceHandler(invoiceService, reviewService, auth),
		handler.NewBillingHandler(billingService, auth),
		handler.NewInventoryHandler(inventoryService, auth),
		handler.NewMedicineHandler(medicineService, auth),
		handler.NewSupplierHandler(supplierService, auth),
		handler.NewAdmissionHandler(admissionService, auth),
		handler.NewAnalyticsHandler(analyticsService, auth),
		handler.NewUserHandler(userService, auth),
		handler.NewAuditHandler(auditService, auth),
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpLog := logger.WithComponent("http")
	router.Use(middleware.RequestID(), middleware.Logger(httpLog), middleware.Recovery(httpLog))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "x-auth-token"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth)
	})

	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// let in-flight analytics notifications finish
	analytics.Wait()
	log.Info().Msg("server stopped")
	return nil
}
