// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"belegwerk/internal/domain/anomaly"
	"belegwerk/internal/domain/approval"
	"belegwerk/internal/domain/catalogs/product"
	"belegwerk/internal/domain/catalogs/supplier"
	"belegwerk/internal/domain/documents/document"
	"belegwerk/internal/domain/extraction"
	"belegwerk/internal/domain/spending"
	"belegwerk/internal/infrastructure/http/v1/handlers"
	"belegwerk/internal/infrastructure/http/v1/middleware"
	"belegwerk/internal/infrastructure/storage/postgres"
	"belegwerk/internal/infrastructure/storage/postgres/anomaly_repo"
	"belegwerk/internal/infrastructure/storage/postgres/catalog_repo"
	"belegwerk/internal/infrastructure/storage/postgres/document_repo"
	"belegwerk/internal/infrastructure/storage/postgres/register_repo"
	"belegwerk/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (health checks, raw access).
	Pool *pgxpool.Pool

	// TxManager coordinates database transactions.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// Analyzer runs AI document extraction. Optional: the extract
	// endpoint is not registered when nil.
	Analyzer extraction.Analyzer

	// Audit records approval decisions. Optional.
	Audit *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.UserContext())
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Repositories
	supplierRepo := catalog_repo.NewSupplierRepo(cfg.TxManager)
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	documentRepo := document_repo.NewDocumentRepo(cfg.TxManager)
	anomalyRepo := anomaly_repo.NewAnomalyRepo(cfg.TxManager)
	priceRepo := register_repo.NewPriceHistoryRepo(cfg.TxManager)
	spendingRepo := register_repo.NewSpendingRepo(cfg.TxManager)

	// Task queue (transactional outbox)
	queue := postgres.NewOutboxPublisher(cfg.TxManager)

	// Services
	supplierSvc := supplier.NewService(supplierRepo, cfg.TxManager, cfg.Logger)
	productSvc := product.NewService(productRepo, cfg.TxManager, cfg.Logger)
	documentSvc := document.NewService(documentRepo, supplierSvc, queue, cfg.TxManager, cfg.Logger)
	anomalySvc := anomaly.NewService(anomalyRepo, cfg.TxManager, cfg.Logger)
	spendingSvc := spending.NewService(spendingRepo, cfg.Logger)

	detector := anomaly.NewDetector(anomalyRepo, priceRepo, productRepo, documentRepo, supplierRepo, cfg.Logger)

	engineCfg := approval.Config{
		Documents: documentRepo,
		Products:  productRepo,
		Suppliers: supplierSvc,
		Spending:  spendingRepo,
		Stock:     detector,
		Queue:     queue,
		TxManager: cfg.TxManager,
		Logger:    cfg.Logger,
	}
	if cfg.Audit != nil {
		engineCfg.Audit = cfg.Audit
	}
	engine := approval.NewEngine(engineCfg)

	var extractionSvc *extraction.Service
	if cfg.Analyzer != nil {
		extractionSvc = extraction.NewService(cfg.Analyzer, documentSvc, cfg.Logger)
	}

	// Handlers
	base := handlers.NewBaseHandler()
	documentHandler := handlers.NewDocumentHandler(base, documentSvc, engine, extractionSvc)
	anomalyHandler := handlers.NewAnomalyHandler(base, anomalySvc)
	productHandler := handlers.NewProductHandler(base, productSvc)
	supplierHandler := handlers.NewSupplierHandler(base, supplierSvc)
	spendingHandler := handlers.NewSpendingHandler(base, spendingSvc)

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		documents := apiV1.Group("/documents")
		{
			documents.GET("", documentHandler.List)
			documents.POST("", documentHandler.Create)
			if cfg.Analyzer != nil {
				documents.POST("/extract", documentHandler.Extract)
			}
			documents.GET("/:id", documentHandler.Get)
			documents.PUT("/:id", documentHandler.Update)
			documents.DELETE("/:id", documentHandler.Delete)
			documents.POST("/:id/status", documentHandler.TransitionStatus)
		}

		anomalies := apiV1.Group("/anomalies")
		{
			anomalies.GET("", anomalyHandler.List)
			anomalies.GET("/:id", anomalyHandler.Get)
			anomalies.POST("/:id/resolve", anomalyHandler.Resolve)
		}

		products := apiV1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/low-stock", productHandler.LowStock)
			products.GET("/:id", productHandler.Get)
			products.PUT("/:id", productHandler.Update)
			products.POST("/:id/adjust-stock", productHandler.AdjustStock)
		}

		suppliers := apiV1.Group("/suppliers")
		{
			suppliers.GET("", supplierHandler.List)
			suppliers.POST("", supplierHandler.Create)
			suppliers.GET("/:id", supplierHandler.Get)
			suppliers.PUT("/:id", supplierHandler.Update)
			suppliers.DELETE("/:id", supplierHandler.Delete)
			suppliers.POST("/:id/deletion-mark", supplierHandler.SetDeletionMark)
		}

		spendingGroup := apiV1.Group("/spending")
		{
			spendingGroup.GET("/:year", spendingHandler.Year)
			spendingGroup.GET("/:year/:month", spendingHandler.Month)
		}
	}

	return router
}
