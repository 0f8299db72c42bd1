package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/stockledger-api/internal/application/audit"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/usecase"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/metrics"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stockledger-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stockledger-api/internal/interfaces/http"
	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	migrator, err := postgres.NewMigrator(pool, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar migraciones")
	}
	if err := migrator.Up(); err != nil {
		log.Fatal().Err(err).Msg("aplicar migraciones")
	}
	if err := migrator.Close(); err != nil {
		log.Warn().Err(err).Msg("cerrar migrador")
	}

	warehouseRepo := postgres.NewWarehouseRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	adjustmentRepo := postgres.NewAdjustmentRepository(pool)
	sourceRepo := postgres.NewStockSourceRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	auditRepo := postgres.NewAuditLogRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	ledgerMetrics := metrics.NewLedgerMetrics()
	trailUC := audit.NewTrailUseCase(auditRepo)

	deps := inventory.AdjustmentDeps{
		TxRunner:    txRunner,
		Warehouses:  warehouseRepo,
		Products:    productRepo,
		Adjustments: adjustmentRepo,
		Audit:       trailUC,
		Observer:    ledgerMetrics,
		Logger:      log.Named("ledger"),
		Policy:      ledgerPolicy(cfg.Ledger),
	}

	// Sin Redis: bloqueo no-op y sin control de Idempotency-Key.
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer rdb.Close()
		deps.Locker = infraredis.NewStockLocker(rdb, cfg.Redis.LockTTL, log.Named("locker"))
		deps.Idempotency = infraredis.NewIdempotencyStore(rdb, cfg.Ledger.IdempotencyTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: bloqueos por producto/bodega desactivados")
	}

	adjustmentUC := inventory.NewAdjustmentUseCase(deps)
	draftUC := inventory.NewDraftUseCase(inventory.NewBalanceResolver(sourceRepo), productRepo, warehouseRepo, adjustmentRepo)
	movementUC := inventory.NewMovementHistoryUseCase(movementRepo)

	catalogLog := log.Named("catalog")
	warehouseUC := usecase.NewWarehouseUseCase(warehouseRepo, trailUC, catalogLog)
	productUC := usecase.NewProductUseCase(productRepo, trailUC, catalogLog)
	customerUC := usecase.NewCustomerUseCase(customerRepo, trailUC, catalogLog)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "StockLedger API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Drafts:      draftUC,
		Adjustments: adjustmentUC,
		Movements:   movementUC,
		Audit:       trailUC,
		WarehouseUC: warehouseUC,
		ProductUC:   productUC,
		CustomerUC:  customerUC,
		Metrics:     ledgerMetrics.Handler(),
		ServiceName: cfg.App.Name,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func ledgerPolicy(cfg config.LedgerConfig) inventory.LedgerPolicy {
	rules := make(map[string]string, len(cfg.ConversionRules))
	for _, r := range cfg.ConversionRules {
		rules[r.SourceCode] = r.ProducedCode
	}
	return inventory.LedgerPolicy{
		AllowNegativeStock: cfg.AllowNegativeStock,
		RejectAnyDrift:     cfg.RejectAnyDrift,
		ConversionRules:    rules,
	}
}
