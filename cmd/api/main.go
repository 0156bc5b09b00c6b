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

	"github.com/vlourenco/pdv-fiscal/internal/application/accounting"
	"github.com/vlourenco/pdv-fiscal/internal/application/auth"
	"github.com/vlourenco/pdv-fiscal/internal/application/equipment"
	appfiscal "github.com/vlourenco/pdv-fiscal/internal/application/fiscal"
	"github.com/vlourenco/pdv-fiscal/internal/application/jurisdiction"
	infrapdf "github.com/vlourenco/pdv-fiscal/internal/infrastructure/pdf"
	"github.com/vlourenco/pdv-fiscal/internal/infrastructure/postgres"
	"github.com/vlourenco/pdv-fiscal/internal/infrastructure/sat"
	"github.com/vlourenco/pdv-fiscal/internal/infrastructure/sefaz"
	"github.com/vlourenco/pdv-fiscal/internal/infrastructure/simulator"
	"github.com/vlourenco/pdv-fiscal/internal/infrastructure/storage"
	httpRouter "github.com/vlourenco/pdv-fiscal/internal/interfaces/http"
	"github.com/vlourenco/pdv-fiscal/pkg/config"
	"github.com/vlourenco/pdv-fiscal/pkg/locker"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("fiscal_env", cfg.Fiscal.Env).
		Msg("iniciando aplicação")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão ao PostgreSQL")
	}
	defer pool.Close()

	docRepo := postgres.NewFiscalDocumentRepository(pool)
	eventRepo := postgres.NewDocumentEventRepository(pool)
	ruleRepo := postgres.NewJurisdictionRuleRepository(pool)
	equipRepo := postgres.NewEquipmentRepository(pool)
	opLogRepo := postgres.NewOperationLogRepository(pool)
	batchRepo := postgres.NewExportBatchRepository(pool)
	itemRepo := postgres.NewExportItemRepository(pool)
	providerRepo := postgres.NewExportProviderRepository(pool)
	scheduleRepo := postgres.NewExportScheduleRepository(pool)
	operatorRepo := postgres.NewOperatorRepository(pool)

	resolver := jurisdiction.NewResolver(ruleRepo, log)
	registry := equipment.NewRegistry(equipRepo, opLogRepo, resolver, log)

	// Transportes: "dev" usa o simulador local nas duas famílias; fora de
	// dev, NFC-e fala SOAP com a SEFAZ e CF-e fala com o gateway SAT.
	var nfceTransport, cfeTransport appfiscal.Transport
	if cfg.Fiscal.Env == "dev" {
		sim := simulator.New(log)
		nfceTransport, cfeTransport = sim, sim
	} else {
		nfceTransport = sefaz.NewClient(resolver, log)
		cfeTransport = sat.NewClient(cfg.Fiscal.SATEndpoint, log)
	}

	timeout := time.Duration(cfg.Fiscal.TimeoutSeconds) * time.Second
	nfceEngine := appfiscal.NewEngine(
		appfiscal.NewNFCePolicy(), docRepo, eventRepo, resolver,
		nfceTransport, locker.New(), log, timeout,
	)
	cfeEngine := appfiscal.NewEngine(
		appfiscal.NewCFePolicy(registry), docRepo, eventRepo, resolver,
		cfeTransport, locker.New(), log, timeout,
	)

	store := storage.NewLocalStore(cfg.Export.Dir)
	exportEngine := accounting.NewExportEngine(
		batchRepo, itemRepo, providerRepo,
		[]accounting.DocumentSource{nfceEngine, cfeEngine},
		store, log,
	)
	scheduleEngine := accounting.NewScheduleEngine(scheduleRepo, providerRepo, exportEngine, log)

	authUC := auth.NewUseCase(operatorRepo, log, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	receipts := infrapdf.NewReceiptGenerator()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI em local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    cfg.App.Name,
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		Engines:   []*appfiscal.Engine{nfceEngine, cfeEngine},
		Registry:  registry,
		Exports:   exportEngine,
		Schedules: scheduleEngine,
		Receipts:  receipts,
		JWTSecret: cfg.JWT.Secret,
	})

	// Varredura periódica dos agendamentos de exportação.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go runScheduleSweep(sweepCtx, scheduleEngine, cfg.Export.SweepSeconds, log)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("encerramento do servidor")
	}

	log.Info().Msg("aplicação parada")
}

// runScheduleSweep dispara RunDue no intervalo configurado até o contexto
// ser cancelado.
func runScheduleSweep(ctx context.Context, engine *accounting.ScheduleEngine, seconds int, log *logger.Logger) {
	if seconds <= 0 {
		seconds = 60
	}
	ticker := time.NewTicker(time.Duration(seconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ran, err := engine.RunDue(ctx, now)
			if err != nil {
				log.Error().Err(err).Msg("varredura de agendamentos")
				continue
			}
			if ran > 0 {
				log.Info().Int("ran", ran).Msg("agendamentos de exportação executados")
			}
		}
	}
}
