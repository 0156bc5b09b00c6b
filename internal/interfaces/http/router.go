package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vlourenco/pdv-fiscal/internal/application/accounting"
	"github.com/vlourenco/pdv-fiscal/internal/application/auth"
	"github.com/vlourenco/pdv-fiscal/internal/application/equipment"
	"github.com/vlourenco/pdv-fiscal/internal/application/fiscal"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	AuthUC    *auth.UseCase
	Engines   []*fiscal.Engine
	Registry  *equipment.Registry
	Exports   *accounting.ExportEngine
	Schedules *accounting.ScheduleEngine
	Receipts  ReceiptGenerator
	JWTSecret string
}

// Router registra as rotas da API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/login", authHandler.Login)

	// Rotas protegidas (requerem Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Documentos fiscais (protegido): :family é "nfce" ou "cfe"
	docs := protected.Group("/documents/:family")
	docHandler := NewDocumentHandler(deps.Receipts, deps.Engines...)
	docs.Post("/", docHandler.Create)
	docs.Get("/", docHandler.List)
	docs.Get("/:id", docHandler.GetByID)
	docs.Put("/:id", docHandler.Update)
	docs.Post("/:id/submit", docHandler.Submit)
	docs.Post("/:id/cancel", docHandler.Cancel)
	docs.Get("/:id/events", docHandler.Events)
	docs.Get("/:id/receipt", docHandler.Receipt)

	// Equipamentos fiscais (protegido)
	equipGroup := protected.Group("/equipment")
	equipHandler := NewEquipmentHandler(deps.Registry)
	equipGroup.Post("/", equipHandler.Register)
	equipGroup.Get("/", equipHandler.List)
	equipGroup.Get("/:id", equipHandler.GetByID)
	equipGroup.Post("/:id/activate", equipHandler.Activate)
	equipGroup.Post("/:id/deactivate", equipHandler.Deactivate)
	equipGroup.Get("/:id/status", equipHandler.Status)
	equipGroup.Get("/:id/logs", equipHandler.Logs)

	// Exportação contábil (protegido)
	acc := protected.Group("/accounting")
	accHandler := NewAccountingHandler(deps.Exports, deps.Schedules)
	acc.Post("/batches", accHandler.CreateBatch)
	acc.Get("/batches", accHandler.ListBatches)
	acc.Get("/batches/:id", accHandler.GetBatch)
	acc.Post("/batches/:id/process", accHandler.ProcessBatch)
	acc.Get("/batches/:id/items", accHandler.ListItems)
	acc.Post("/providers", accHandler.CreateProvider)
	acc.Get("/providers", accHandler.ListProviders)
	acc.Post("/schedules", accHandler.CreateSchedule)
	acc.Get("/schedules", accHandler.ListSchedules)
	acc.Post("/schedules/run", accHandler.RunSchedules)
	acc.Post("/schedules/:id/deactivate", accHandler.DeactivateSchedule)
}
