// Package main provides the leadflow admin API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/leadflowhq/leadflow/pkg/delivery"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/services"
	"github.com/leadflowhq/leadflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	email       delivery.EmailSender
	gateway     *delivery.Gateway
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	email delivery.EmailSender,
	gateway *delivery.Gateway,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		email:       email,
		gateway:     gateway,
	}
}

func (a *API) App() *fiber.App {
	funnelService := services.NewFunnelService(a.persistence, a.logger)
	leadService := services.NewLeadService(a.persistence, a.email, a.eventBus, a.logger)
	templateService := services.NewTemplateService(a.persistence)

	handlers := web.NewAPIHandlers(
		funnelService,
		leadService,
		templateService,
		a.persistence,
		a.gateway,
		a.eventBus,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("leadflow API")
	})

	f := app.Group("/funnels")
	f.Get("/", handlers.GetFunnels)
	f.Post("/", handlers.CreateFunnel)
	f.Post("/bootstrap", handlers.BootstrapFunnel)
	f.Get("/:id", handlers.GetFunnel)
	f.Put("/:id", handlers.UpdateFunnel)
	f.Delete("/:id", handlers.DeleteFunnel)

	l := app.Group("/leads")
	l.Get("/", handlers.GetLeads)
	l.Post("/", handlers.SubscribeLead)
	l.Get("/:id", handlers.GetLead)
	l.Delete("/:id", handlers.UnsubscribeLead)
	l.Post("/:id/tags", handlers.AddLeadTag)
	l.Patch("/:id/stage", handlers.UpdateLeadStage)

	tpl := app.Group("/templates")
	tpl.Get("/", handlers.GetTemplates)
	tpl.Post("/", handlers.CreateTemplate)
	tpl.Get("/:id", handlers.GetTemplate)
	tpl.Put("/:id", handlers.UpdateTemplate)
	tpl.Delete("/:id", handlers.DeleteTemplate)

	app.Post("/triggers/:name", handlers.TriggerEvent)
	app.Post("/messages/bulk", handlers.BulkSend)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
