// Package main provides the Easel API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/atelierhq/easel/pkg/auth"
	"github.com/atelierhq/easel/pkg/eventbus"
	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/atelierhq/easel/pkg/registry"
	"github.com/atelierhq/easel/pkg/services"
	"github.com/atelierhq/easel/pkg/web"
	"github.com/atelierhq/easel/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	tokens      *auth.TokenManager
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	tokens *auth.TokenManager,
) *API {
	return &API{
		logger:      logger,
		persistence: persist,
		registry:    reg,
		eventBus:    eventBus,
		tokens:      tokens,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	accountService := services.NewAccount(a.persistence, a.tokens)
	workflowService := services.NewWorkflow(a.persistence, a.registry)
	executionService := services.NewExecution(a.persistence, a.eventBus)

	handlers := web.NewAPIHandlers(accountService, workflowService, executionService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Easel API")
	})

	app.Post("/auth/register", handlers.Register)
	app.Post("/auth/login", handlers.Login)

	w := app.Group("/workflows", web.RequireAuth(a.tokens))

	// Execution polling routes come before /:id so "executions" is not
	// captured as a workflow id.
	w.Get("/executions", handlers.GetExecutions)
	w.Get("/executions/:executionID", handlers.GetExecution)

	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// StartRunner subscribes the workflow runner to the event bus so
// executions requested over HTTP actually run.
func (a *API) StartRunner(ctx context.Context) error {
	executor := workflow.NewExecutor(a.logger, a.registry, a.persistence.Executions(), a.eventBus)
	runner := workflow.NewRunner(a.logger, executor, a.persistence, a.eventBus)

	return runner.Start(ctx)
}

func (a *API) Start(ctx context.Context, port int) error {
	if err := a.StartRunner(ctx); err != nil {
		return err
	}

	return a.App().Listen(":" + strconv.Itoa(port))
}
