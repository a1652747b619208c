package main

import (
	"context"
	"fmt"
	"os"

	"github.com/atelierhq/easel/pkg/auth"
	"github.com/atelierhq/easel/pkg/cmd"
	"github.com/atelierhq/easel/pkg/log"
	"github.com/atelierhq/easel/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 8090

func main() {
	command := &cli.Command{
		Name:                  "easel-api",
		Usage:                 "Create, execute and poll image workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "redis:// URL or a directory path for file persistence",
				Value:   "./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "Secret used to sign access tokens",
				Required: true,
				Sources:  cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "image-provider-url",
				Usage:   "Base URL of the image generation provider",
				Value:   "https://api.openai.com",
				Sources: cli.EnvVars("IMAGE_PROVIDER_URL"),
			},
			&cli.StringFlag{
				Name:    "image-provider-key",
				Usage:   "API key for the image generation provider",
				Sources: cli.EnvVars("IMAGE_PROVIDER_KEY"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces to the OTLP endpoint configured via OTEL_* env vars",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Easel API")

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, "easel-api"); err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}
			}

			registry := cmd.NewRegistry(
				logger,
				command.String("image-provider-url"),
				command.String("image-provider-key"),
			)

			persistence := cmd.NewPersistence(ctx, command.String("database-url"), logger)
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tokens := auth.NewTokenManager([]byte(command.String("jwt-secret")), auth.DefaultTokenTTL)

			api := NewAPI(logger, persistence, registry, eventBus, tokens)

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
