package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/leadflowhq/leadflow/pkg/cmd"
	"github.com/leadflowhq/leadflow/pkg/funnel"
	"github.com/leadflowhq/leadflow/pkg/log"
	"github.com/leadflowhq/leadflow/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "leadflow-runner",
		EnableShellCompletion: true,
		Usage:                 "Consume trigger events and sweep funnel executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "runner-id",
				Aliases: []string{"id"},
				Usage:   "Custom runner ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("RUNNER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file path, redis:// or memory://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "bootstrap",
				Usage:   "Ensure the default post-notification funnel exists on startup",
				Value:   true,
				Sources: cli.EnvVars("BOOTSTRAP_DEFAULT_FUNNEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces",
				Value:   false,
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			runnerID := command.String("runner-id")
			if runnerID == "" {
				runnerID = "runner-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("leadflow-runner").With("runner_id", runnerID)

			logger.InfoContext(ctx, "Initializing leadflow runner")

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, "leadflow-runner"); err != nil {
					logger.WarnContext(ctx, "Failed to initialize tracer, continuing without export", "error", err)
				}
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "leadflow-runner", logger)

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			email, gateway := cmd.NewDeliveryStack(ctx, logger)

			if command.Bool("bootstrap") {
				if _, err := funnel.EnsureDefaultPostFunnel(ctx, persistence, logger); err != nil {
					logger.ErrorContext(ctx, "Failed to bootstrap default funnel", "error", err)

					return err
				}
			}

			engine := funnel.NewEngine(persistence, email, gateway, eventBus, logger)
			dispatcher := funnel.NewDispatcher(persistence, engine, logger)

			runner := NewRunner(runnerID, persistence, engine, dispatcher, gateway, eventBus, logger)

			if err := runner.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start runner", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
