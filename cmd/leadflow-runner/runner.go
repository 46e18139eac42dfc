package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leadflowhq/leadflow/pkg/delivery"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/funnel"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// Runner consumes trigger events from the bus and keeps the minute sweep
// running. It is the only process that advances executions, so a single
// instance must run per store.
type Runner struct {
	id         string
	store      persistence.Persistence
	engine     *funnel.Engine
	dispatcher *funnel.Dispatcher
	gateway    *delivery.Gateway
	eventBus   eventbus.EventBus
	logger     *slog.Logger
	cron       *cron.Cron
}

func NewRunner(
	id string,
	store persistence.Persistence,
	engine *funnel.Engine,
	dispatcher *funnel.Dispatcher,
	gateway *delivery.Gateway,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Runner {
	logger = logger.With("module", "leadflow-runner", "runner_id", id)
	cronLog := cronLogger{logger: logger}

	return &Runner{
		id:         id,
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		gateway:    gateway,
		eventBus:   eventBus,
		logger:     logger,
		// SkipIfStillRunning serializes sweeps: a slow sweep never overlaps
		// the next tick.
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLog),
			cron.Recover(cronLog),
		)),
	}
}

func (r *Runner) Start(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Starting funnel runner", "runner_id", r.id)

	if err := r.eventBus.Handle(events.LeadSubscribedEvent, r.handleLeadSubscribed); err != nil {
		return err
	}

	if err := r.eventBus.Handle(events.PostPublishedEvent, r.handlePostPublished); err != nil {
		return err
	}

	if err := r.eventBus.Handle(events.LeadTagAddedEvent, r.handleLeadTagAdded); err != nil {
		return err
	}

	if err := r.eventBus.Subscribe(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	_, err := r.cron.AddFunc("* * * * *", func() {
		if err := r.engine.Sweep(ctx, time.Now()); err != nil {
			r.logger.ErrorContext(ctx, "Sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	r.cron.Start()

	r.logger.InfoContext(ctx, "Runner started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	r.logger.InfoContext(ctx, "Shutting down runner...")

	// Let an in-flight sweep finish before returning.
	<-r.cron.Stop().Done()

	return nil
}

func (r *Runner) handleLeadSubscribed(ctx context.Context, event any) error {
	subscribed, ok := event.(*events.LeadSubscribed)
	if !ok {
		r.logger.ErrorContext(ctx, "Invalid event type for LeadSubscribed")

		return nil
	}

	lead, err := r.store.Leads().GetByID(ctx, subscribed.LeadID)
	if err != nil {
		if persistence.IsLeadNotFound(err) {
			r.logger.WarnContext(ctx, "Subscribed lead no longer exists", "lead_id", subscribed.LeadID)

			return nil
		}

		return err
	}

	return r.dispatcher.Dispatch(ctx, funnel.LeadSubscribedTrigger, lead, nil)
}

func (r *Runner) handlePostPublished(ctx context.Context, event any) error {
	published, ok := event.(*events.PostPublished)
	if !ok {
		r.logger.ErrorContext(ctx, "Invalid event type for PostPublished")

		return nil
	}

	r.logger.InfoContext(ctx, "Post published", "post_title", published.PostTitle)

	alert := fmt.Sprintf("📣 Novo post no ar!\n\n%q\n%s", published.PostTitle, published.PostURL)
	r.gateway.NotifyAdmin(ctx, delivery.ForceFallback, nil, alert)

	eventContext := map[string]string{
		"post_title": published.PostTitle,
		"post_url":   published.PostURL,
	}

	return r.dispatcher.DispatchToActiveLeads(ctx, funnel.DefaultPostTrigger, eventContext)
}

func (r *Runner) handleLeadTagAdded(ctx context.Context, event any) error {
	tagAdded, ok := event.(*events.LeadTagAdded)
	if !ok {
		r.logger.ErrorContext(ctx, "Invalid event type for LeadTagAdded")

		return nil
	}

	lead, err := r.store.Leads().GetByID(ctx, tagAdded.LeadID)
	if err != nil {
		if persistence.IsLeadNotFound(err) {
			r.logger.WarnContext(ctx, "Tagged lead no longer exists", "lead_id", tagAdded.LeadID)

			return nil
		}

		return err
	}

	return r.dispatcher.Dispatch(ctx, funnel.TagAddedTriggerPrefix+tagAdded.Tag, lead, nil)
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
