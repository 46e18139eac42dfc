package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/otelhelper"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// Trigger names the runner maps bus events onto.
const (
	LeadSubscribedTrigger = "lead_subscribed"

	// TagAddedTriggerPrefix is completed with the tag name, so a funnel can
	// listen on "tag_added:vip".
	TagAddedTriggerPrefix = "tag_added:"
)

// Dispatcher spawns executions when a trigger fires and hands them to the
// engine straight away, so the first non-blocking nodes run without waiting
// for the next scheduled sweep.
type Dispatcher struct {
	store  persistence.Persistence
	engine *Engine
	logger *slog.Logger
	now    func() time.Time
}

func NewDispatcher(store persistence.Persistence, engine *Engine, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		engine: engine,
		logger: logger.With("module", "funnel_dispatcher"),
		now:    time.Now,
	}
}

// Dispatch creates one execution per active, runnable funnel whose trigger
// matches, then sweeps immediately. Funnels with no valid start node are
// skipped. eventContext seeds the execution's interpolation context and may
// be nil.
func (d *Dispatcher) Dispatch(ctx context.Context, triggerName string, lead *models.Lead, eventContext map[string]string) error {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "dispatcher.dispatch",
		attribute.String(otelhelper.TriggerNameKey, triggerName),
		attribute.String(otelhelper.LeadIDKey, lead.ID),
	)
	defer span.End()

	funnels, err := d.store.Funnels().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list funnels: %w", err)
	}

	now := d.now()
	created := 0

	for _, f := range funnels {
		if !f.IsActive || f.Trigger != triggerName {
			continue
		}

		if !f.Runnable() {
			d.logger.WarnContext(ctx, "Skipping funnel without a valid start node",
				"funnel_id", f.ID,
				"trigger", triggerName,
			)

			continue
		}

		startNodeID := f.StartNodeID
		execution := &models.FunnelExecution{
			ID:            uuid.New().String(),
			FunnelID:      f.ID,
			LeadID:        lead.ID,
			CurrentNodeID: &startNodeID,
			Status:        models.ExecutionStatusWaiting,
			NextRunAt:     now,
			Context:       eventContext,
		}

		if err := d.store.Executions().Save(ctx, execution); err != nil {
			return fmt.Errorf("failed to create execution for funnel %s: %w", f.ID, err)
		}

		d.logger.InfoContext(ctx, "Execution created",
			"execution_id", execution.ID,
			"funnel_id", f.ID,
			"lead_id", lead.ID,
			"trigger", triggerName,
		)

		created++
	}

	if created == 0 {
		return nil
	}

	return d.engine.Sweep(ctx, now)
}

// DispatchToActiveLeads fires a broadcast trigger for every active lead.
// Executions for all leads are created first, then a single sweep advances
// them, keeping a large audience from paying one sweep per lead.
func (d *Dispatcher) DispatchToActiveLeads(ctx context.Context, triggerName string, eventContext map[string]string) error {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "dispatcher.dispatch_broadcast",
		attribute.String(otelhelper.TriggerNameKey, triggerName),
	)
	defer span.End()

	funnels, err := d.store.Funnels().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list funnels: %w", err)
	}

	var matching []*models.Funnel

	for _, f := range funnels {
		if f.IsActive && f.Trigger == triggerName && f.Runnable() {
			matching = append(matching, f)
		}
	}

	if len(matching) == 0 {
		return nil
	}

	leads, err := d.store.Leads().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list leads: %w", err)
	}

	now := d.now()
	created := 0

	for _, lead := range leads {
		if lead.Status != models.LeadStatusActive {
			continue
		}

		for _, f := range matching {
			startNodeID := f.StartNodeID
			execution := &models.FunnelExecution{
				ID:            uuid.New().String(),
				FunnelID:      f.ID,
				LeadID:        lead.ID,
				CurrentNodeID: &startNodeID,
				Status:        models.ExecutionStatusWaiting,
				NextRunAt:     now,
				Context:       eventContext,
			}

			if err := d.store.Executions().Save(ctx, execution); err != nil {
				return fmt.Errorf("failed to create execution for funnel %s: %w", f.ID, err)
			}

			created++
		}
	}

	d.logger.InfoContext(ctx, "Broadcast trigger dispatched",
		"trigger", triggerName,
		"executions", created,
	)

	if created == 0 {
		return nil
	}

	return d.engine.Sweep(ctx, now)
}
