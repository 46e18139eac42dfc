// Package funnel implements the marketing funnel execution engine: the
// sweep interpreter that advances persisted executions through their node
// graphs, the trigger dispatcher that spawns them, and the save-time
// validation of funnel definitions.
package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadflowhq/leadflow/pkg/delivery"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/otelhelper"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/template"
)

const (
	defaultDelayHours = 24

	// timeGateTolerance keeps a node already scheduled for its wall-clock
	// slot from being re-gated on every sweep.
	timeGateTolerance = time.Minute

	// maxStepsPerSweep bounds non-blocking chains within one sweep so a
	// cyclic graph persisted before cycle validation existed cannot spin a
	// sweep forever.
	maxStepsPerSweep = 128

	// maxAttempts is the retry budget for executions interrupted by store
	// or infrastructure errors before they are marked failed.
	maxAttempts = 5
)

var tracer = otel.Tracer("leadflow/funnel")

// MessageGateway is the WhatsApp delivery contract the engine needs.
// *delivery.Gateway satisfies it.
type MessageGateway interface {
	SendHybrid(ctx context.Context, to, templateName string, variables []string, fallbackText string) bool
}

// Engine walks due executions through their funnel graphs. It is invoked
// synchronously from trigger dispatch and periodically from the runner's
// scheduler; it never polls on its own.
type Engine struct {
	store   persistence.Persistence
	email   delivery.EmailSender
	gateway MessageGateway
	bus     eventbus.EventPublisher
	logger  *slog.Logger

	// sweepMu serializes sweeps. The runner invokes Sweep from both the
	// cron goroutine and the bus subscriber goroutine; without mutual
	// exclusion both would read the same due execution and execute its
	// node twice before either save lands.
	sweepMu sync.Mutex
}

// NewEngine creates an engine. bus may be nil when no lifecycle events are
// wanted (tests, one-shot tools).
func NewEngine(
	store persistence.Persistence,
	email delivery.EmailSender,
	gateway MessageGateway,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:   store,
		email:   email,
		gateway: gateway,
		bus:     bus,
		logger:  logger.With("module", "funnel_engine"),
	}
}

// Sweep advances every due, non-terminal execution until it blocks on a
// delay or time gate, completes, or exhausts the step budget. Executions
// are processed independently and sequentially; node advancement within a
// single execution is strictly sequential. Concurrent callers are
// serialized, so an execution's node runs at most once per due window.
// now is injected for testability.
func (e *Engine) Sweep(ctx context.Context, now time.Time) error {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	ctx, span := otelhelper.StartSpan(ctx, tracer, "engine.sweep")
	defer span.End()

	executions, err := e.store.Executions().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	funnels, err := e.store.Funnels().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list funnels: %w", err)
	}

	leads, err := e.store.Leads().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list leads: %w", err)
	}

	funnelsByID := make(map[string]*models.Funnel, len(funnels))
	for _, f := range funnels {
		funnelsByID[f.ID] = f
	}

	leadsByID := make(map[string]*models.Lead, len(leads))
	for _, l := range leads {
		leadsByID[l.ID] = l
	}

	for _, execution := range executions {
		if !execution.Due(now) {
			continue
		}

		e.sweepOne(ctx, execution, funnelsByID, leadsByID, now)
	}

	return nil
}

func (e *Engine) sweepOne(
	ctx context.Context,
	execution *models.FunnelExecution,
	funnelsByID map[string]*models.Funnel,
	leadsByID map[string]*models.Lead,
	now time.Time,
) {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "engine.advance",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.FunnelIDKey, execution.FunnelID),
		attribute.String(otelhelper.LeadIDKey, execution.LeadID),
	)
	defer span.End()

	logger := e.logger.With(
		"execution_id", execution.ID,
		"funnel_id", execution.FunnelID,
		"lead_id", execution.LeadID,
	)

	funnel, funnelOK := funnelsByID[execution.FunnelID]
	lead, leadOK := leadsByID[execution.LeadID]

	if !funnelOK || !leadOK {
		// Funnel or lead deleted mid-flight: abandon the execution.
		execution.Status = models.ExecutionStatusCompleted
		logger.InfoContext(ctx, "Abandoning orphaned execution")
		e.persist(ctx, execution, logger)
		e.publishCompleted(ctx, execution)

		return
	}

	err := e.advance(ctx, execution, funnel, lead, now)
	if err != nil {
		otelhelper.SetError(span, err)
		e.scheduleRetry(ctx, execution, now, err, logger)
		e.persist(ctx, execution, logger)

		return
	}

	execution.Attempts = 0
	e.persist(ctx, execution, logger)

	if execution.Status == models.ExecutionStatusCompleted {
		e.publishCompleted(ctx, execution)
	}
}

// advance steps one execution through its graph until it blocks or ends.
// It only returns an error for infrastructure failures (store reads); a
// delivery failure never halts the graph. On error the execution's
// last-committed cursor is preserved, so the same node is retried on a
// later sweep.
func (e *Engine) advance(
	ctx context.Context,
	execution *models.FunnelExecution,
	funnel *models.Funnel,
	lead *models.Lead,
	now time.Time,
) error {
	logger := e.logger.With("execution_id", execution.ID, "funnel_id", funnel.ID)

	steps := 0

	for execution.CurrentNodeID != nil {
		if steps >= maxStepsPerSweep {
			logger.WarnContext(ctx, "Step budget exhausted, yielding until next sweep", "steps", steps)

			return nil
		}

		steps++

		node := funnel.NodeByID(*execution.CurrentNodeID)
		if node == nil {
			// Dangling reference: terminal, same as a deleted funnel.
			execution.Status = models.ExecutionStatusCompleted
			logger.WarnContext(ctx, "Node missing from funnel, completing execution", "node_id", *execution.CurrentNodeID)

			return nil
		}

		if blocked := e.applyTimeGate(execution, node, now); blocked {
			logger.InfoContext(ctx, "Execution gated to wall-clock send time",
				"node_id", node.ID,
				"next_run_at", execution.NextRunAt,
			)

			return nil
		}

		switch node.Type {
		case models.NodeTypeEmail:
			e.stepEmail(ctx, execution, node, lead, now, logger)
			execution.CurrentNodeID = node.NextNodeID

		case models.NodeTypeWhatsApp:
			if err := e.stepWhatsApp(ctx, execution, node, lead, now, logger); err != nil {
				return err
			}

			execution.CurrentNodeID = node.NextNodeID

		case models.NodeTypeDelay:
			hours := node.Data.Hours
			if hours <= 0 {
				hours = defaultDelayHours
			}

			execution.NextRunAt = now.Add(time.Duration(hours) * time.Hour)
			execution.CurrentNodeID = node.NextNodeID
			execution.RecordStep(node, "delayed", now)

			if execution.CurrentNodeID == nil {
				execution.Status = models.ExecutionStatusCompleted
			}

			return nil

		case models.NodeTypeCondition:
			result := models.EvaluateCondition(node.Data, lead)
			if result {
				execution.CurrentNodeID = node.TrueNodeID
			} else {
				execution.CurrentNodeID = node.FalseNodeID
			}

			execution.RecordStep(node, fmt.Sprintf("condition_%t", result), now)

		default:
			// Unknown types pass through so retired node kinds cannot
			// strand old executions.
			logger.WarnContext(ctx, "Unknown node type, passing through", "node_type", node.Type)
			execution.CurrentNodeID = node.NextNodeID
		}
	}

	execution.Status = models.ExecutionStatusCompleted

	return nil
}

// applyTimeGate pins WHATSAPP nodes carrying a send_time to the next
// occurrence of that wall-clock slot. The gate is open when now falls
// within the tolerance of today's slot, so a sweep ticking seconds after
// the slot still sends instead of rescheduling for tomorrow. Returns true
// when the execution must stop advancing for this sweep.
func (e *Engine) applyTimeGate(execution *models.FunnelExecution, node *models.FunnelNode, now time.Time) bool {
	if node.Type != models.NodeTypeWhatsApp || node.Data.SendTime == "" {
		return false
	}

	parsed, err := time.Parse("15:04", node.Data.SendTime)
	if err != nil {
		// Malformed send_time: ignore the gate rather than stall forever.
		return false
	}

	slot := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())

	diff := now.Sub(slot)
	if diff < 0 {
		diff = -diff
	}

	if diff <= timeGateTolerance {
		return false
	}

	if !slot.After(now) {
		slot = slot.Add(24 * time.Hour)
	}

	execution.NextRunAt = slot
	nodeID := node.ID
	execution.CurrentNodeID = &nodeID

	return true
}

func (e *Engine) stepEmail(
	ctx context.Context,
	execution *models.FunnelExecution,
	node *models.FunnelNode,
	lead *models.Lead,
	now time.Time,
	logger *slog.Logger,
) {
	if node.Data.Subject == "" || node.Data.Content == "" {
		execution.RecordStep(node, "skipped", now)

		return
	}

	subject := template.Interpolate(node.Data.Subject, lead, execution.Context)
	body := template.Interpolate(node.Data.Content, lead, execution.Context)

	if err := e.email.Send(ctx, lead.Email, subject, body); err != nil {
		// Fire-and-forget: a delivery failure does not halt the graph.
		logger.ErrorContext(ctx, "Email delivery failed", "node_id", node.ID, "error", err)
		execution.RecordStep(node, "email_failed", now)

		return
	}

	execution.RecordStep(node, "email_sent", now)
}

func (e *Engine) stepWhatsApp(
	ctx context.Context,
	execution *models.FunnelExecution,
	node *models.FunnelNode,
	lead *models.Lead,
	now time.Time,
	logger *slog.Logger,
) error {
	if lead.Phone == "" || node.Data.WATemplateID == "" {
		execution.RecordStep(node, "skipped", now)

		return nil
	}

	tpl, err := e.store.Templates().GetByID(ctx, node.Data.WATemplateID)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			execution.RecordStep(node, "template_missing", now)

			return nil
		}

		return fmt.Errorf("failed to resolve template %s: %w", node.Data.WATemplateID, err)
	}

	// Lead-specific free text cannot go through the official channel, so
	// force fallback delivery.
	text := template.Interpolate(tpl.Content, lead, execution.Context)

	if ok := e.gateway.SendHybrid(ctx, lead.Phone, delivery.ForceFallback, nil, text); !ok {
		logger.ErrorContext(ctx, "WhatsApp delivery failed on all channels", "node_id", node.ID)
		execution.RecordStep(node, "whatsapp_failed", now)

		return nil
	}

	execution.RecordStep(node, "whatsapp_sent", now)

	return nil
}

// scheduleRetry backs an interrupted execution off, marking it failed once
// the retry budget is spent.
func (e *Engine) scheduleRetry(ctx context.Context, execution *models.FunnelExecution, now time.Time, cause error, logger *slog.Logger) {
	execution.Attempts++

	if execution.Attempts >= maxAttempts {
		execution.Status = models.ExecutionStatusFailed
		logger.ErrorContext(ctx, "Execution failed after exhausting retries",
			"attempts", execution.Attempts,
			"error", cause,
		)
		e.publishFailed(ctx, execution, cause)

		return
	}

	execution.NextRunAt = now.Add(retryBackoff(execution.Attempts))
	logger.WarnContext(ctx, "Execution interrupted, scheduling retry",
		"attempts", execution.Attempts,
		"next_run_at", execution.NextRunAt,
		"error", cause,
	)
}

func (e *Engine) persist(ctx context.Context, execution *models.FunnelExecution, logger *slog.Logger) {
	if err := e.store.Executions().Save(ctx, execution); err != nil {
		logger.ErrorContext(ctx, "Failed to persist execution", "error", err)
	}
}

func (e *Engine) publishCompleted(ctx context.Context, execution *models.FunnelExecution) {
	if e.bus == nil {
		return
	}

	event := events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent),
		ExecutionID: execution.ID,
		FunnelID:    execution.FunnelID,
		LeadID:      execution.LeadID,
	}

	if err := e.bus.Publish(ctx, execution.ID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish execution completed event", "error", err)
	}
}

func (e *Engine) publishFailed(ctx context.Context, execution *models.FunnelExecution, cause error) {
	if e.bus == nil {
		return
	}

	event := events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent),
		ExecutionID: execution.ID,
		FunnelID:    execution.FunnelID,
		LeadID:      execution.LeadID,
		Error:       cause.Error(),
	}

	if err := e.bus.Publish(ctx, execution.ID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish execution failed event", "error", err)
	}
}

func retryBackoff(attempts int) time.Duration {
	backoff := time.Minute << (attempts - 1)
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}

	return backoff
}
