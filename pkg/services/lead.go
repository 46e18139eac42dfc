package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/leadflowhq/leadflow/pkg/delivery"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/template"
)

const welcomeSubject = "Bem-vindo! 🎉"

const welcomeBody = "Olá {{name}},\n\n" +
	"Que bom ter você por aqui! A partir de agora você recebe em primeira " +
	"mão os novos artigos e novidades.\n\n" +
	"Abraço!"

// SubscribeRequest is the input for a new or returning subscriber.
type SubscribeRequest struct {
	Email  string `json:"email"  validate:"required,email"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Source string `json:"source,omitempty"`
}

// LeadService owns the lead lifecycle. Every transition that funnels can
// react to is announced on the event bus; the runner turns those events
// into trigger dispatches.
type LeadService struct {
	store     persistence.Persistence
	email     delivery.EmailSender
	bus       eventbus.EventPublisher
	validator *validator.Validate
	logger    *slog.Logger
}

// NewLeadService creates a lead service. email and bus may be nil; the
// corresponding side effects are then skipped.
func NewLeadService(store persistence.Persistence, email delivery.EmailSender, bus eventbus.EventPublisher, logger *slog.Logger) *LeadService {
	return &LeadService{
		store:     store,
		email:     email,
		bus:       bus,
		validator: validator.New(),
		logger:    logger.With("module", "lead_service"),
	}
}

// Subscribe upserts a lead by normalized email. New leads get the welcome
// email; leads that unsubscribed earlier are reactivated silently. Either
// way a lead.subscribed event goes out so subscription funnels fire.
func (s *LeadService) Subscribe(ctx context.Context, req SubscribeRequest) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	lead, err := s.store.Leads().GetByEmail(ctx, email)

	switch {
	case err == nil:
		if lead.Status == models.LeadStatusActive {
			return nil, fmt.Errorf("%w: lead %s is already subscribed", ErrConflict, email)
		}

		lead.Status = models.LeadStatusActive
		if req.Name != "" {
			lead.Name = req.Name
		}

		if req.Phone != "" {
			lead.Phone = req.Phone
		}

		if err := s.store.Leads().Save(ctx, lead); err != nil {
			return nil, fmt.Errorf("failed to reactivate lead: %w", err)
		}

		s.logger.InfoContext(ctx, "Lead reactivated", "lead_id", lead.ID)

	case persistence.IsLeadNotFound(err):
		lead = &models.Lead{
			ID:            uuid.New().String(),
			Email:         email,
			Name:          req.Name,
			Phone:         req.Phone,
			Source:        req.Source,
			Status:        models.LeadStatusActive,
			PipelineStage: models.StageNew,
			Tags:          []string{},
		}

		if err := s.store.Leads().Save(ctx, lead); err != nil {
			return nil, fmt.Errorf("failed to create lead: %w", err)
		}

		s.logger.InfoContext(ctx, "Lead subscribed", "lead_id", lead.ID, "source", lead.Source)

		s.sendWelcomeEmail(ctx, lead)

	default:
		return nil, fmt.Errorf("failed to look up lead: %w", err)
	}

	s.publish(ctx, lead.ID, events.LeadSubscribed{
		BaseEvent: events.NewBaseEvent(events.LeadSubscribedEvent),
		LeadID:    lead.ID,
	})

	return lead, nil
}

// Unsubscribe deactivates a lead. Running executions are not cancelled;
// broadcast triggers simply stop reaching it.
func (s *LeadService) Unsubscribe(ctx context.Context, id string) error {
	lead, err := s.store.Leads().GetByID(ctx, id)
	if err != nil {
		return err
	}

	lead.Status = models.LeadStatusUnsubscribed

	if err := s.store.Leads().Save(ctx, lead); err != nil {
		return fmt.Errorf("failed to unsubscribe lead: %w", err)
	}

	s.logger.InfoContext(ctx, "Lead unsubscribed", "lead_id", id)

	return nil
}

// AddTag appends a tag to a lead and announces it, which fires any funnel
// listening on the tag_added:<tag> trigger. Adding a tag the lead already
// carries is a no-op.
func (s *LeadService) AddTag(ctx context.Context, id, tag string) (*models.Lead, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: tag must not be empty", ErrValidation)
	}

	lead, err := s.store.Leads().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if lead.HasTag(tag) {
		return lead, nil
	}

	lead.Tags = append(lead.Tags, tag)

	if err := s.store.Leads().Save(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to tag lead: %w", err)
	}

	s.logger.InfoContext(ctx, "Tag added", "lead_id", id, "tag", tag)

	s.publish(ctx, lead.ID, events.LeadTagAdded{
		BaseEvent: events.NewBaseEvent(events.LeadTagAddedEvent),
		LeadID:    lead.ID,
		Tag:       tag,
	})

	return lead, nil
}

// UpdateStage moves a lead to another pipeline column.
func (s *LeadService) UpdateStage(ctx context.Context, id string, stage models.PipelineStage) (*models.Lead, error) {
	switch stage {
	case models.StageNew, models.StageContacted, models.StageQualified, models.StageConverted, models.StageLost:
	default:
		return nil, fmt.Errorf("%w: unknown pipeline stage %q", ErrValidation, stage)
	}

	lead, err := s.store.Leads().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lead.PipelineStage = stage

	if err := s.store.Leads().Save(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead stage: %w", err)
	}

	s.logger.InfoContext(ctx, "Pipeline stage updated", "lead_id", id, "stage", stage)

	return lead, nil
}

func (s *LeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	return s.store.Leads().GetByID(ctx, id)
}

func (s *LeadService) List(ctx context.Context) ([]*models.Lead, error) {
	return s.store.Leads().GetAll(ctx)
}

func (s *LeadService) sendWelcomeEmail(ctx context.Context, lead *models.Lead) {
	if s.email == nil {
		return
	}

	subject := template.Interpolate(welcomeSubject, lead, nil)
	body := template.Interpolate(welcomeBody, lead, nil)

	// Best effort: a welcome email bounce must not fail the subscription.
	if err := s.email.Send(ctx, lead.Email, subject, body); err != nil {
		s.logger.ErrorContext(ctx, "Welcome email failed", "lead_id", lead.ID, "error", err)
	}
}

func (s *LeadService) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish lead event", "event_type", event.GetType(), "error", err)
	}
}
