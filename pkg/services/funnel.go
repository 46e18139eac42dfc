// Package services holds the application layer between the HTTP edge and
// the stores: input validation, lead lifecycle transitions and funnel
// definition management.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/leadflowhq/leadflow/pkg/funnel"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// FunnelService manages funnel definitions. Saves are full-document
// overwrites and are validated structurally before they hit the store, so
// the engine only ever sees sound graphs.
type FunnelService struct {
	store     persistence.Persistence
	validator *validator.Validate
	logger    *slog.Logger
}

func NewFunnelService(store persistence.Persistence, logger *slog.Logger) *FunnelService {
	return &FunnelService{
		store:     store,
		validator: validator.New(),
		logger:    logger.With("module", "funnel_service"),
	}
}

// Create starts a new empty, active funnel ready for the editor.
func (s *FunnelService) Create(ctx context.Context, name, trigger string) (*models.Funnel, error) {
	f := models.NewFunnel(name, trigger)

	if err := s.validator.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if err := s.store.Funnels().Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save funnel: %w", err)
	}

	s.logger.InfoContext(ctx, "Funnel created", "funnel_id", f.ID, "trigger", trigger)

	return f, nil
}

// Save overwrites a funnel definition after struct and graph validation.
func (s *FunnelService) Save(ctx context.Context, f *models.Funnel) error {
	if err := s.validator.Struct(f); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if err := funnel.ValidateFunnel(f); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if err := s.store.Funnels().Save(ctx, f); err != nil {
		return fmt.Errorf("failed to save funnel: %w", err)
	}

	s.logger.InfoContext(ctx, "Funnel saved", "funnel_id", f.ID, "nodes", len(f.Nodes))

	return nil
}

func (s *FunnelService) Get(ctx context.Context, id string) (*models.Funnel, error) {
	return s.store.Funnels().GetByID(ctx, id)
}

func (s *FunnelService) List(ctx context.Context) ([]*models.Funnel, error) {
	return s.store.Funnels().GetAll(ctx)
}

// Delete removes a funnel. In-flight executions are not touched here; the
// sweep abandons them when it finds the funnel gone.
func (s *FunnelService) Delete(ctx context.Context, id string) error {
	if err := s.store.Funnels().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete funnel: %w", err)
	}

	s.logger.InfoContext(ctx, "Funnel deleted", "funnel_id", id)

	return nil
}

// TemplateService manages the internal WhatsApp message template registry.
type TemplateService struct {
	store     persistence.Persistence
	validator *validator.Validate
}

func NewTemplateService(store persistence.Persistence) *TemplateService {
	return &TemplateService{store: store, validator: validator.New()}
}

func (s *TemplateService) Save(ctx context.Context, tpl *models.MessageTemplate) error {
	if err := s.validator.Struct(tpl); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}

	return s.store.Templates().Save(ctx, tpl)
}

func (s *TemplateService) Get(ctx context.Context, id string) (*models.MessageTemplate, error) {
	return s.store.Templates().GetByID(ctx, id)
}

func (s *TemplateService) List(ctx context.Context) ([]*models.MessageTemplate, error) {
	return s.store.Templates().GetAll(ctx)
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	return s.store.Templates().Delete(ctx, id)
}
