package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/leadflowhq/leadflow/pkg/delivery"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
	"github.com/leadflowhq/leadflow/pkg/funnel"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/services"
)

// BulkSender is the slice of the delivery gateway the bulk endpoint needs.
type BulkSender interface {
	SendBulk(ctx context.Context, recipients []string, templateName string, variables []string, fallbackText string, onProgress delivery.ProgressFunc) int
}

type APIHandlers struct {
	funnelService   *services.FunnelService
	leadService     *services.LeadService
	templateService *services.TemplateService
	store           persistence.Persistence
	gateway         BulkSender
	bus             eventbus.EventPublisher
	validator       *validator.Validate
	logger          *slog.Logger
}

func NewAPIHandlers(
	funnelService *services.FunnelService,
	leadService *services.LeadService,
	templateService *services.TemplateService,
	store persistence.Persistence,
	gateway BulkSender,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		funnelService:   funnelService,
		leadService:     leadService,
		templateService: templateService,
		store:           store,
		gateway:         gateway,
		bus:             bus,
		validator:       validator.New(validator.WithRequiredStructEnabled()),
		logger:          logger.With("module", "web"),
	}
}

// Funnels

func (h *APIHandlers) GetFunnels(c fiber.Ctx) error {
	funnels, err := h.funnelService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(funnels)
}

func (h *APIHandlers) GetFunnel(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Funnel ID is required")
	}

	f, err := h.funnelService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(f)
}

func (h *APIHandlers) CreateFunnel(c fiber.Ctx) error {
	var req CreateFunnelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.funnelService.Create(c.Context(), req.Name, req.Trigger)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateFunnel is a full-document overwrite: the editor always sends the
// whole graph.
func (h *APIHandlers) UpdateFunnel(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Funnel ID is required")
	}

	existing, err := h.funnelService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	var body models.Funnel
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	body.ID = existing.ID
	body.CreatedAt = existing.CreatedAt

	if err := h.funnelService.Save(c.Context(), &body); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(body)
}

func (h *APIHandlers) DeleteFunnel(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Funnel ID is required")
	}

	if _, err := h.funnelService.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.funnelService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// BootstrapFunnel guarantees the default post-notification funnel exists
// and returns it.
func (h *APIHandlers) BootstrapFunnel(c fiber.Ctx) error {
	f, err := funnel.EnsureDefaultPostFunnel(c.Context(), h.store, h.logger)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(f)
}

// Leads

func (h *APIHandlers) GetLeads(c fiber.Ctx) error {
	leads, err := h.leadService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(leads)
}

func (h *APIHandlers) GetLead(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Lead ID is required")
	}

	lead, err := h.leadService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(lead)
}

func (h *APIHandlers) SubscribeLead(c fiber.Ctx) error {
	var req services.SubscribeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	lead, err := h.leadService.Subscribe(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(lead)
}

func (h *APIHandlers) UnsubscribeLead(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Lead ID is required")
	}

	if err := h.leadService.Unsubscribe(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AddLeadTag(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Lead ID is required")
	}

	var req AddTagRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	lead, err := h.leadService.AddTag(c.Context(), id, req.Tag)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(lead)
}

func (h *APIHandlers) UpdateLeadStage(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Lead ID is required")
	}

	var req UpdateStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	lead, err := h.leadService.UpdateStage(c.Context(), id, models.PipelineStage(req.Stage))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(lead)
}

// Templates

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.templateService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(templates)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	tpl, err := h.templateService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(tpl)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req SaveTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	tpl := &models.MessageTemplate{
		ID:      uuid.New().String(),
		Title:   req.Title,
		Content: req.Content,
		Type:    "text",
	}

	if err := h.templateService.Save(c.Context(), tpl); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tpl)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	existing, err := h.templateService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req SaveTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing.Title = req.Title
	existing.Content = req.Content

	if err := h.templateService.Save(c.Context(), existing); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	if err := h.templateService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Triggers

// TriggerEvent publishes a trigger event by name. The runner consumes it
// and dispatches the matching funnels, so a manual trigger behaves exactly
// like an organic one.
func (h *APIHandlers) TriggerEvent(c fiber.Ctx) error {
	name := c.Params("name")

	var req TriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	var (
		key   string
		event eventbus.Event
	)

	switch name {
	case "post-published":
		if req.PostTitle == "" || req.PostURL == "" {
			return badRequest(c, "post_title and post_url are required")
		}

		key = uuid.New().String()
		event = events.PostPublished{
			BaseEvent: events.NewBaseEvent(events.PostPublishedEvent),
			PostTitle: req.PostTitle,
			PostURL:   req.PostURL,
		}

	case "lead-subscribed":
		lead, err := h.leadService.Get(c.Context(), req.LeadID)
		if err != nil {
			return handleServiceError(c, err)
		}

		key = lead.ID
		event = events.LeadSubscribed{
			BaseEvent: events.NewBaseEvent(events.LeadSubscribedEvent),
			LeadID:    lead.ID,
		}

	case "tag-added":
		if req.Tag == "" {
			return badRequest(c, "tag is required")
		}

		lead, err := h.leadService.Get(c.Context(), req.LeadID)
		if err != nil {
			return handleServiceError(c, err)
		}

		key = lead.ID
		event = events.LeadTagAdded{
			BaseEvent: events.NewBaseEvent(events.LeadTagAddedEvent),
			LeadID:    lead.ID,
			Tag:       req.Tag,
		}

	default:
		return badRequest(c, "Unknown trigger: "+name)
	}

	if err := h.bus.Publish(c.Context(), key, event); err != nil {
		return internalError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Trigger published", "trigger", name)

	return c.SendStatus(fiber.StatusAccepted)
}

// Messaging

// BulkSend broadcasts a message template over WhatsApp to the selected
// leads, strictly sequentially.
func (h *APIHandlers) BulkSend(c fiber.Ctx) error {
	var req BulkSendRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	tpl, err := h.templateService.Get(c.Context(), req.TemplateID)
	if err != nil {
		return handleServiceError(c, err)
	}

	recipients, err := h.resolveRecipients(c.Context(), req.LeadIDs)
	if err != nil {
		return handleServiceError(c, err)
	}

	sent := h.gateway.SendBulk(c.Context(), recipients, delivery.ForceFallback, nil, tpl.Content, func(current, total int) {
		h.logger.InfoContext(c.Context(), "Bulk send progress", "current", current, "total", total)
	})

	return c.JSON(BulkSendResponse{Total: len(recipients), Sent: sent})
}

func (h *APIHandlers) resolveRecipients(ctx context.Context, leadIDs []string) ([]string, error) {
	if len(leadIDs) > 0 {
		recipients := make([]string, 0, len(leadIDs))

		for _, id := range leadIDs {
			lead, err := h.leadService.Get(ctx, id)
			if err != nil {
				return nil, err
			}

			if lead.Phone != "" {
				recipients = append(recipients, lead.Phone)
			}
		}

		return recipients, nil
	}

	leads, err := h.leadService.List(ctx)
	if err != nil {
		return nil, err
	}

	var recipients []string

	for _, lead := range leads {
		if lead.Status == models.LeadStatusActive && lead.Phone != "" {
			recipients = append(recipients, lead.Phone)
		}
	}

	return recipients, nil
}

// Health

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "leadflow API is healthy"
	httpStatus := http.StatusOK

	storeErr := h.store.HealthCheck(c.Context())
	if storeErr != nil {
		status = "unhealthy"
		message = "leadflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": storeErr == nil,
		},
		"timestamp": time.Now().UTC(),
	})
}
