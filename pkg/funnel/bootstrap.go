package funnel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// DefaultPostTrigger is the broadcast trigger fired when a blog post goes
// live. The bootstrap funnel listens on it.
const DefaultPostTrigger = "new_post_published"

// EnsureDefaultPostFunnel guarantees a post-notification funnel exists:
// WhatsApp alert, a day's pause, then an email recap. It is idempotent —
// any existing funnel on the trigger, active or not, is returned as-is so
// operator edits and deactivations stick across restarts.
func EnsureDefaultPostFunnel(ctx context.Context, store persistence.Persistence, logger *slog.Logger) (*models.Funnel, error) {
	funnels, err := store.Funnels().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}

	for _, f := range funnels {
		if f.Trigger == DefaultPostTrigger {
			return f, nil
		}
	}

	tpl := &models.MessageTemplate{
		ID:      uuid.New().String(),
		Title:   "Notificação: Novo Post",
		Content: "🚀 *Novidade no Blog!*\n\nAcabei de publicar o artigo: \"{{post_title}}\"\n\nConfira agora mesmo: {{post_url}}",
		Type:    "text",
	}

	if err := store.Templates().Save(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap template: %w", err)
	}

	whatsappID := uuid.New().String()
	delayID := uuid.New().String()
	emailID := uuid.New().String()

	funnel := models.NewFunnel("Notificação de Novo Post", DefaultPostTrigger)
	funnel.StartNodeID = whatsappID
	funnel.Nodes = []*models.FunnelNode{
		{
			ID:       whatsappID,
			Type:     models.NodeTypeWhatsApp,
			Position: models.Position{X: 100, Y: 100},
			Data: models.NodeData{
				WATemplateID:    tpl.ID,
				WATemplateTitle: tpl.Title,
			},
			NextNodeID: &delayID,
		},
		{
			ID:       delayID,
			Type:     models.NodeTypeDelay,
			Position: models.Position{X: 100, Y: 250},
			Data: models.NodeData{
				Hours: defaultDelayHours,
			},
			NextNodeID: &emailID,
		},
		{
			ID:       emailID,
			Type:     models.NodeTypeEmail,
			Position: models.Position{X: 100, Y: 400},
			Data: models.NodeData{
				Subject: "Você já viu o novo artigo? 👀",
				Content: "Olá {{name}},\n\nOntem publiquei o artigo \"{{post_title}}\" e não queria que você perdesse.\n\nLeia aqui: {{post_url}}\n\nAbraço!",
			},
		},
	}

	if err := store.Funnels().Save(ctx, funnel); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap funnel: %w", err)
	}

	logger.InfoContext(ctx, "Bootstrap funnel created",
		"funnel_id", funnel.ID,
		"trigger", DefaultPostTrigger,
	)

	return funnel, nil
}
