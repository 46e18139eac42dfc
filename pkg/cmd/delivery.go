package cmd

import (
	"context"
	"log/slog"

	"github.com/leadflowhq/leadflow/pkg/config"
	"github.com/leadflowhq/leadflow/pkg/delivery"
	"github.com/leadflowhq/leadflow/pkg/delivery/evolution"
	"github.com/leadflowhq/leadflow/pkg/delivery/meta"
	"github.com/leadflowhq/leadflow/pkg/delivery/resend"
)

// NewDeliveryStack builds the email sender and the hybrid WhatsApp gateway
// from the environment. Channels with missing credentials stay nil, which
// the gateway treats as an always-failing channel.
func NewDeliveryStack(ctx context.Context, logger *slog.Logger) (delivery.EmailSender, *delivery.Gateway) {
	settings := config.FromEnv()

	var (
		template delivery.TemplateChannel
		text     delivery.TextChannel
	)

	if settings.MetaConfigured() {
		template = meta.NewClient(settings)
	} else {
		logger.WarnContext(ctx, "Meta WhatsApp credentials missing, official channel disabled")
	}

	if settings.EvolutionConfigured() {
		text = evolution.NewClient(settings)
	} else {
		logger.WarnContext(ctx, "Evolution API credentials missing, fallback channel disabled")
	}

	if !settings.ResendConfigured() {
		logger.WarnContext(ctx, "Resend credentials missing, email delivery will fail")
	}

	gateway := delivery.NewGateway(template, text, settings.AdminWhatsAppNumber, logger)

	return resend.NewClient(settings), gateway
}
