package delivery

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ForceFallback is a template name guaranteed not to exist on the official
// channel. Callers use it to route lead-specific free text straight to the
// fallback channel, since the official channel only accepts preapproved
// templates.
const ForceFallback = "FORCE_FALLBACK"

var tracer = otel.Tracer("leadflow/delivery")

// Gateway sends WhatsApp messages with automatic failover: official
// template channel first, free-text fallback on any failure. Configuration
// errors and provider errors are ordinary failures — the gateway never
// returns an error, only a success flag.
type Gateway struct {
	template    TemplateChannel
	text        TextChannel
	adminNumber string
	logger      *slog.Logger
}

// NewGateway creates a gateway. Either channel may be nil when its
// credentials are absent; a nil channel simply always fails.
func NewGateway(template TemplateChannel, text TextChannel, adminNumber string, logger *slog.Logger) *Gateway {
	return &Gateway{
		template:    template,
		text:        text,
		adminNumber: adminNumber,
		logger:      logger.With("module", "delivery_gateway"),
	}
}

// SendHybrid attempts the official template channel, falling back to the
// free-text channel with fallbackText. Returns true if either channel
// reports success.
func (g *Gateway) SendHybrid(ctx context.Context, to, templateName string, variables []string, fallbackText string) bool {
	ctx, span := tracer.Start(ctx, "gateway.send_hybrid")
	defer span.End()

	number := sanitizeNumber(to)
	if number == "" {
		return false
	}

	span.SetAttributes(attribute.String("delivery.template", templateName))

	if g.template != nil {
		err := g.template.SendTemplate(ctx, number, templateName, variables)
		if err == nil {
			span.SetAttributes(attribute.String("delivery.channel", "template"))

			return true
		}

		g.logger.WarnContext(ctx, "Template channel failed, trying fallback", "error", err)
	}

	if g.text == nil {
		return false
	}

	err := g.text.SendText(ctx, number, fallbackText)
	if err != nil {
		g.logger.ErrorContext(ctx, "All delivery channels failed", "to", number, "error", err)

		return false
	}

	span.SetAttributes(attribute.String("delivery.channel", "fallback"))

	return true
}

// SendBulk sends to an ordered list of recipients strictly sequentially,
// invoking onProgress after each attempt, and returns the success count.
// Sequential processing respects per-recipient and per-provider rate limits
// and keeps the progress signal linear.
func (g *Gateway) SendBulk(ctx context.Context, recipients []string, templateName string, variables []string, fallbackText string, onProgress ProgressFunc) int {
	total := len(recipients)
	successCount := 0

	for i, recipient := range recipients {
		if g.SendHybrid(ctx, recipient, templateName, variables, fallbackText) {
			successCount++
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	return successCount
}

// NotifyAdmin sends an operational alert to the configured admin number.
// A missing admin number is a silent no-op.
func (g *Gateway) NotifyAdmin(ctx context.Context, templateName string, variables []string, fallbackText string) bool {
	if g.adminNumber == "" {
		return false
	}

	return g.SendHybrid(ctx, g.adminNumber, templateName, variables, fallbackText)
}

// sanitizeNumber strips everything but digits from a phone number.
func sanitizeNumber(raw string) string {
	var b strings.Builder

	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}
