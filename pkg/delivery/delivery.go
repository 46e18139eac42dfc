// Package delivery unifies the outbound messaging channels: transactional
// email, the official WhatsApp template channel and the free-text fallback
// channel, plus the hybrid gateway that fails over between the two.
package delivery

import "context"

// EmailSender delivers one HTML email. A transport failure is a genuine
// failure and must surface as an error.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// TemplateChannel is the official WhatsApp channel. It only accepts
// provider-preapproved template names with positional variables.
type TemplateChannel interface {
	SendTemplate(ctx context.Context, to, templateName string, variables []string) error
}

// TextChannel is the free-text WhatsApp fallback channel.
type TextChannel interface {
	SendText(ctx context.Context, to, text string) error
}

// ProgressFunc is invoked after each bulk-send attempt with the number of
// processed recipients and the total.
type ProgressFunc func(current, total int)
