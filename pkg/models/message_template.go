package models

import "time"

// MessageTemplate is a reusable WhatsApp text body with {{token}}
// placeholders, referenced by WHATSAPP nodes through NodeData.WATemplateID.
type MessageTemplate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"   validate:"required"`
	Content   string    `json:"content" validate:"required"`
	Type      string    `json:"type"` // currently always "text"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
