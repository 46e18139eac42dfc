// Package web provides the HTTP surface of the funnel engine: funnels,
// leads, message templates, manual triggers and bulk sends.
package web

// CreateFunnelRequest is the body for creating an empty funnel.
type CreateFunnelRequest struct {
	Name    string `json:"name"    validate:"required,min=3"`
	Trigger string `json:"trigger" validate:"required"`
}

// SaveTemplateRequest is the body for creating or updating a message
// template.
type SaveTemplateRequest struct {
	Title   string `json:"title"   validate:"required"`
	Content string `json:"content" validate:"required"`
}

// AddTagRequest is the body for tagging a lead.
type AddTagRequest struct {
	Tag string `json:"tag" validate:"required"`
}

// UpdateStageRequest is the body for moving a lead across the pipeline.
type UpdateStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// TriggerRequest is the body for POST /triggers/:name. Only the fields the
// named trigger consumes are read.
type TriggerRequest struct {
	LeadID    string `json:"lead_id,omitempty"`
	Tag       string `json:"tag,omitempty"`
	PostTitle string `json:"post_title,omitempty"`
	PostURL   string `json:"post_url,omitempty"`
}

// BulkSendRequest is the body for a sequential WhatsApp broadcast. With no
// LeadIDs the broadcast goes to every active lead with a phone number.
type BulkSendRequest struct {
	TemplateID string   `json:"template_id" validate:"required"`
	LeadIDs    []string `json:"lead_ids,omitempty"`
}

// BulkSendResponse reports the outcome of a bulk send.
type BulkSendResponse struct {
	Total int `json:"total"`
	Sent  int `json:"sent"`
}
