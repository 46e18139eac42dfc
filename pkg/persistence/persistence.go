// Package persistence provides the data storage abstraction for funnels,
// executions, leads and message templates.
package persistence

import (
	"context"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// FunnelRepository persists funnel definitions. Save is a full-record
// upsert: a save with fewer nodes than before drops the missing nodes.
type FunnelRepository interface {
	GetAll(ctx context.Context) ([]*models.Funnel, error)
	GetByID(ctx context.Context, id string) (*models.Funnel, error)
	Save(ctx context.Context, funnel *models.Funnel) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository persists in-flight and terminal funnel executions.
type ExecutionRepository interface {
	GetAll(ctx context.Context) ([]*models.FunnelExecution, error)
	GetByID(ctx context.Context, id string) (*models.FunnelExecution, error)
	Save(ctx context.Context, execution *models.FunnelExecution) error
	Delete(ctx context.Context, id string) error
}

// LeadRepository persists lead records.
type LeadRepository interface {
	GetAll(ctx context.Context) ([]*models.Lead, error)
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	GetByEmail(ctx context.Context, email string) (*models.Lead, error)
	Save(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, id string) error
}

// TemplateRepository persists internal WhatsApp message templates.
type TemplateRepository interface {
	GetAll(ctx context.Context) ([]*models.MessageTemplate, error)
	GetByID(ctx context.Context, id string) (*models.MessageTemplate, error)
	Save(ctx context.Context, template *models.MessageTemplate) error
	Delete(ctx context.Context, id string) error
}

// Persistence bundles all repositories behind one connection handle.
type Persistence interface {
	Funnels() FunnelRepository
	Executions() ExecutionRepository
	Leads() LeadRepository
	Templates() TemplateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
