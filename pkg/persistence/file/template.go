package file

import (
	"context"
	"path"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// TemplateRepository stores WhatsApp message templates under <root>/templates.
type TemplateRepository struct {
	collection
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{collection{dir: path.Join(root, "templates")}}
}

// GetAll returns every persisted message template.
func (r *TemplateRepository) GetAll(_ context.Context) ([]*models.MessageTemplate, error) {
	ids, err := r.listIDs()
	if err != nil {
		return nil, err
	}

	templates := make([]*models.MessageTemplate, 0, len(ids))

	for _, id := range ids {
		var template models.MessageTemplate

		found, err := r.read(id, &template)
		if err != nil {
			return nil, err
		}

		if found {
			templates = append(templates, &template)
		}
	}

	return templates, nil
}

// GetByID retrieves a message template by its ID.
func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.MessageTemplate, error) {
	var template models.MessageTemplate

	found, err := r.read(id, &template)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	return &template, nil
}

// Save upserts a message template.
func (r *TemplateRepository) Save(_ context.Context, template *models.MessageTemplate) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	return r.write(template.ID, template)
}

// Delete removes a message template by its ID.
func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	return r.remove(id)
}
