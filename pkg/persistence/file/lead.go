package file

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// LeadRepository stores leads under <root>/leads.
type LeadRepository struct {
	collection
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(root string) *LeadRepository {
	return &LeadRepository{collection{dir: path.Join(root, "leads")}}
}

// GetAll returns every persisted lead.
func (r *LeadRepository) GetAll(_ context.Context) ([]*models.Lead, error) {
	ids, err := r.listIDs()
	if err != nil {
		return nil, err
	}

	leads := make([]*models.Lead, 0, len(ids))

	for _, id := range ids {
		var lead models.Lead

		found, err := r.read(id, &lead)
		if err != nil {
			return nil, err
		}

		if found {
			leads = append(leads, &lead)
		}
	}

	return leads, nil
}

// GetByID retrieves a lead by its ID.
func (r *LeadRepository) GetByID(_ context.Context, id string) (*models.Lead, error) {
	var lead models.Lead

	found, err := r.read(id, &lead)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrLeadNotFound)
	}

	return &lead, nil
}

// GetByEmail retrieves a lead by its normalized email address.
func (r *LeadRepository) GetByEmail(ctx context.Context, email string) (*models.Lead, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	leads, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, lead := range leads {
		if lead.Email == normalized {
			return lead, nil
		}
	}

	return nil, persistence.NewStoreError("GetByEmail", normalized, persistence.ErrLeadNotFound)
}

// Save upserts a lead record.
func (r *LeadRepository) Save(_ context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	return r.write(lead.ID, lead)
}

// Delete removes a lead by its ID.
func (r *LeadRepository) Delete(_ context.Context, id string) error {
	return r.remove(id)
}
