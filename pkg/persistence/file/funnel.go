package file

import (
	"context"
	"path"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// FunnelRepository stores funnel definitions under <root>/funnels.
type FunnelRepository struct {
	collection
}

// NewFunnelRepository creates a new funnel repository.
func NewFunnelRepository(root string) *FunnelRepository {
	return &FunnelRepository{collection{dir: path.Join(root, "funnels")}}
}

// GetAll returns every persisted funnel.
func (r *FunnelRepository) GetAll(_ context.Context) ([]*models.Funnel, error) {
	ids, err := r.listIDs()
	if err != nil {
		return nil, err
	}

	funnels := make([]*models.Funnel, 0, len(ids))

	for _, id := range ids {
		var funnel models.Funnel

		found, err := r.read(id, &funnel)
		if err != nil {
			return nil, err
		}

		if found {
			funnels = append(funnels, &funnel)
		}
	}

	return funnels, nil
}

// GetByID retrieves a funnel by its ID.
func (r *FunnelRepository) GetByID(_ context.Context, id string) (*models.Funnel, error) {
	var funnel models.Funnel

	found, err := r.read(id, &funnel)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrFunnelNotFound)
	}

	return &funnel, nil
}

// Save upserts a funnel, replacing the whole record.
func (r *FunnelRepository) Save(_ context.Context, funnel *models.Funnel) error {
	now := time.Now().UTC()
	if funnel.CreatedAt.IsZero() {
		funnel.CreatedAt = now
	}

	funnel.UpdatedAt = now

	return r.write(funnel.ID, funnel)
}

// Delete removes a funnel by its ID. Deleting a missing funnel is a no-op.
func (r *FunnelRepository) Delete(_ context.Context, id string) error {
	return r.remove(id)
}
