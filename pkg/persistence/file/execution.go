package file

import (
	"context"
	"path"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// ExecutionRepository stores funnel executions under <root>/executions.
type ExecutionRepository struct {
	collection
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{collection{dir: path.Join(root, "executions")}}
}

// GetAll returns every persisted execution, terminal ones included.
func (r *ExecutionRepository) GetAll(_ context.Context) ([]*models.FunnelExecution, error) {
	ids, err := r.listIDs()
	if err != nil {
		return nil, err
	}

	executions := make([]*models.FunnelExecution, 0, len(ids))

	for _, id := range ids {
		var execution models.FunnelExecution

		found, err := r.read(id, &execution)
		if err != nil {
			return nil, err
		}

		if found {
			executions = append(executions, &execution)
		}
	}

	return executions, nil
}

// GetByID retrieves an execution by its ID.
func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.FunnelExecution, error) {
	var execution models.FunnelExecution

	found, err := r.read(id, &execution)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

// Save upserts an execution record.
func (r *ExecutionRepository) Save(_ context.Context, execution *models.FunnelExecution) error {
	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	return r.write(execution.ID, execution)
}

// Delete removes an execution by its ID.
func (r *ExecutionRepository) Delete(_ context.Context, id string) error {
	return r.remove(id)
}
