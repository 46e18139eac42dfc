// Package redis provides a Redis-backed persistence implementation.
// Records are JSON-encoded under "leadflow:<kind>:<id>" keys; listing a
// collection walks its key prefix with SCAN.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

const keyPrefix = "leadflow"

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client goredis.UniversalClient
}

// NewPersistence creates a Redis persistence from a redis:// URL.
func NewPersistence(databaseURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &Persistence{client: goredis.NewClient(opts)}, nil
}

// NewPersistenceWithClient wraps an existing client, used by tests.
func NewPersistenceWithClient(client goredis.UniversalClient) *Persistence {
	return &Persistence{client: client}
}

func (p *Persistence) Funnels() persistence.FunnelRepository       { return &funnelRepo{p.store("funnels")} }
func (p *Persistence) Executions() persistence.ExecutionRepository { return &executionRepo{p.store("executions")} }
func (p *Persistence) Leads() persistence.LeadRepository           { return &leadRepo{p.store("leads")} }
func (p *Persistence) Templates() persistence.TemplateRepository   { return &templateRepo{p.store("templates")} }

// HealthCheck pings the Redis server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func (p *Persistence) store(kind string) store {
	return store{client: p.client, kind: kind}
}

// store handles the shared key layout and JSON codec for one collection.
type store struct {
	client goredis.UniversalClient
	kind   string
}

func (s store) key(id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, s.kind, id)
}

func (s store) list(ctx context.Context, decode func([]byte) error) error {
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, s.kind)

	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		body, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == goredis.Nil { // expired between SCAN and GET
				continue
			}

			return fmt.Errorf("failed to fetch %s: %w", iter.Val(), err)
		}

		if err := decode(body); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", iter.Val(), err)
		}
	}

	return iter.Err()
}

func (s store) get(ctx context.Context, id string, out any) (bool, error) {
	body, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == goredis.Nil {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to fetch %s: %w", s.key(id), err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", s.key(id), err)
	}

	return true, nil
}

func (s store) set(ctx context.Context, id string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", s.key(id), err)
	}

	return s.client.Set(ctx, s.key(id), data, 0).Err()
}

func (s store) del(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

type funnelRepo struct{ store }

func (r *funnelRepo) GetAll(ctx context.Context) ([]*models.Funnel, error) {
	funnels := make([]*models.Funnel, 0)

	err := r.list(ctx, func(body []byte) error {
		var funnel models.Funnel
		if err := json.Unmarshal(body, &funnel); err != nil {
			return err
		}

		funnels = append(funnels, &funnel)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return funnels, nil
}

func (r *funnelRepo) GetByID(ctx context.Context, id string) (*models.Funnel, error) {
	var funnel models.Funnel

	found, err := r.get(ctx, id, &funnel)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrFunnelNotFound)
	}

	return &funnel, nil
}

func (r *funnelRepo) Save(ctx context.Context, funnel *models.Funnel) error {
	touch(&funnel.CreatedAt, &funnel.UpdatedAt)

	return r.set(ctx, funnel.ID, funnel)
}

func (r *funnelRepo) Delete(ctx context.Context, id string) error {
	return r.del(ctx, id)
}

type executionRepo struct{ store }

func (r *executionRepo) GetAll(ctx context.Context) ([]*models.FunnelExecution, error) {
	executions := make([]*models.FunnelExecution, 0)

	err := r.list(ctx, func(body []byte) error {
		var execution models.FunnelExecution
		if err := json.Unmarshal(body, &execution); err != nil {
			return err
		}

		executions = append(executions, &execution)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return executions, nil
}

func (r *executionRepo) GetByID(ctx context.Context, id string) (*models.FunnelExecution, error) {
	var execution models.FunnelExecution

	found, err := r.get(ctx, id, &execution)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

func (r *executionRepo) Save(ctx context.Context, execution *models.FunnelExecution) error {
	touch(&execution.CreatedAt, &execution.UpdatedAt)

	return r.set(ctx, execution.ID, execution)
}

func (r *executionRepo) Delete(ctx context.Context, id string) error {
	return r.del(ctx, id)
}

type leadRepo struct{ store }

func (r *leadRepo) GetAll(ctx context.Context) ([]*models.Lead, error) {
	leads := make([]*models.Lead, 0)

	err := r.list(ctx, func(body []byte) error {
		var lead models.Lead
		if err := json.Unmarshal(body, &lead); err != nil {
			return err
		}

		leads = append(leads, &lead)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return leads, nil
}

func (r *leadRepo) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead

	found, err := r.get(ctx, id, &lead)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrLeadNotFound)
	}

	return &lead, nil
}

func (r *leadRepo) GetByEmail(ctx context.Context, email string) (*models.Lead, error) {
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

func (r *leadRepo) Save(ctx context.Context, lead *models.Lead) error {
	touch(&lead.CreatedAt, &lead.UpdatedAt)

	return r.set(ctx, lead.ID, lead)
}

func (r *leadRepo) Delete(ctx context.Context, id string) error {
	return r.del(ctx, id)
}

type templateRepo struct{ store }

func (r *templateRepo) GetAll(ctx context.Context) ([]*models.MessageTemplate, error) {
	templates := make([]*models.MessageTemplate, 0)

	err := r.list(ctx, func(body []byte) error {
		var template models.MessageTemplate
		if err := json.Unmarshal(body, &template); err != nil {
			return err
		}

		templates = append(templates, &template)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *templateRepo) GetByID(ctx context.Context, id string) (*models.MessageTemplate, error) {
	var template models.MessageTemplate

	found, err := r.get(ctx, id, &template)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	return &template, nil
}

func (r *templateRepo) Save(ctx context.Context, template *models.MessageTemplate) error {
	touch(&template.CreatedAt, &template.UpdatedAt)

	return r.set(ctx, template.ID, template)
}

func (r *templateRepo) Delete(ctx context.Context, id string) error {
	return r.del(ctx, id)
}

func touch(createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}

	*updatedAt = now
}
