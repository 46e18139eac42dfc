// Package memory provides an in-memory persistence implementation, used by
// tests and by the memory:// database URL for local development.
package memory

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// Persistence implements persistence.Persistence with process-local maps.
// Records are deep-cloned on the way in and out, so callers can mutate
// results (including nested nodes, tags, history and context) without
// corrupting the store.
type Persistence struct {
	mu         sync.RWMutex
	funnels    map[string]*models.Funnel
	executions map[string]*models.FunnelExecution
	leads      map[string]*models.Lead
	templates  map[string]*models.MessageTemplate
}

// NewPersistence creates an empty in-memory persistence.
func NewPersistence() *Persistence {
	return &Persistence{
		funnels:    make(map[string]*models.Funnel),
		executions: make(map[string]*models.FunnelExecution),
		leads:      make(map[string]*models.Lead),
		templates:  make(map[string]*models.MessageTemplate),
	}
}

func (p *Persistence) Funnels() persistence.FunnelRepository       { return &funnelRepo{p} }
func (p *Persistence) Executions() persistence.ExecutionRepository { return &executionRepo{p} }
func (p *Persistence) Leads() persistence.LeadRepository           { return &leadRepo{p} }
func (p *Persistence) Templates() persistence.TemplateRepository   { return &templateRepo{p} }

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }
func (p *Persistence) Close(_ context.Context) error       { return nil }

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}

	copied := *s

	return &copied
}

func cloneFunnel(f *models.Funnel) *models.Funnel {
	copied := *f

	if f.Nodes != nil {
		copied.Nodes = make([]*models.FunnelNode, len(f.Nodes))

		for i, node := range f.Nodes {
			n := *node
			n.NextNodeID = cloneStringPtr(node.NextNodeID)
			n.TrueNodeID = cloneStringPtr(node.TrueNodeID)
			n.FalseNodeID = cloneStringPtr(node.FalseNodeID)
			copied.Nodes[i] = &n
		}
	}

	return &copied
}

func cloneExecution(e *models.FunnelExecution) *models.FunnelExecution {
	copied := *e
	copied.CurrentNodeID = cloneStringPtr(e.CurrentNodeID)

	if e.History != nil {
		copied.History = make([]models.HistoryEntry, len(e.History))
		copy(copied.History, e.History)
	}

	if e.Context != nil {
		copied.Context = maps.Clone(e.Context)
	}

	return &copied
}

func cloneLead(l *models.Lead) *models.Lead {
	copied := *l

	if l.Tags != nil {
		copied.Tags = make([]string, len(l.Tags))
		copy(copied.Tags, l.Tags)
	}

	return &copied
}

func cloneTemplate(t *models.MessageTemplate) *models.MessageTemplate {
	copied := *t

	return &copied
}

type funnelRepo struct{ p *Persistence }

func (r *funnelRepo) GetAll(_ context.Context) ([]*models.Funnel, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	funnels := make([]*models.Funnel, 0, len(r.p.funnels))
	for _, f := range r.p.funnels {
		funnels = append(funnels, cloneFunnel(f))
	}

	return funnels, nil
}

func (r *funnelRepo) GetByID(_ context.Context, id string) (*models.Funnel, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	f, ok := r.p.funnels[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrFunnelNotFound)
	}

	return cloneFunnel(f), nil
}

func (r *funnelRepo) Save(_ context.Context, funnel *models.Funnel) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()
	if funnel.CreatedAt.IsZero() {
		funnel.CreatedAt = now
	}

	funnel.UpdatedAt = now

	r.p.funnels[funnel.ID] = cloneFunnel(funnel)

	return nil
}

func (r *funnelRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.funnels, id)

	return nil
}

type executionRepo struct{ p *Persistence }

func (r *executionRepo) GetAll(_ context.Context) ([]*models.FunnelExecution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	executions := make([]*models.FunnelExecution, 0, len(r.p.executions))
	for _, e := range r.p.executions {
		executions = append(executions, cloneExecution(e))
	}

	return executions, nil
}

func (r *executionRepo) GetByID(_ context.Context, id string) (*models.FunnelExecution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	e, ok := r.p.executions[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return cloneExecution(e), nil
}

func (r *executionRepo) Save(_ context.Context, execution *models.FunnelExecution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	r.p.executions[execution.ID] = cloneExecution(execution)

	return nil
}

func (r *executionRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.executions, id)

	return nil
}

type leadRepo struct{ p *Persistence }

func (r *leadRepo) GetAll(_ context.Context) ([]*models.Lead, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	leads := make([]*models.Lead, 0, len(r.p.leads))
	for _, l := range r.p.leads {
		leads = append(leads, cloneLead(l))
	}

	return leads, nil
}

func (r *leadRepo) GetByID(_ context.Context, id string) (*models.Lead, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	l, ok := r.p.leads[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrLeadNotFound)
	}

	return cloneLead(l), nil
}

func (r *leadRepo) GetByEmail(_ context.Context, email string) (*models.Lead, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, l := range r.p.leads {
		if l.Email == normalized {
			return cloneLead(l), nil
		}
	}

	return nil, persistence.NewStoreError("GetByEmail", normalized, persistence.ErrLeadNotFound)
}

func (r *leadRepo) Save(_ context.Context, lead *models.Lead) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	r.p.leads[lead.ID] = cloneLead(lead)

	return nil
}

func (r *leadRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.leads, id)

	return nil
}

type templateRepo struct{ p *Persistence }

func (r *templateRepo) GetAll(_ context.Context) ([]*models.MessageTemplate, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	templates := make([]*models.MessageTemplate, 0, len(r.p.templates))
	for _, tpl := range r.p.templates {
		templates = append(templates, cloneTemplate(tpl))
	}

	return templates, nil
}

func (r *templateRepo) GetByID(_ context.Context, id string) (*models.MessageTemplate, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	tpl, ok := r.p.templates[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	return cloneTemplate(tpl), nil
}

func (r *templateRepo) Save(_ context.Context, template *models.MessageTemplate) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	r.p.templates[template.ID] = cloneTemplate(template)

	return nil
}

func (r *templateRepo) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.templates, id)

	return nil
}
