package funnel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
)

func TestDispatchCreatesAndSweepsImmediately(t *testing.T) {
	store := memory.NewPersistence()

	funnel := models.NewFunnel("Welcome", "lead_subscribed")
	funnel.StartNodeID = "n-email"
	funnel.Nodes = []*models.FunnelNode{
		{
			ID:   "n-email",
			Type: models.NodeTypeEmail,
			Data: models.NodeData{Subject: "Bem-vindo, {{name}}!", Content: "Olá {{name}}"},
		},
	}
	require.NoError(t, store.Funnels().Save(t.Context(), funnel))

	lead := &models.Lead{ID: "lead-1", Email: "x@example.com", Name: "Ana", Status: models.LeadStatusActive}
	require.NoError(t, store.Leads().Save(t.Context(), lead))

	email := &captureEmail{}
	engine := NewEngine(store, email, &captureGateway{ok: true}, nil, testLogger())
	dispatcher := NewDispatcher(store, engine, testLogger())
	dispatcher.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, dispatcher.Dispatch(t.Context(), "lead_subscribed", lead, nil))

	// The sole node is non-blocking, so the immediate sweep runs it.
	require.Len(t, email.sends, 1)
	assert.Equal(t, "Bem-vindo, Ana!", email.sends[0].subject)

	executions, err := store.Executions().GetAll(t.Context())
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusCompleted, executions[0].Status)
	assert.Equal(t, funnel.ID, executions[0].FunnelID)
	assert.Equal(t, lead.ID, executions[0].LeadID)
}

func TestDispatchSkipsInactiveMismatchedAndUnrunnable(t *testing.T) {
	store := memory.NewPersistence()

	inactive := models.NewFunnel("Inactive", "lead_subscribed")
	inactive.IsActive = false
	inactive.StartNodeID = "n"
	inactive.Nodes = []*models.FunnelNode{{ID: "n", Type: models.NodeTypeEmail}}
	require.NoError(t, store.Funnels().Save(t.Context(), inactive))

	otherTrigger := models.NewFunnel("Other", "new_post_published")
	otherTrigger.StartNodeID = "n"
	otherTrigger.Nodes = []*models.FunnelNode{{ID: "n", Type: models.NodeTypeEmail}}
	require.NoError(t, store.Funnels().Save(t.Context(), otherTrigger))

	// Matching trigger but no start node.
	unrunnable := models.NewFunnel("Draft", "lead_subscribed")
	unrunnable.Nodes = []*models.FunnelNode{{ID: "n", Type: models.NodeTypeEmail}}
	require.NoError(t, store.Funnels().Save(t.Context(), unrunnable))

	lead := &models.Lead{ID: "lead-1", Email: "x@example.com", Status: models.LeadStatusActive}
	require.NoError(t, store.Leads().Save(t.Context(), lead))

	engine := NewEngine(store, &captureEmail{}, &captureGateway{ok: true}, nil, testLogger())
	dispatcher := NewDispatcher(store, engine, testLogger())

	require.NoError(t, dispatcher.Dispatch(t.Context(), "lead_subscribed", lead, nil))

	executions, err := store.Executions().GetAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestDispatchSeedsExecutionContext(t *testing.T) {
	store := memory.NewPersistence()

	funnel := models.NewFunnel("Post", DefaultPostTrigger)
	funnel.StartNodeID = "n-email"
	funnel.Nodes = []*models.FunnelNode{
		{
			ID:   "n-email",
			Type: models.NodeTypeEmail,
			Data: models.NodeData{Subject: "Novo: {{post_title}}", Content: "{{post_url}}"},
		},
	}
	require.NoError(t, store.Funnels().Save(t.Context(), funnel))

	lead := &models.Lead{ID: "lead-1", Email: "x@example.com", Status: models.LeadStatusActive}
	require.NoError(t, store.Leads().Save(t.Context(), lead))

	email := &captureEmail{}
	engine := NewEngine(store, email, &captureGateway{ok: true}, nil, testLogger())
	dispatcher := NewDispatcher(store, engine, testLogger())

	eventContext := map[string]string{
		"post_title": "Go em produção",
		"post_url":   "https://blog.example.com/go",
	}
	require.NoError(t, dispatcher.Dispatch(t.Context(), DefaultPostTrigger, lead, eventContext))

	require.Len(t, email.sends, 1)
	assert.Equal(t, "Novo: Go em produção", email.sends[0].subject)
	assert.Equal(t, "https://blog.example.com/go", email.sends[0].body)
}

func TestDispatchToActiveLeads(t *testing.T) {
	store := memory.NewPersistence()

	funnel := models.NewFunnel("Broadcast", DefaultPostTrigger)
	funnel.StartNodeID = "n-email"
	funnel.Nodes = []*models.FunnelNode{
		{
			ID:   "n-email",
			Type: models.NodeTypeEmail,
			Data: models.NodeData{Subject: "Oi", Content: "novidades"},
		},
	}
	require.NoError(t, store.Funnels().Save(t.Context(), funnel))

	active1 := &models.Lead{ID: "lead-1", Email: "a@example.com", Status: models.LeadStatusActive}
	active2 := &models.Lead{ID: "lead-2", Email: "b@example.com", Status: models.LeadStatusActive}
	unsubscribed := &models.Lead{ID: "lead-3", Email: "c@example.com", Status: models.LeadStatusUnsubscribed}

	for _, lead := range []*models.Lead{active1, active2, unsubscribed} {
		require.NoError(t, store.Leads().Save(t.Context(), lead))
	}

	email := &captureEmail{}
	engine := NewEngine(store, email, &captureGateway{ok: true}, nil, testLogger())
	dispatcher := NewDispatcher(store, engine, testLogger())

	require.NoError(t, dispatcher.DispatchToActiveLeads(t.Context(), DefaultPostTrigger, nil))

	assert.Len(t, email.sends, 2)

	recipients := map[string]bool{}
	for _, send := range email.sends {
		recipients[send.to] = true
	}

	assert.True(t, recipients["a@example.com"])
	assert.True(t, recipients["b@example.com"])
	assert.False(t, recipients["c@example.com"])

	executions, err := store.Executions().GetAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, executions, 2)
}

func TestDispatchToActiveLeadsNoMatchingFunnel(t *testing.T) {
	store := memory.NewPersistence()

	lead := &models.Lead{ID: "lead-1", Email: "a@example.com", Status: models.LeadStatusActive}
	require.NoError(t, store.Leads().Save(t.Context(), lead))

	engine := NewEngine(store, &captureEmail{}, &captureGateway{ok: true}, nil, testLogger())
	dispatcher := NewDispatcher(store, engine, testLogger())

	require.NoError(t, dispatcher.DispatchToActiveLeads(t.Context(), "nobody_listens", nil))

	executions, err := store.Executions().GetAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, executions)
}
