package file

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	// file:// prefix from a database URL is stripped
	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	assert.NoError(t, fp.Close(t.Context()))
}

func TestFunnelRepository_SaveAndGet(t *testing.T) {
	testDir := t.TempDir()
	fp := NewPersistence(testDir)

	next := "node-2"
	funnel := &models.Funnel{
		ID:       "welcome-funnel",
		Name:     "Welcome Series",
		Trigger:  "lead_subscribed",
		IsActive: true,
		Nodes: []*models.FunnelNode{
			{
				ID:         "node-1",
				Type:       models.NodeTypeEmail,
				Data:       models.NodeData{Subject: "Hi", Content: "Welcome {{name}}"},
				NextNodeID: &next,
			},
			{ID: "node-2", Type: models.NodeTypeDelay, Data: models.NodeData{Hours: 24}},
		},
		StartNodeID: "node-1",
	}

	err := fp.Funnels().Save(t.Context(), funnel)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(testDir, "funnels", "welcome-funnel.json"))
	assert.False(t, funnel.CreatedAt.IsZero())

	loaded, err := fp.Funnels().GetByID(t.Context(), "welcome-funnel")
	require.NoError(t, err)
	assert.Equal(t, "Welcome Series", loaded.Name)
	require.Len(t, loaded.Nodes, 2)
	require.NotNil(t, loaded.Nodes[0].NextNodeID)
	assert.Equal(t, "node-2", *loaded.Nodes[0].NextNodeID)

	all, err := fp.Funnels().GetAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFunnelRepository_SaveIsFullOverwrite(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	funnel := &models.Funnel{
		ID:    "f1",
		Name:  "Funnel",
		Nodes: []*models.FunnelNode{{ID: "a", Type: models.NodeTypeEmail}, {ID: "b", Type: models.NodeTypeDelay}},
	}
	require.NoError(t, fp.Funnels().Save(t.Context(), funnel))

	// A save with fewer nodes permanently drops the missing ones.
	funnel.Nodes = funnel.Nodes[:1]
	require.NoError(t, fp.Funnels().Save(t.Context(), funnel))

	loaded, err := fp.Funnels().GetByID(t.Context(), "f1")
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1)
}

func TestFunnelRepository_GetByID_NotFound(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	_, err := fp.Funnels().GetByID(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsFunnelNotFound(err))
}

func TestFunnelRepository_Delete(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	require.NoError(t, fp.Funnels().Save(t.Context(), &models.Funnel{ID: "f1", Name: "Funnel"}))
	require.NoError(t, fp.Funnels().Delete(t.Context(), "f1"))

	_, err := fp.Funnels().GetByID(t.Context(), "f1")
	assert.True(t, persistence.IsFunnelNotFound(err))

	// Deleting a missing record is a no-op
	assert.NoError(t, fp.Funnels().Delete(t.Context(), "f1"))
}

func TestExecutionRepository_RoundTrip(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	current := "node-1"
	execution := &models.FunnelExecution{
		ID:            "exec-1",
		FunnelID:      "f1",
		LeadID:        "lead-1",
		CurrentNodeID: &current,
		Status:        models.ExecutionStatusWaiting,
		NextRunAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Context:       map[string]string{"post_title": "Launch"},
	}

	require.NoError(t, fp.Executions().Save(t.Context(), execution))

	loaded, err := fp.Executions().GetByID(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, loaded.Status)
	assert.Equal(t, "Launch", loaded.Context["post_title"])
	require.NotNil(t, loaded.CurrentNodeID)
	assert.Equal(t, "node-1", *loaded.CurrentNodeID)
	assert.True(t, loaded.NextRunAt.Equal(execution.NextRunAt))
}

func TestLeadRepository_GetByEmail(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	require.NoError(t, fp.Leads().Save(t.Context(), &models.Lead{
		ID:     "lead-1",
		Email:  "ana@example.com",
		Name:   "Ana",
		Status: models.LeadStatusActive,
	}))

	lead, err := fp.Leads().GetByEmail(t.Context(), "  Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)

	_, err = fp.Leads().GetByEmail(t.Context(), "ghost@example.com")
	assert.True(t, persistence.IsLeadNotFound(err))
}

func TestTemplateRepository_RoundTrip(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	require.NoError(t, fp.Templates().Save(t.Context(), &models.MessageTemplate{
		ID:      "tpl-1",
		Title:   "New Post Alert",
		Content: "New article: {{post_title}}",
		Type:    "text",
	}))

	tpl, err := fp.Templates().GetByID(t.Context(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "New Post Alert", tpl.Title)

	_, err = fp.Templates().GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsTemplateNotFound(err))
}
