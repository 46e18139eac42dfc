package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
)

func TestFunnelServiceCreate(t *testing.T) {
	store := memory.NewPersistence()
	svc := NewFunnelService(store, testLogger())

	f, err := svc.Create(t.Context(), "Boas-vindas", "lead_subscribed")
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.True(t, f.IsActive)
	assert.Empty(t, f.Nodes)

	stored, err := svc.Get(t.Context(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boas-vindas", stored.Name)
}

func TestFunnelServiceCreateRejectsShortName(t *testing.T) {
	svc := NewFunnelService(memory.NewPersistence(), testLogger())

	_, err := svc.Create(t.Context(), "ab", "lead_subscribed")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestFunnelServiceSaveValidatesGraph(t *testing.T) {
	store := memory.NewPersistence()
	svc := NewFunnelService(store, testLogger())

	f, err := svc.Create(t.Context(), "Quebrado", "lead_subscribed")
	require.NoError(t, err)

	next := "missing"
	f.StartNodeID = "n-1"
	f.Nodes = []*models.FunnelNode{
		{ID: "n-1", Type: models.NodeTypeEmail, NextNodeID: &next},
	}

	err = svc.Save(t.Context(), f)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	// The broken graph never reached the store.
	stored, err := svc.Get(t.Context(), f.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Nodes)
}

func TestFunnelServiceSaveOverwrites(t *testing.T) {
	store := memory.NewPersistence()
	svc := NewFunnelService(store, testLogger())

	f, err := svc.Create(t.Context(), "Evoluindo", "lead_subscribed")
	require.NoError(t, err)

	f.StartNodeID = "n-1"
	f.Nodes = []*models.FunnelNode{
		{ID: "n-1", Type: models.NodeTypeEmail, Data: models.NodeData{Subject: "Oi", Content: "x"}},
	}
	require.NoError(t, svc.Save(t.Context(), f))

	f.Nodes = nil
	f.StartNodeID = ""
	require.NoError(t, svc.Save(t.Context(), f))

	stored, err := svc.Get(t.Context(), f.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Nodes)
}

func TestFunnelServiceDelete(t *testing.T) {
	store := memory.NewPersistence()
	svc := NewFunnelService(store, testLogger())

	f, err := svc.Create(t.Context(), "Descartável", "lead_subscribed")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(t.Context(), f.ID))

	_, err = svc.Get(t.Context(), f.ID)
	assert.True(t, persistence.IsFunnelNotFound(err))
}

func TestTemplateService(t *testing.T) {
	store := memory.NewPersistence()
	svc := NewTemplateService(store)

	tpl := &models.MessageTemplate{ID: "tpl-1", Title: "Aviso", Content: "Olá {{name}}", Type: "text"}
	require.NoError(t, svc.Save(t.Context(), tpl))

	stored, err := svc.Get(t.Context(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Aviso", stored.Title)

	err = svc.Save(t.Context(), &models.MessageTemplate{ID: "tpl-2", Title: "", Content: "x"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	all, err := svc.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.Delete(t.Context(), "tpl-1"))
}
