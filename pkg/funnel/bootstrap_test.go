package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/persistence/memory"
)

func TestEnsureDefaultPostFunnel(t *testing.T) {
	store := memory.NewPersistence()

	funnel, err := EnsureDefaultPostFunnel(t.Context(), store, testLogger())
	require.NoError(t, err)
	require.NotNil(t, funnel)

	assert.Equal(t, DefaultPostTrigger, funnel.Trigger)
	assert.True(t, funnel.IsActive)
	require.Len(t, funnel.Nodes, 3)
	require.NoError(t, ValidateFunnel(funnel))

	start := funnel.NodeByID(funnel.StartNodeID)
	require.NotNil(t, start)
	assert.Equal(t, models.NodeTypeWhatsApp, start.Type)
	assert.NotEmpty(t, start.Data.WATemplateID)

	require.NotNil(t, start.NextNodeID)
	delay := funnel.NodeByID(*start.NextNodeID)
	require.NotNil(t, delay)
	assert.Equal(t, models.NodeTypeDelay, delay.Type)
	assert.Equal(t, 24, delay.Data.Hours)

	require.NotNil(t, delay.NextNodeID)
	email := funnel.NodeByID(*delay.NextNodeID)
	require.NotNil(t, email)
	assert.Equal(t, models.NodeTypeEmail, email.Type)
	assert.Nil(t, email.NextNodeID)

	// The WhatsApp template must exist and reference the post context.
	tpl, err := store.Templates().GetByID(t.Context(), start.Data.WATemplateID)
	require.NoError(t, err)
	assert.Contains(t, tpl.Content, "{{post_title}}")
	assert.Contains(t, tpl.Content, "{{post_url}}")
}

func TestEnsureDefaultPostFunnelIsIdempotent(t *testing.T) {
	store := memory.NewPersistence()

	first, err := EnsureDefaultPostFunnel(t.Context(), store, testLogger())
	require.NoError(t, err)

	second, err := EnsureDefaultPostFunnel(t.Context(), store, testLogger())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	funnels, err := store.Funnels().GetAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, funnels, 1)
}

func TestEnsureDefaultPostFunnelRespectsDeactivation(t *testing.T) {
	store := memory.NewPersistence()

	first, err := EnsureDefaultPostFunnel(t.Context(), store, testLogger())
	require.NoError(t, err)

	first.IsActive = false
	require.NoError(t, store.Funnels().Save(t.Context(), first))

	again, err := EnsureDefaultPostFunnel(t.Context(), store, testLogger())
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.False(t, again.IsActive)
}
