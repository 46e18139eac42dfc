package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/models"
)

func validLinearFunnel() *models.Funnel {
	f := models.NewFunnel("Valid", "lead_subscribed")
	f.StartNodeID = "n-wa"
	f.Nodes = []*models.FunnelNode{
		{
			ID:         "n-wa",
			Type:       models.NodeTypeWhatsApp,
			Data:       models.NodeData{WATemplateID: "tpl-1", SendTime: "09:30"},
			NextNodeID: strPtr("n-delay"),
		},
		{
			ID:         "n-delay",
			Type:       models.NodeTypeDelay,
			Data:       models.NodeData{Hours: 24},
			NextNodeID: strPtr("n-email"),
		},
		{
			ID:   "n-email",
			Type: models.NodeTypeEmail,
			Data: models.NodeData{Subject: "Oi", Content: "tudo bem?"},
		},
	}

	return f
}

func TestValidateFunnelAcceptsValidGraph(t *testing.T) {
	require.NoError(t, ValidateFunnel(validLinearFunnel()))
}

func TestValidateFunnelAcceptsDraftWithoutStart(t *testing.T) {
	f := validLinearFunnel()
	f.StartNodeID = ""

	require.NoError(t, ValidateFunnel(f))
	assert.False(t, f.Runnable())
}

func TestValidateFunnelRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *models.Funnel)
		message string
	}{
		{
			name:    "missing start node",
			mutate:  func(f *models.Funnel) { f.StartNodeID = "nope" },
			message: "start node",
		},
		{
			name: "dangling next reference",
			mutate: func(f *models.Funnel) {
				f.Nodes[1].NextNodeID = strPtr("nope")
			},
			message: "references missing node",
		},
		{
			name: "duplicate node id",
			mutate: func(f *models.Funnel) {
				f.Nodes = append(f.Nodes, &models.FunnelNode{ID: "n-wa", Type: models.NodeTypeEmail})
			},
			message: "duplicate node id",
		},
		{
			name: "empty node id",
			mutate: func(f *models.Funnel) {
				f.Nodes = append(f.Nodes, &models.FunnelNode{Type: models.NodeTypeEmail})
			},
			message: "empty id",
		},
		{
			name: "cycle",
			mutate: func(f *models.Funnel) {
				f.Nodes[2].NextNodeID = strPtr("n-wa")
			},
			message: "cycle detected",
		},
		{
			name: "self loop",
			mutate: func(f *models.Funnel) {
				f.Nodes[2].NextNodeID = strPtr("n-email")
			},
			message: "cycle detected",
		},
		{
			name: "malformed send time",
			mutate: func(f *models.Funnel) {
				f.Nodes[0].Data.SendTime = "25:99"
			},
			message: "send_time",
		},
		{
			name: "negative delay hours",
			mutate: func(f *models.Funnel) {
				f.Nodes[1].Data.Hours = -3
			},
			message: "hours",
		},
		{
			name: "unknown condition operator",
			mutate: func(f *models.Funnel) {
				f.Nodes = append(f.Nodes, &models.FunnelNode{
					ID:   "n-cond",
					Type: models.NodeTypeCondition,
					Data: models.NodeData{ConditionOperator: "equals"},
				})
			},
			message: "condition_operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validLinearFunnel()
			tt.mutate(f)

			err := ValidateFunnel(f)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidFunnel)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateFunnelConditionBranchCycle(t *testing.T) {
	f := models.NewFunnel("BranchCycle", "lead_subscribed")
	f.StartNodeID = "n-cond"
	f.Nodes = []*models.FunnelNode{
		{
			ID:          "n-cond",
			Type:        models.NodeTypeCondition,
			Data:        models.NodeData{ConditionOperator: models.OperatorContains, ConditionValue: "vip"},
			TrueNodeID:  strPtr("n-email"),
			FalseNodeID: strPtr("n-cond"),
		},
		{
			ID:   "n-email",
			Type: models.NodeTypeEmail,
			Data: models.NodeData{Subject: "Oi", Content: "x"},
		},
	}

	err := ValidateFunnel(f)
	require.ErrorIs(t, err, ErrInvalidFunnel)
	assert.Contains(t, err.Error(), "cycle detected")
}
