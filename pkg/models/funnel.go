// Package models defines the core domain models for funnel automation.
package models

import (
	"time"

	"github.com/google/uuid"
)

// NodeType identifies the behavior of a funnel step.
type NodeType string

const (
	NodeTypeEmail     NodeType = "EMAIL"
	NodeTypeWhatsApp  NodeType = "WHATSAPP"
	NodeTypeDelay     NodeType = "DELAY"
	NodeTypeCondition NodeType = "CONDITION"
	NodeTypeTagAction NodeType = "TAG_ACTION" // Declared for the editor palette; the engine treats it as a passthrough
)

// Position is editor canvas layout only. It never affects execution.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData carries the type-specific payload of a node. Only the fields
// matching the node type are consumed by the engine; the rest stay zero.
// Transient editor callbacks are deliberately not part of this struct —
// this is the serialization boundary.
type NodeData struct {
	// EMAIL
	Subject string `json:"subject,omitempty"`
	Content string `json:"content,omitempty"`

	// WHATSAPP
	WATemplateID    string `json:"wa_template_id,omitempty"`
	WATemplateTitle string `json:"wa_template_title,omitempty"`
	SendTime        string `json:"send_time,omitempty"` // "HH:mm" wall-clock gate

	// DELAY
	Hours int `json:"hours,omitempty"`

	// CONDITION
	ConditionTarget   string            `json:"condition_target,omitempty"`
	ConditionOperator ConditionOperator `json:"condition_operator,omitempty"`
	ConditionValue    string            `json:"condition_value,omitempty"`

	CustomTitle string `json:"custom_title,omitempty"`
}

// FunnelNode is one step in a funnel graph. Edges are embedded: NextNodeID
// for linear flow, TrueNodeID/FalseNodeID for CONDITION branches.
type FunnelNode struct {
	ID          string   `json:"id"             validate:"required"`
	Type        NodeType `json:"type"           validate:"required"`
	Position    Position `json:"position"`
	Data        NodeData `json:"data"`
	NextNodeID  *string  `json:"next_node_id,omitempty"`
	TrueNodeID  *string  `json:"true_node_id,omitempty"`
	FalseNodeID *string  `json:"false_node_id,omitempty"`
}

// Funnel is a named workflow definition triggered by a named event.
type Funnel struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"          validate:"required,min=3"`
	Trigger     string        `json:"trigger"`
	IsActive    bool          `json:"is_active"`
	Nodes       []*FunnelNode `json:"nodes"`
	StartNodeID string        `json:"start_node_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewFunnel creates an empty active funnel ready for the editor.
func NewFunnel(name, trigger string) *Funnel {
	return &Funnel{
		ID:       uuid.New().String(),
		Name:     name,
		Trigger:  trigger,
		IsActive: true,
		Nodes:    []*FunnelNode{},
	}
}

// NodeByID returns the node with the given id, or nil when the reference
// dangles. The engine treats a dangling reference as terminal.
func (f *Funnel) NodeByID(id string) *FunnelNode {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Runnable reports whether the dispatcher may start executions for this
// funnel: it must have at least one node and a valid entry point.
func (f *Funnel) Runnable() bool {
	return len(f.Nodes) > 0 && f.StartNodeID != ""
}
