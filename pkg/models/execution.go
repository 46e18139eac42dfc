package models

import "time"

// ExecutionStatus represents the lifecycle state of a funnel execution.
type ExecutionStatus string

const (
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed" // Retries exhausted
)

// HistoryEntry records one executed node for the audit trail.
type HistoryEntry struct {
	NodeID   string    `json:"node_id"`
	NodeType NodeType  `json:"node_type"`
	Outcome  string    `json:"outcome"`
	At       time.Time `json:"at"`
}

// FunnelExecution is one lead's run through one funnel — the unit of
// durable, resumable state. It is mutated in place by the sweep.
type FunnelExecution struct {
	ID            string            `json:"id"`
	FunnelID      string            `json:"funnel_id"  validate:"required"`
	LeadID        string            `json:"lead_id"    validate:"required"`
	CurrentNodeID *string           `json:"current_node_id,omitempty"` // nil once the graph end is reached
	Status        ExecutionStatus   `json:"status"`
	NextRunAt     time.Time         `json:"next_run_at"` // Not eligible to advance before this instant
	Attempts      int               `json:"attempts,omitempty"`
	History       []HistoryEntry    `json:"history,omitempty"`
	Context       map[string]string `json:"context,omitempty"` // Captured at trigger time, used for interpolation
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Terminal reports whether the execution can never advance again.
func (e *FunnelExecution) Terminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// Due reports whether the execution is eligible to advance at the given instant.
func (e *FunnelExecution) Due(now time.Time) bool {
	return !e.Terminal() && !e.NextRunAt.After(now)
}

// RecordStep appends an audit entry for an executed node.
func (e *FunnelExecution) RecordStep(node *FunnelNode, outcome string, at time.Time) {
	e.History = append(e.History, HistoryEntry{
		NodeID:   node.ID,
		NodeType: node.Type,
		Outcome:  outcome,
		At:       at,
	})
}
