// Package events defines the event types flowing between the API, the lead
// service and the funnel runner.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the bus topic carrying all leadflow events.
const Topic = "leadflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Trigger events consumed by the dispatcher.
	LeadSubscribedEvent EventType = "lead.subscribed"
	PostPublishedEvent  EventType = "post.published"
	LeadTagAddedEvent   EventType = "lead.tag_added"

	// Execution lifecycle events published by the engine.
	ExecutionCompletedEvent EventType = "funnel.execution.completed"
	ExecutionFailedEvent    EventType = "funnel.execution.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// LeadSubscribed fires when a lead subscribes (or resubscribes). The runner
// maps it to the "lead_subscribed" funnel trigger.
type LeadSubscribed struct {
	BaseEvent

	LeadID string `json:"lead_id"`
}

func (e LeadSubscribed) GetType() EventType {
	return LeadSubscribedEvent
}

// PostPublished fires when a blog post goes live. The runner maps it to the
// broadcast "new_post_published" trigger with the post fields as execution
// context.
type PostPublished struct {
	BaseEvent

	PostTitle string `json:"post_title"`
	PostURL   string `json:"post_url"`
}

func (e PostPublished) GetType() EventType {
	return PostPublishedEvent
}

// LeadTagAdded fires when a tag lands on a lead. The runner maps it to the
// "tag_added:<tag>" trigger.
type LeadTagAdded struct {
	BaseEvent

	LeadID string `json:"lead_id"`
	Tag    string `json:"tag"`
}

func (e LeadTagAdded) GetType() EventType {
	return LeadTagAddedEvent
}

// ExecutionCompleted fires when an execution reaches the end of its graph
// or is abandoned because its funnel or lead disappeared.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	FunnelID    string `json:"funnel_id"`
	LeadID      string `json:"lead_id"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed fires when an execution exhausts its retries.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	FunnelID    string `json:"funnel_id"`
	LeadID      string `json:"lead_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}
