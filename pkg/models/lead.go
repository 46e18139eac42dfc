package models

import "time"

// LeadStatus gates whether broadcast triggers reach a lead.
type LeadStatus string

const (
	LeadStatusActive       LeadStatus = "active"
	LeadStatusUnsubscribed LeadStatus = "unsubscribed"
)

// PipelineStage is the CRM kanban column a lead sits in.
type PipelineStage string

const (
	StageNew       PipelineStage = "new"
	StageContacted PipelineStage = "contacted"
	StageQualified PipelineStage = "qualified"
	StageConverted PipelineStage = "converted"
	StageLost      PipelineStage = "lost"
)

// Lead is a subscriber record. The engine reads it for interpolation and
// condition evaluation; mutations happen through the lead service.
type Lead struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"  validate:"required,email"`
	Name          string        `json:"name,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	Source        string        `json:"source,omitempty"`
	Status        LeadStatus    `json:"status"`
	PipelineStage PipelineStage `json:"pipeline_stage"`
	Tags          []string      `json:"tags"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// HasTag reports whether the lead carries the given tag. A nil tag slice
// never contains anything.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}

	return false
}
