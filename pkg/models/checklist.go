package models

import (
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
)

// ChecklistItemStatus is the item lifecycle state
type ChecklistItemStatus string

const (
	ChecklistPending       ChecklistItemStatus = "pending"
	ChecklistInProgress    ChecklistItemStatus = "in_progress"
	ChecklistCompleted     ChecklistItemStatus = "completed"
	ChecklistSkipped       ChecklistItemStatus = "skipped"
	ChecklistNotApplicable ChecklistItemStatus = "not_applicable"
)

// IsTerminal reports whether the item no longer blocks review completion
func (s ChecklistItemStatus) IsTerminal() bool {
	switch s {
	case ChecklistCompleted, ChecklistSkipped, ChecklistNotApplicable:
		return true
	}
	return false
}

// ChecklistItem is one mandatory verification step inside a review
type ChecklistItem struct {
	ID           string              `json:"id" db:"id"`
	TenantID     string              `json:"tenant_id" db:"tenant_id"`
	ReviewID     string              `json:"review_id" db:"review_id"`
	Category     string              `json:"category" db:"category"`
	Title        string              `json:"title" db:"title"`
	DisplayOrder int                 `json:"display_order" db:"display_order"`
	Status       ChecklistItemStatus `json:"status" db:"status"`

	ResultSummary     *string `json:"result_summary,omitempty" db:"result_summary"`
	ActionRequired    bool    `json:"action_required" db:"action_required"`
	ActionDescription *string `json:"action_description,omitempty" db:"action_description"`

	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy *string    `json:"completed_by,omitempty" db:"completed_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateChecklistItemStatusRequest advances an item through its lifecycle.
// completed requires result_summary; action_required requires action_description.
type UpdateChecklistItemStatusRequest struct {
	Status            ChecklistItemStatus `json:"status" validate:"required,oneof=in_progress completed skipped not_applicable"`
	ResultSummary     string              `json:"result_summary,omitempty"`
	ActionRequired    bool                `json:"action_required"`
	ActionDescription string              `json:"action_description,omitempty"`
	CompletedBy       string              `json:"completed_by,omitempty"`
}

// TemplateItem is one item definition inside a checklist template
type TemplateItem struct {
	Category     string `json:"category"`
	Title        string `json:"title"`
	DisplayOrder int    `json:"display_order"`
}

// TemplateCondition gates a template on a profile attribute, e.g.
// {field: "is_minor", operator: "eq", value: true}
type TemplateCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// ChecklistTemplate defines the items instantiated into a review's checklist.
// The default template always applies; conditional templates add their items
// when every condition matches the profile.
type ChecklistTemplate struct {
	ID          string                              `json:"id" db:"id"`
	TenantID    string                              `json:"tenant_id" db:"tenant_id"`
	Name        string                              `json:"name" db:"name"`
	Description *string                             `json:"description,omitempty" db:"description"`
	IsDefault   bool                                `json:"is_default" db:"is_default"`
	IsActive    bool                                `json:"is_active" db:"is_active"`
	Conditions  database.JSONB[[]TemplateCondition] `json:"conditions" db:"conditions"`
	Items       database.JSONB[[]TemplateItem]      `json:"items" db:"items"`
	CreatedAt   time.Time                           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time                           `json:"updated_at" db:"updated_at"`
}

// CreateChecklistTemplateRequest creates a checklist template
type CreateChecklistTemplateRequest struct {
	Name        string              `json:"name" validate:"required"`
	Description string              `json:"description,omitempty"`
	IsDefault   bool                `json:"is_default"`
	Conditions  []TemplateCondition `json:"conditions,omitempty"`
	Items       []TemplateItem      `json:"items" validate:"required,min=1,dive"`
}

// UpdateChecklistTemplateRequest updates a checklist template
type UpdateChecklistTemplateRequest struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	IsDefault   *bool               `json:"is_default,omitempty"`
	IsActive    *bool               `json:"is_active,omitempty"`
	Conditions  []TemplateCondition `json:"conditions,omitempty"`
	Items       []TemplateItem      `json:"items,omitempty"`
}

// ChecklistResponse returns a review's checklist
type ChecklistResponse struct {
	ReviewID string          `json:"review_id"`
	Items    []ChecklistItem `json:"items"`
}
