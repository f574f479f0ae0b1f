package model

import (
	"time"

	storemodel "conductor/pkg/store/sqlstore/model"
)

// EnqueueRequest is the external enqueue interface. The idempotency key must
// be derived from the logical task identity, not a random value, so that
// re-submitting the same logical task is a no-op.
type EnqueueRequest struct {
	IdempotencyKey string                 `json:"idempotency_key" binding:"required"`
	ActionType     string                 `json:"action_type" binding:"required"`
	Payload        map[string]interface{} `json:"payload"`
}

// EnqueueResponse reports the resulting work item
type EnqueueResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Created bool   `json:"created"`
}

// ActionResponse is the work item status view
type ActionResponse struct {
	ID         string     `json:"id"`
	ActionType string     `json:"action_type"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	NotBefore  time.Time  `json:"not_before"`
	LastError  string     `json:"last_error,omitempty"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FromAction converts a store row to the API view
func FromAction(a *storemodel.Action) *ActionResponse {
	return &ActionResponse{
		ID:         a.ActionID,
		ActionType: a.ActionType,
		Status:     a.Status,
		Attempts:   a.Attempts,
		NotBefore:  a.NotBefore,
		LastError:  a.LastError,
		ClaimedAt:  a.ClaimedAt,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// ControlUpdateRequest is a partial update of the operator control flags;
// nil fields are left untouched.
type ControlUpdateRequest struct {
	Paused        *bool `json:"paused"`
	Killed        *bool `json:"killed"`
	RehearsalMode *bool `json:"rehearsal_mode"`
}
