// Package registry maps action-type tags to capability-polymorphic handlers.
// Every handler supports two execution modes: rehearsal, which proves the
// handler would have run correctly without any externally visible side
// effect, and production, which performs the real effect.
package registry

import (
	"context"
	"fmt"
	"sort"
)

// Mode selects how a handler executes
type Mode string

const (
	ModeRehearsal  Mode = "REHEARSAL"
	ModeProduction Mode = "PRODUCTION"
)

// Outcome is the result of one dispatch
type Outcome struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ArtifactRef    string `json:"artifact_ref,omitempty"`
	ArtifactDigest string `json:"artifact_digest,omitempty"`
	ErrorDetail    string `json:"error_detail,omitempty"`
}

// ActionHandler executes one action type
type ActionHandler interface {
	ActionType() string
	Execute(ctx context.Context, payload map[string]interface{}, mode Mode) (*Outcome, error)
}

// Registry resolves action-type tags to handlers. It is populated once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	handlers map[string]ActionHandler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ActionHandler)}
}

// Register binds a handler to its action type. Double registration is a
// programmer error and panics at startup.
func (r *Registry) Register(h ActionHandler) {
	tag := h.ActionType()
	if _, exists := r.handlers[tag]; exists {
		panic(fmt.Sprintf("handler already registered for action type %q", tag))
	}
	r.handlers[tag] = h
}

// Has reports whether a handler is bound to the tag
func (r *Registry) Has(actionType string) bool {
	_, ok := r.handlers[actionType]
	return ok
}

// ActionTypes returns the registered tags, sorted
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

// Dispatch resolves the tag and executes the handler in the given mode.
// An unregistered tag fails closed with ErrUnregisteredAction. Retrying
// cannot fix a missing handler, so callers route it straight to dead-letter.
func (r *Registry) Dispatch(ctx context.Context, actionType string, payload map[string]interface{}, mode Mode) (*Outcome, error) {
	h, ok := r.handlers[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q: %w", actionType, ErrUnregisteredAction)
	}
	return h.Execute(ctx, payload, mode)
}
