package game

import (
	"fmt"
	"sort"
	"sync"

	"karma-tycoon/internal/model"
)

// Registry manages action handler registration and lookup.
type Registry struct {
	actions map[model.ActionType]Action
	mu      sync.RWMutex
}

// NewRegistry creates a new action registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[model.ActionType]Action),
	}
}

// Register adds a handler to the registry.
// If a handler with the same type already exists, it will be replaced.
func (r *Registry) Register(a Action) error {
	if a == nil {
		return fmt.Errorf("cannot register nil action")
	}
	if a.Type() == "" {
		return fmt.Errorf("action type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.Type()] = a
	return nil
}

// Get retrieves a handler by its type.
func (r *Registry) Get(t model.ActionType) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[t]
	return a, ok
}

// List returns all registered handlers ordered by type.
func (r *Registry) List() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].Type() < actions[j].Type() })
	return actions
}

// Types returns all registered action types.
func (r *Registry) Types() []model.ActionType {
	list := r.List()
	types := make([]model.ActionType, 0, len(list))
	for _, a := range list {
		types = append(types, a.Type())
	}
	return types
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// Unregister removes a handler from the registry by its type.
// Returns true if the handler was found and removed, false otherwise.
func (r *Registry) Unregister(t model.ActionType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actions[t]; ok {
		delete(r.actions, t)
		return true
	}
	return false
}
