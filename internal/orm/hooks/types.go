package hooks

import (
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// HookFunc represents a hook function that can be executed
// It receives the hook context and the row about to be (or just) written
type HookFunc func(ctx *Context, record map[string]interface{}) error

// Hook represents a registered lifecycle hook
type Hook struct {
	Type schema.HookType
	Name string
	// Entity restricts the hook to one type token; empty matches every type
	Entity string
	Fn     HookFunc
}

// Applies reports whether the hook runs for the given entity type
func (h *Hook) Applies(entity *schema.EntityType) bool {
	return h.Entity == "" || (entity != nil && h.Entity == entity.Name)
}

// Registry manages all registered hooks, in registration order
type Registry struct {
	hooks map[schema.HookType][]*Hook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[schema.HookType][]*Hook),
	}
}

// Register adds a hook to the registry
func (r *Registry) Register(hookType schema.HookType, hook *Hook) {
	hook.Type = hookType
	r.hooks[hookType] = append(r.hooks[hookType], hook)
}

// GetHooks returns the hooks of the given type that apply to entity
func (r *Registry) GetHooks(hookType schema.HookType, entity *schema.EntityType) []*Hook {
	var out []*Hook
	for _, h := range r.hooks[hookType] {
		if h.Applies(entity) {
			out = append(out, h)
		}
	}
	return out
}

// HasHooks returns true if there are any hooks registered for the given type
func (r *Registry) HasHooks(hookType schema.HookType) bool {
	return len(r.hooks[hookType]) > 0
}
