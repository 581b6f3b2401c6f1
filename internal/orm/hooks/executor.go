package hooks

import (
	"context"
	"fmt"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/orm/transaction"
	"go.uber.org/zap"
)

// Executor executes lifecycle hooks for entity types
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

// NewExecutor creates a new hook executor with an empty registry
func NewExecutor(logger *zap.Logger) *Executor {
	return NewExecutorWithRegistry(NewRegistry(), logger)
}

// NewExecutorWithRegistry creates a new hook executor with an existing registry
func NewExecutorWithRegistry(registry *Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: registry,
		logger:   logger,
	}
}

// Register registers a hook
func (e *Executor) Register(hookType schema.HookType, hook *Hook) {
	e.registry.Register(hookType, hook)
}

// ExecuteHooks runs every hook of hookType that applies to entity, in
// registration order, stopping at the first failure. Hooks see the
// transaction stored in ctx by the engine.
func (e *Executor) ExecuteHooks(
	ctx context.Context,
	entity *schema.EntityType,
	hookType schema.HookType,
	record map[string]interface{},
) error {
	hooks := e.registry.GetHooks(hookType, entity)
	if len(hooks) == 0 {
		return nil
	}

	hookCtx := NewContext(ctx, entity)
	if tx, ok := transaction.FromContext(ctx); ok {
		hookCtx = hookCtx.WithTransaction(tx)
	}

	for _, hook := range hooks {
		if err := hook.Fn(hookCtx, record); err != nil {
			e.logger.Debug("hook failed",
				zap.String("hook", hook.Name),
				zap.String("type", hookType.String()),
				zap.String("entity", entity.Name),
				zap.Error(err))
			return fmt.Errorf("hook %s failed: %w", hookType.String(), err)
		}
	}

	return nil
}

// HasHooks returns true if there are any hooks registered for the given type
func (e *Executor) HasHooks(hookType schema.HookType) bool {
	return e.registry.HasHooks(hookType)
}

// GetRegistry returns the hook registry
func (e *Executor) GetRegistry() *Registry {
	return e.registry
}
