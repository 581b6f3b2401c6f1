// Package crud is the generic entity engine: one code path that validates,
// coerces, persists and reads every registered entity type, addressed only
// by its type token and an optional id.
package crud

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/hooks"
	"github.com/grimoire-wiki/grimoire/internal/orm/metadata"
	"github.com/grimoire-wiki/grimoire/internal/orm/relationships"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/orm/transaction"
	"go.uber.org/zap"
)

// HookExecutor is an interface for executing lifecycle hooks
type HookExecutor interface {
	ExecuteHooks(ctx context.Context, entity *schema.EntityType, hookType schema.HookType, record map[string]interface{}) error
}

// TransactionManager is an interface for managing transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// UnresolvedPolicy decides what happens to relationship ids that do not
// match an existing target
type UnresolvedPolicy int

const (
	// DropUnresolved silently removes unknown ids from the written edge set
	DropUnresolved UnresolvedPolicy = iota
	// RejectUnresolved fails the operation with ErrMalformedIDs
	RejectUnresolved
)

// String returns the configuration spelling of the policy
func (p UnresolvedPolicy) String() string {
	if p == RejectUnresolved {
		return "reject"
	}
	return "drop"
}

// ParseUnresolvedPolicy parses "drop" or "reject"
func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return DropUnresolved, nil
	case "reject":
		return RejectUnresolved, nil
	default:
		return DropUnresolved, fmt.Errorf("unknown unresolved id policy %q (want drop or reject)", s)
	}
}

// Engine runs every entity operation. It holds no mutable state of its own;
// each call runs against the store in at most one transaction.
type Engine struct {
	registry   *schema.Registry
	db         *sql.DB
	dialect    dialect.Dialect
	txManager  TransactionManager
	hooks      HookExecutor
	extractor  *metadata.Extractor
	loader     *relationships.Loader
	writer     *relationships.Writer
	logger     *zap.Logger
	unresolved UnresolvedPolicy
	now        func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHooks sets the lifecycle hook executor
func WithHooks(h HookExecutor) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithTransactionManager replaces the default transaction manager
func WithTransactionManager(m TransactionManager) Option {
	return func(e *Engine) { e.txManager = m }
}

// WithUnresolvedPolicy sets how unknown relationship ids are handled
func WithUnresolvedPolicy(p UnresolvedPolicy) Option {
	return func(e *Engine) { e.unresolved = p }
}

// WithClock sets the clock used for audit timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over registry backed by db
func NewEngine(registry *schema.Registry, db *sql.DB, d dialect.Dialect, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		db:        db,
		dialect:   d,
		txManager: transaction.NewManager(db),
		hooks:     hooks.NewExecutor(nil),
		extractor: metadata.NewExtractor(registry, d),
		loader:    relationships.NewLoader(registry, d),
		writer:    relationships.NewWriter(registry, d),
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the schema registry
func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// DB returns the database connection
func (e *Engine) DB() *sql.DB {
	return e.db
}

// ResolveType looks up an entity type by token. Unknown tokens yield
// ErrUnknownType.
func (e *Engine) ResolveType(name string) (*schema.EntityType, error) {
	entity, ok := e.registry.Resolve(name)
	if !ok {
		return nil, unknownType(name)
	}
	return entity, nil
}

// Schema returns the field descriptors of a type with live choice lists
func (e *Engine) Schema(ctx context.Context, typeName string) ([]metadata.Descriptor, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return nil, err
	}
	descriptors, err := e.extractor.Describe(ctx, e.db, entity)
	if err != nil {
		return nil, e.internal(entity, "describe", err)
	}
	return descriptors, nil
}

// Values returns the raw stored values of one instance
func (e *Engine) Values(ctx context.Context, typeName string, id int64) ([]metadata.Value, error) {
	entity, err := e.ResolveType(typeName)
	if err != nil {
		return nil, err
	}
	values, err := e.extractor.Values(ctx, e.db, entity, id)
	if err != nil {
		if IsNotFound(ConvertDBError(err)) {
			return nil, notFound(entity.Name, id)
		}
		return nil, e.internal(entity, "values", err)
	}
	return values, nil
}

// internal logs err and converts it to a categorized error
func (e *Engine) internal(entity *schema.EntityType, op string, err error) error {
	converted := ConvertDBError(err)
	if Code(converted) == "internal" {
		e.logger.Error("entity operation failed",
			zap.String("op", op),
			zap.String("entity", entity.Name),
			zap.Error(err))
	}
	return converted
}
