package hooks

import (
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"go.uber.org/zap"
)

// NewAuditHook returns an after-save hook that records every
// write at Info level
func NewAuditHook(logger *zap.Logger) *Hook {
	return &Hook{
		Name: "audit",
		Fn: func(ctx *Context, record map[string]interface{}) error {
			fields := []zap.Field{zap.String("entity", ctx.Entity().Name)}
			if id, ok := record[schema.FieldID]; ok {
				fields = append(fields, zap.Any("id", id))
			}
			if s, ok := record[schema.FieldSlug].(string); ok {
				fields = append(fields, zap.String("slug", s))
			}
			logger.Info("entity written", fields...)
			return nil
		},
	}
}
