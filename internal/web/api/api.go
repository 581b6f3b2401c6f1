// Package api exposes the entity engine over HTTP. Every route is generic:
// the entity type is a path segment and the engine does the rest.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/grimoire-wiki/grimoire/internal/orm/metadata"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/web/middleware"
	"github.com/grimoire-wiki/grimoire/internal/web/request"
	"github.com/grimoire-wiki/grimoire/internal/web/response"
	"go.uber.org/zap"
)

// Engine is the subset of crud.Engine the handlers call
type Engine interface {
	Registry() *schema.Registry
	Schema(ctx context.Context, typeName string) ([]metadata.Descriptor, error)
	Values(ctx context.Context, typeName string, id int64) ([]metadata.Value, error)
	List(ctx context.Context, typeName string) ([]schema.Ref, error)
	Get(ctx context.Context, typeName string, id int64) (crud.Record, error)
	FindByName(ctx context.Context, typeName string, name string) (crud.Record, error)
	Upsert(ctx context.Context, typeName string, id *int64, fields map[string]interface{}) (crud.Result, error)
	Patch(ctx context.Context, typeName string, id int64, fields map[string]interface{}) (crud.Result, error)
	Delete(ctx context.Context, typeName string, id int64) error
	Ancestors(ctx context.Context, typeName string, id int64) ([]schema.Ref, error)
	Path(ctx context.Context, typeName string, id int64) (string, error)
}

// Handler serves the entity API
type Handler struct {
	engine Engine
	parser *request.Parser
	logger *zap.Logger
}

// NewHandler creates a handler over engine
func NewHandler(engine Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: engine,
		parser: request.NewParser(),
		logger: logger,
	}
}

// Routes mounts the API under prefix+"/api" with the default middleware
// chain
func (h *Handler) Routes(prefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Default(h.logger).Then)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "no route for "+r.Method+" "+r.URL.Path)
	})

	r.Route(prefix+"/api", func(r chi.Router) {
		r.Get("/types", h.types)

		r.Route("/{type}", func(r chi.Router) {
			r.Get("/fields", h.fields)
			r.Get("/by-name/*", h.findByName)

			r.Get("/entries", h.list)
			r.Post("/entries", h.upsert)
			r.Get("/entries/{id}", h.get)
			r.Patch("/entries/{id}", h.patch)
			r.Delete("/entries/{id}", h.delete)
			r.Get("/entries/{id}/values", h.values)
			r.Get("/entries/{id}/path", h.path)
		})
	})

	return r
}

// render writes an engine failure, logging server faults with the request id
func (h *Handler) render(w http.ResponseWriter, r *http.Request, err error) {
	if !response.IsClientError(err) {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	response.RenderError(w, err)
}
