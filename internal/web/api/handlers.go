package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/grimoire-wiki/grimoire/internal/orm/coerce"
	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/grimoire-wiki/grimoire/internal/web/request"
	"github.com/grimoire-wiki/grimoire/internal/web/response"
)

// pathResponse is the body of GET .../entries/{id}/path
type pathResponse struct {
	Path      string       `json:"path"`
	Ancestors []schema.Ref `json:"ancestors"`
}

func (h *Handler) types(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, h.engine.Registry().Names())
}

func (h *Handler) fields(w http.ResponseWriter, r *http.Request) {
	descriptors, err := h.engine.Schema(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.render(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, descriptors)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	refs, err := h.engine.List(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.render(w, r, err)
		return
	}
	if refs == nil {
		refs = []schema.Ref{}
	}
	response.RenderJSON(w, http.StatusOK, refs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	record, err := h.engine.Get(r.Context(), chi.URLParam(r, "type"), id)
	if err != nil {
		h.render(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, record)
}

func (h *Handler) values(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	values, err := h.engine.Values(r.Context(), chi.URLParam(r, "type"), id)
	if err != nil {
		h.render(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, values)
}

func (h *Handler) path(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	typeName := chi.URLParam(r, "type")
	ancestors, err := h.engine.Ancestors(r.Context(), typeName, id)
	if err != nil {
		h.render(w, r, err)
		return
	}
	path, err := h.engine.Path(r.Context(), typeName, id)
	if err != nil {
		h.render(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, pathResponse{Path: path, Ancestors: ancestors})
}

func (h *Handler) findByName(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		response.RenderBadRequest(w, "malformed_value", "name is not a valid path segment")
		return
	}
	record, err := h.engine.FindByName(r.Context(), chi.URLParam(r, "type"), name)
	if err != nil {
		h.render(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, record)
}

// upsert creates an instance, or updates one when the body carries an id
func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	fields, ok := h.body(w, r)
	if !ok {
		return
	}

	var id *int64
	if raw, present := fields[schema.FieldID]; present {
		delete(fields, schema.FieldID)
		parsed, err := coerce.SingleID(raw)
		if err != nil {
			h.render(w, r, &crud.FieldError{Kind: crud.ErrMalformedValue, Field: schema.FieldID, Message: err.Error()})
			return
		}
		id = parsed
	}

	result, err := h.engine.Upsert(r.Context(), chi.URLParam(r, "type"), id, fields)
	if err != nil {
		h.render(w, r, err)
		return
	}

	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("%s/%d", r.URL.Path, result.ID))
	}
	response.RenderJSON(w, status, result)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	fields, ok := h.body(w, r)
	if !ok {
		return
	}
	result, err := h.engine.Patch(r.Context(), chi.URLParam(r, "type"), id, fields)
	if err != nil {
		h.render(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, result)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.engine.Delete(r.Context(), chi.URLParam(r, "type"), id); err != nil {
		h.render(w, r, err)
		return
	}
	response.RenderNoContent(w)
}

// id reads the {id} segment; a non-integer id names no instance
func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := request.PathInt64(r, "id")
	if err != nil {
		response.RenderNotFound(w, err.Error())
		return 0, false
	}
	return id, true
}

func (h *Handler) body(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	fields, err := h.parser.Fields(w, r)
	if err != nil {
		response.RenderBadRequest(w, "malformed_body", err.Error())
		return nil, false
	}
	return fields, true
}
