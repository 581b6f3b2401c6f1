package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grimoire-wiki/grimoire/internal/catalog"
	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/grimoire-wiki/grimoire/internal/orm/dialect"
	"github.com/grimoire-wiki/grimoire/internal/orm/migrate"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	registry, err := catalog.NewRegistry()
	require.NoError(t, err)
	m, err := migrate.NewGenerator(dialect.SQLite).GenerateMigration(registry)
	require.NoError(t, err)
	_, err = migrate.NewRunner(db, dialect.SQLite, nil).MigrateUp(context.Background(), []*migrate.Migration{m})
	require.NoError(t, err)

	engine := crud.NewEngine(registry, db, dialect.SQLite)
	srv := httptest.NewServer(NewHandler(engine, nil).Routes(""))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf strings.Builder
	_, err = io.Copy(&buf, resp.Body)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func decodeObject(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestAPI_Types(t *testing.T) {
	srv := setupServer(t)
	resp, body := do(t, srv, http.MethodGet, "/api/types", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["player","pathway","item","spell","sequence","page","npc","quest","monster","session","user","comment"]`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAPI_Lifecycle(t *testing.T) {
	srv := setupServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/quest/entries", `{"title":"Into the Mire"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"id":1,"slug":"into-the-mire"}`, string(body))
	assert.Equal(t, "/api/quest/entries/1", resp.Header.Get("Location"))

	resp, body = do(t, srv, http.MethodPost, "/api/npc/entries", `{"name":"Mira","level":"4","quests":[1]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, srv, http.MethodGet, "/api/npc/entries/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := decodeObject(t, body)
	assert.Equal(t, "Mira", record["name"])
	assert.Equal(t, float64(4), record["level"])
	assert.Equal(t, []interface{}{map[string]interface{}{"id": float64(1), "label": "Into the Mire"}}, record["quests"])
	assert.True(t, strings.HasPrefix(string(body), `{"name":"Mira","slug":"mira"`), "keys keep declaration order: %s", body)

	resp, body = do(t, srv, http.MethodPatch, "/api/npc/entries/1", `{"role":"Guide"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, srv, http.MethodPost, "/api/npc/entries", `{"id":1,"quests":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, srv, http.MethodGet, "/api/npc/by-name/MIRA", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record = decodeObject(t, body)
	assert.Equal(t, "Guide", record["role"])
	assert.Equal(t, []interface{}{}, record["quests"])

	resp, body = do(t, srv, http.MethodGet, "/api/npc/entries", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1,"label":"Mira"}]`, string(body))

	resp, _ = do(t, srv, http.MethodDelete, "/api/npc/entries/1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/npc/entries", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPI_Fields(t *testing.T) {
	srv := setupServer(t)
	do(t, srv, http.MethodPost, "/api/quest/entries", `{"title":"Into the Mire"}`)

	resp, body := do(t, srv, http.MethodGet, "/api/item/fields", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var descriptors []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &descriptors))
	byName := map[string]map[string]interface{}{}
	for _, d := range descriptors {
		byName[d["name"].(string)] = d
	}

	assert.Equal(t, "enum", byName["rarity"]["type"])
	assert.Equal(t, []interface{}{"common", "uncommon", "rare", "epic", "legendary"}, byName["rarity"]["choices"])
	assert.Equal(t, "foreignkey", byName["found_in_quest"]["type"])
	assert.Equal(t, "Quest", byName["found_in_quest"]["ref_model"])
	assert.Equal(t, "relationship", byName["spells"]["type"])
	assert.Equal(t, "many", byName["spells"]["relationship_type"])
	assert.NotContains(t, byName, "id")
	assert.NotContains(t, byName, "created_at")
}

func TestAPI_Errors(t *testing.T) {
	srv := setupServer(t)
	do(t, srv, http.MethodPost, "/api/npc/entries", `{"name":"Mira"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
		field  string
	}{
		{"unknown type", http.MethodGet, "/api/dragon/entries", "", http.StatusBadRequest, "unknown_type", ""},
		{"missing instance", http.MethodGet, "/api/npc/entries/99", "", http.StatusNotFound, "not_found", ""},
		{"non-integer id", http.MethodGet, "/api/npc/entries/abc", "", http.StatusNotFound, "not_found", ""},
		{"malformed value", http.MethodPost, "/api/quest/entries", `{"title":"Late","started_at":"soon"}`, http.StatusBadRequest, "malformed_value", "started_at"},
		{"malformed ids", http.MethodPost, "/api/npc/entries", `{"name":"Ash","quests":["abc"]}`, http.StatusBadRequest, "malformed_ids", "quests"},
		{"malformed body id", http.MethodPost, "/api/npc/entries", `{"id":"one"}`, http.StatusBadRequest, "malformed_value", "id"},
		{"duplicate", http.MethodPost, "/api/npc/entries", `{"name":"Mira"}`, http.StatusConflict, "duplicate_value", ""},
		{"not searchable", http.MethodGet, "/api/comment/by-name/anything", "", http.StatusBadRequest, "not_searchable", ""},
		{"not hierarchical", http.MethodGet, "/api/npc/entries/1/path", "", http.StatusBadRequest, "not_hierarchical", ""},
		{"bad body", http.MethodPost, "/api/npc/entries", `[1]`, http.StatusBadRequest, "malformed_body", ""},
		{"unknown route", http.MethodGet, "/nowhere", "", http.StatusNotFound, "not_found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))

			payload := decodeObject(t, body)
			assert.Equal(t, tt.code, payload["code"])
			assert.NotEmpty(t, payload["message"])
			if tt.field != "" {
				assert.Equal(t, tt.field, payload["field"])
			}
		})
	}
}

func TestAPI_Path(t *testing.T) {
	srv := setupServer(t)
	do(t, srv, http.MethodPost, "/api/page/entries", `{"title":"Lore"}`)
	do(t, srv, http.MethodPost, "/api/page/entries", `{"title":"The Fool","parent_id":1}`)

	resp, body := do(t, srv, http.MethodGet, "/api/page/entries/2/path", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"path":"lore/the-fool","ancestors":[{"id":1,"label":"Lore"},{"id":2,"label":"The Fool"}]}`, string(body))
}

func TestAPI_Prefix(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	registry, err := catalog.NewRegistry()
	require.NoError(t, err)
	handler := NewHandler(crud.NewEngine(registry, db, dialect.SQLite), nil).Routes("/wiki")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wiki/api/types", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/types", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
