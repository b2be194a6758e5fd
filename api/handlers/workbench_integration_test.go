// api/handlers/workbench_integration_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workbench/api"
	"github.com/Annany2002/nebula-workbench/api/handlers"
	"github.com/Annany2002/nebula-workbench/api/models"
	"github.com/Annany2002/nebula-workbench/config"
	"github.com/Annany2002/nebula-workbench/internal/auth"
	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/engine"
	"github.com/Annany2002/nebula-workbench/internal/kv"
	"github.com/Annany2002/nebula-workbench/internal/policy"
	"github.com/Annany2002/nebula-workbench/internal/session"
)

// setupTestServer wires a session over temporary sqlite storage behind the router.
func setupTestServer(t *testing.T, cfg *config.Config, evaluatorURL string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tempDir := t.TempDir()
	cfg.DatabaseDir = tempDir
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 1000
	}

	opener, err := engine.NewSQLiteOpener(cfg.EngineDir())
	require.NoError(t, err)
	store, err := kv.Open(tempDir, "test_session.db")
	require.NoError(t, err)

	s := session.NewStore(opener, policy.NewClient(evaluatorURL, 5*time.Second), store)
	require.NoError(t, s.Init(t.Context()))

	server := httptest.NewServer(api.SetupRouter(s, cfg))
	t.Cleanup(func() {
		server.Close()
		_ = s.Close(context.Background())
		_ = store.Close()
	})
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return res, decoded
}

// TestWorkbenchEndpoints walks the create, execute, reload flow over HTTP.
func TestWorkbenchEndpoints(t *testing.T) {
	server := setupTestServer(t, &config.Config{}, "http://127.0.0.1:1")
	base := server.URL + "/api/v1"

	assert := assert.New(t)

	t.Run("Ping", func(t *testing.T) {
		res, err := http.Get(server.URL + "/ping")
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusOK, res.StatusCode)
	})

	t.Run("Execute Without Connection", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/session/execute", "", models.ExecuteRequest{Query: "SELECT 1"})
		assert.Equal(http.StatusConflict, res.StatusCode)
		assert.Equal("no_active_connection", body["kind"])
	})

	t.Run("Create Database", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/databases", "", models.CreateDatabaseRequest{Name: "shop", Description: "demo"})
		assert.Equal(http.StatusCreated, res.StatusCode)
		assert.Equal("shop", body["name"])
		assert.Equal("erDiagram", body["erd"])
	})

	t.Run("Create Duplicate", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/databases", "", models.CreateDatabaseRequest{Name: "shop"})
		assert.Equal(http.StatusConflict, res.StatusCode)
		assert.Equal("duplicate_name", body["kind"])
	})

	t.Run("Create Missing Name", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/databases", "", map[string]string{"description": "x"})
		assert.Equal(http.StatusBadRequest, res.StatusCode)
		assert.Equal("invalid_input", body["kind"])
	})

	t.Run("Execute Statements", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodPost, base+"/session/execute", "", models.ExecuteRequest{Query: "CREATE TABLE t(id int)"})
		assert.Equal(http.StatusOK, res.StatusCode)

		res, body := doJSON(t, http.MethodPost, base+"/session/execute", "", models.ExecuteRequest{Query: "INSERT INTO t VALUES (1); SELECT id FROM t"})
		assert.Equal(http.StatusOK, res.StatusCode)
		results := body["results"].([]any)
		assert.Len(results, 2)
		grids := body["grids"].([]any)
		require.Len(t, grids, 1)
		rows := grids[0].(map[string]any)["data"].([]any)
		assert.Equal(float64(1), rows[0].(map[string]any)["id"])
	})

	t.Run("Execute Errors", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/session/execute", "", models.ExecuteRequest{Query: "   "})
		assert.Equal(http.StatusBadRequest, res.StatusCode)
		assert.Equal("empty_query", body["kind"])

		res, body = doJSON(t, http.MethodPost, base+"/session/execute", "", models.ExecuteRequest{Query: "SELECT * FROM nowhere"})
		assert.Equal(http.StatusUnprocessableEntity, res.StatusCode)
		assert.Equal("engine", body["kind"])
		assert.Contains(body["error"], "no such table")
	})

	t.Run("Reload And Schema", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodPost, base+"/session/reload", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)

		res, body := doJSON(t, http.MethodGet, base+"/session/schema", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		schema := body["schema"].([]any)
		require.Len(t, schema, 1)
		group := schema[0].(map[string]any)
		assert.Equal("public", group["schema"])
		assert.Equal("t", group["tables"].([]any)[0].(map[string]any)["table"])

		res, body = doJSON(t, http.MethodGet, base+"/session/erd", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Contains(body["erd"], "\tt{")
	})

	t.Run("History", func(t *testing.T) {
		res, body := doJSON(t, http.MethodGet, base+"/databases/shop/history?order=desc&limit=1", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Equal(float64(3), body["total"])
		entries := body["entries"].([]any)
		require.Len(t, entries, 1)
		assert.Equal("SELECT * FROM nowhere", entries[0].(map[string]any)["statement"])
		assert.NotEmpty(entries[0].(map[string]any)["error"])

		res, body = doJSON(t, http.MethodGet, base+"/databases/shop/history?limit=0", "", nil)
		assert.Equal(http.StatusBadRequest, res.StatusCode)
		assert.Equal("invalid_input", body["kind"])

		res, _ = doJSON(t, http.MethodGet, base+"/databases/ghost/history", "", nil)
		assert.Equal(http.StatusNotFound, res.StatusCode)
	})

	t.Run("Results Cleared After Failure", func(t *testing.T) {
		res, body := doJSON(t, http.MethodGet, base+"/session/results", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Empty(body["grids"])
	})

	t.Run("Import And List", func(t *testing.T) {
		res, body := doJSON(t, http.MethodGet, base+"/samples", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Len(body["samples"], 2)

		res, body = doJSON(t, http.MethodPost, base+"/databases/import", "", models.ImportDatabaseRequest{Sample: "schools"})
		assert.Equal(http.StatusCreated, res.StatusCode)
		imported, _ := body["name"].(string)
		assert.Contains(imported, "schools_")

		res, body = doJSON(t, http.MethodPost, base+"/databases/import", "", models.ImportDatabaseRequest{Sample: "nope"})
		assert.Equal(http.StatusNotFound, res.StatusCode)
		assert.Equal("not_found", body["kind"])

		res, body = doJSON(t, http.MethodGet, base+"/databases", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		list := body["databases"].([]any)
		require.Len(t, list, 2)
		for _, item := range list {
			db := item.(map[string]any)
			assert.Equal(db["name"] == imported, db["active"])
		}
	})

	t.Run("Connect Update Delete", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/databases/shop/connect", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Len(body["history"], 3)

		res, body = doJSON(t, http.MethodPut, base+"/databases/shop", "", models.UpdateDatabaseRequest{Description: "renamed"})
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Equal("renamed", body["description"])

		res, _ = doJSON(t, http.MethodDelete, base+"/databases/shop", "", nil)
		assert.Equal(http.StatusNoContent, res.StatusCode)

		res, body = doJSON(t, http.MethodGet, base+"/session", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Nil(body["active"])

		res, _ = doJSON(t, http.MethodDelete, base+"/databases/shop", "", nil)
		assert.Equal(http.StatusNotFound, res.StatusCode)
	})
}

// TestPolicyEndpoints evaluates a program against a fake evaluator and runs a filtered query.
func TestPolicyEndpoints(t *testing.T) {
	var received map[string]json.RawMessage
	evaluator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		if bytes.Contains(received["rego_modules"], []byte("broken")) {
			_, _ = w.Write([]byte(`{"code":"rego_parse_error","message":"1 error occurred: main.rego:1: rego_parse_error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"query":"WHERE age >= 18"}}`))
	}))
	defer evaluator.Close()

	server := setupTestServer(t, &config.Config{}, evaluator.URL)
	base := server.URL + "/api/v1"
	assert := assert.New(t)

	res, _ := doJSON(t, http.MethodPost, base+"/databases", "", models.CreateDatabaseRequest{Name: "people"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res, _ = doJSON(t, http.MethodPost, base+"/session/execute", "", models.ExecuteRequest{Query: "CREATE TABLE person(name text, age int); INSERT INTO person VALUES ('ana', 12), ('ben', 30)"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	t.Run("Policy Input", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodPut, base+"/session/policy/input", "", `{"subject":"ben"}`)
		assert.Equal(http.StatusNoContent, res.StatusCode)

		res, body := doJSON(t, http.MethodPut, base+"/session/policy/data", "", `[1]`)
		assert.Equal(http.StatusBadRequest, res.StatusCode)
		assert.Equal("invalid_input", body["kind"])
	})

	t.Run("Evaluate Error", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/session/evaluate", "", models.PolicyRequest{Policy: "package broken"})
		assert.Equal(http.StatusBadGateway, res.StatusCode)
		assert.Equal("policy_evaluation", body["kind"])
	})

	t.Run("Evaluate And Filter", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, base+"/session/evaluate", "", models.PolicyRequest{Policy: "package filters"})
		assert.Equal(http.StatusOK, res.StatusCode)
		assert.Equal("WHERE age >= 18", body["filter"])
		assert.JSONEq(`{"subject":"ben"}`, string(received["input"]))

		res, body = doJSON(t, http.MethodPost, base+"/session/execute", "", models.ExecuteRequest{Query: "SELECT name FROM person", Filtered: true})
		assert.Equal(http.StatusOK, res.StatusCode)
		rows := body["grids"].([]any)[0].(map[string]any)["data"].([]any)
		require.Len(t, rows, 1)
		assert.Equal("ben", rows[0].(map[string]any)["name"])

		res, body = doJSON(t, http.MethodGet, base+"/session", "", nil)
		assert.Equal(http.StatusOK, res.StatusCode)
		db := body["database"].(map[string]any)
		assert.Equal("SELECT name FROM person WHERE age >= 18", db["query"])
		assert.Equal("package filters", db["policySource"])
	})
}

// TestAccessLock covers the optional password login in front of /api/v1.
func TestAccessLock(t *testing.T) {
	hash, err := auth.HashPassword("letmein")
	require.NoError(t, err)

	cfg := &config.Config{
		AccessPasswordHash: hash,
		JWTSecret:          "test_secret_key_for_integration_tests_1234567890",
		JWTExpiration:      5 * time.Minute,
	}
	server := setupTestServer(t, cfg, "http://127.0.0.1:1")
	assert := assert.New(t)

	res, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/databases", "", nil)
	assert.Equal(http.StatusUnauthorized, res.StatusCode)

	res, body := doJSON(t, http.MethodPost, server.URL+"/auth/login", "", models.LoginRequest{Password: "wrong"})
	assert.Equal(http.StatusUnauthorized, res.StatusCode)
	assert.Equal("unauthorized", body["kind"])

	res, body = doJSON(t, http.MethodPost, server.URL+"/auth/login", "", models.LoginRequest{Password: "letmein"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	res, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/databases", token, nil)
	assert.Equal(http.StatusOK, res.StatusCode)

	res, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/databases", "not-a-token", nil)
	assert.Equal(http.StatusUnauthorized, res.StatusCode)
}

// TestErrorBodyShape checks the error body produced for domain errors.
func TestErrorBodyShape(t *testing.T) {
	server := setupTestServer(t, &config.Config{}, "http://127.0.0.1:1")

	res, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/databases/ghost/connect", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, domain.KindName(domain.ErrNotFound), body["kind"])
	assert.Equal(t, "database 'ghost' not found", body["error"])
}

// TestUnsavedChangeIsReportedAsWarning checks that a change applied in memory
// succeeds with a warning when the session file cannot be written.
func TestUnsavedChangeIsReportedAsWarning(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{DatabaseDir: t.TempDir(), RateLimitPerMinute: 1000}

	opener, err := engine.NewSQLiteOpener(cfg.EngineDir())
	require.NoError(t, err)
	store, err := kv.Open(cfg.DatabaseDir, "test_session.db")
	require.NoError(t, err)

	s := session.NewStore(opener, nil, store)
	require.NoError(t, s.Init(t.Context()))
	server := httptest.NewServer(api.SetupRouter(s, cfg))
	t.Cleanup(func() {
		server.Close()
		_ = s.Close(context.Background())
	})
	base := server.URL + "/api/v1"

	res, _ := doJSON(t, http.MethodPost, base+"/databases", "", models.CreateDatabaseRequest{Name: "shop"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Empty(t, res.Header.Get(handlers.WarningHeader))

	require.NoError(t, store.Close())

	res, body := doJSON(t, http.MethodPut, base+"/databases/shop", "", models.UpdateDatabaseRequest{Description: "kept"})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "kept", body["description"])
	assert.NotEmpty(t, res.Header.Get(handlers.WarningHeader))

	res, _ = doJSON(t, http.MethodPut, base+"/session/query", "", models.QueryRequest{Query: "SELECT 1"})
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(handlers.WarningHeader))

	// rejected changes are still errors
	res, body = doJSON(t, http.MethodPut, base+"/databases/ghost", "", models.UpdateDatabaseRequest{Description: "x"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", body["kind"])
	assert.Empty(t, res.Header.Get(handlers.WarningHeader))
}
