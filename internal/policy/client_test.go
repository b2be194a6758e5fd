package policy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

func TestEvaluateSendsConditionsRequest(t *testing.T) {
	var got map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ConditionsPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"query":"WHERE age > 10","masks":{}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", 0)
	eval, err := client.Evaluate(context.Background(), Request{
		Source: "package filters\nallow if input.age > 10",
		Input:  json.RawMessage(`{"user":"alice"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "WHERE age > 10", eval.Query)
	assert.JSONEq(t, `{"result":{"query":"WHERE age > 10","masks":{}}}`, string(eval.Raw))

	assert.JSONEq(t, `{"user":"alice"}`, string(got["input"]))
	assert.JSONEq(t, `{}`, string(got["data"]))
	assert.JSONEq(t, `{"main.rego":"package filters\nallow if input.age > 10"}`, string(got["rego_modules"]))
}

func TestEvaluateFailures(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error payload", http.StatusOK, `{"code":"rego_parse_error","message":"unexpected eof token"}`, "unexpected eof token"},
		{"error payload on 400", http.StatusBadRequest, `{"code":"invalid_input"}`, "invalid_input"},
		{"non json body", http.StatusBadGateway, `<html>bad gateway</html>`, "policy evaluator returned status 502"},
		{"missing result", http.StatusOK, `{}`, "policy evaluator returned status 200"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, 0).Evaluate(context.Background(), Request{Source: "package x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrPolicyEvaluation))
			assert.Equal(t, tc.wantMsg, err.Error())
		})
	}
}

func TestEvaluateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, 0).Evaluate(context.Background(), Request{Source: "package x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPolicyEvaluation))
}
