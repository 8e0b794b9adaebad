package forge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchWorkflow(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewGitHubClient(server.URL, "test-token")
	require.NoError(t, err)

	err = client.DispatchWorkflow(context.Background(), "example-org", "example-pages",
		"publish.yml", "docs", map[string]string{"version": "2.1.0"})
	require.NoError(t, err)

	assert.Equal(t, "/repos/example-org/example-pages/actions/workflows/publish.yml/dispatches", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/vnd.github+json", gotAccept)
	assert.Equal(t, "docs", gotBody["ref"])
	inputs, ok := gotBody["inputs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2.1.0", inputs["version"])
}

func TestDispatchWorkflowAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"No ref found"}`))
	}))
	defer server.Close()

	client, err := NewGitHubClient(server.URL, "test-token")
	require.NoError(t, err)

	err = client.DispatchWorkflow(context.Background(), "o", "r", "publish.yml", "missing", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "No ref found")
}

func TestNewGitHubClientRequiresToken(t *testing.T) {
	_, err := NewGitHubClient("", "")
	require.Error(t, err)
}
