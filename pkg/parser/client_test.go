package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlens/flowlens/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("FLOWLENS_TEST_API_KEY", "test-key")

	client, err := NewClient(config.ParserConfig{
		Endpoint:  server.URL,
		Model:     "test-model",
		APIKeyEnv: "FLOWLENS_TEST_API_KEY",
	})
	require.NoError(t, err)

	return client.WithHTTPClient(server.Client())
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()

	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	require.NoError(t, json.NewEncoder(w).Encode(reply))
}

func TestGenerateWorkflow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		chatReply(t, w, validWorkflowJSON)
	})

	g, err := client.GenerateWorkflow(context.Background(), "invoices get validated then settled")
	require.NoError(t, err)

	assert.Equal(t, "Invoice Processing", g.Name)
	assert.Len(t, g.Nodes, 3)
}

func TestGenerateWorkflowRepairsFencedOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		chatReply(t, w, "```json\n"+validWorkflowJSON+"\n```")
	})

	g, err := client.GenerateWorkflow(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Invoice Processing", g.Name)
}

func TestGenerateWorkflowSurfacesAPIErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited"},
		})
	})

	_, err := client.GenerateWorkflow(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("FLOWLENS_EMPTY_KEY", "")

	_, err := NewClient(config.ParserConfig{APIKeyEnv: "FLOWLENS_EMPTY_KEY"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}
