package httprequest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequestNode_Execute_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token-123", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("http-1", map[string]any{
		"url":     server.URL,
		"method":  "post",
		"headers": map[string]any{"X-Api-Key": "token-123"},
		"body":    `{"q":1}`,
	})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result["status_code"])
	assert.Equal(t, map[string]any{"ok": true}, result["body"])
}

func TestHTTPRequestNode_Execute_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("http-1", map[string]any{"url": server.URL})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNewHTTPRequestNode_RequiresURL(t *testing.T) {
	_, err := NewHTTPRequestNode("http-1", map[string]any{})
	assert.Error(t, err)
}
