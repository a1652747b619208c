package imaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelierhq/easel/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Generate(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4e, 0x47}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a red fox", req.Prompt)
		assert.Equal(t, "512x512", req.Size)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"b64_json": base64.StdEncoding.EncodeToString(image)},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", log.WithModule("test"))

	got, err := client.Generate(context.Background(), "a red fox", "512x512")
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestHTTPClient_Generate_EmptyPrompt(t *testing.T) {
	client := NewHTTPClient("http://localhost:0", "", log.WithModule("test"))

	_, err := client.Generate(context.Background(), "", "512x512")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestHTTPClient_Generate_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", log.WithModule("test"))

	_, err := client.Generate(context.Background(), "a red fox", "512x512")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestHTTPClient_Generate_NoImageData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", log.WithModule("test"))

	_, err := client.Generate(context.Background(), "a red fox", "512x512")
	assert.ErrorIs(t, err, ErrNoImage)
}
