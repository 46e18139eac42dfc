package evolution

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/config"
)

func TestClient_SendText(t *testing.T) {
	var captured sendTextRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/sendText/blog-instance", r.URL.Path)
		assert.Equal(t, "evo_key", r.Header.Get("apikey"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(config.Settings{
		EvolutionAPIURL:       server.URL,
		EvolutionInstanceName: "blog-instance",
		EvolutionAPIKey:       "evo_key",
	})

	err := client.SendText(t.Context(), "5511999999999", "Olá! Novo post no ar.")
	require.NoError(t, err)

	assert.Equal(t, "5511999999999", captured.Number)
	assert.Equal(t, "Olá! Novo post no ar.", captured.Text)
	assert.Equal(t, 1000, captured.Delay)
	assert.True(t, captured.LinkPreview)
}

func TestClient_SendText_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "instance disconnected", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(config.Settings{
		EvolutionAPIURL:       server.URL,
		EvolutionInstanceName: "blog-instance",
	})

	err := client.SendText(t.Context(), "5511999999999", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_SendText_MissingCredentials(t *testing.T) {
	client := NewClient(config.Settings{})

	err := client.SendText(t.Context(), "5511999999999", "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
