package resend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/config"
)

func testSettings() config.Settings {
	return config.Settings{
		ResendAPIKey:    "re_test_key",
		ResendFromEmail: "news@example.com",
	}
}

func TestClient_Send(t *testing.T) {
	var captured sendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test_key", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(testSettings(), server.URL)

	err := client.Send(t.Context(), "ana@example.com", "Hello", "<p>Hi Ana</p>")
	require.NoError(t, err)

	assert.Equal(t, "news@example.com", captured.From)
	assert.Equal(t, "ana@example.com", captured.To)
	assert.Equal(t, "Hello", captured.Subject)
	assert.Equal(t, "<p>Hi Ana</p>", captured.HTML)
}

func TestClient_Send_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid from address"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(testSettings(), server.URL)

	err := client.Send(t.Context(), "ana@example.com", "Hello", "<p>Hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestClient_Send_MissingCredentials(t *testing.T) {
	client := NewClient(config.Settings{})

	err := client.Send(t.Context(), "ana@example.com", "Hello", "<p>Hi</p>")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
